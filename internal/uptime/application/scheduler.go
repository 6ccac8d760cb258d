package application

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Trigger starts a new report.
type Trigger interface {
	Trigger(ctx context.Context) (string, error)
}

// Scheduler triggers one report per day at a fixed UTC time.
type Scheduler struct {
	trigger Trigger
	dailyAt string
	logger  *zap.Logger
	lastRun time.Time
}

// NewScheduler constructs a Scheduler. dailyAt is HH:MM in UTC.
func NewScheduler(trigger Trigger, dailyAt string, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{trigger: trigger, dailyAt: dailyAt, logger: logger}
}

// Start blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.trigger == nil {
		return
	}
	if _, _, err := parseDailyAt(s.dailyAt); err != nil {
		s.logger.Error("report schedule disabled", zap.String("daily_at", s.dailyAt), zap.Error(err))
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !s.shouldRun(now.UTC()) {
				continue
			}
			s.runOnce(ctx, now.UTC())
		}
	}
}

func (s *Scheduler) shouldRun(now time.Time) bool {
	hour, minute, err := parseDailyAt(s.dailyAt)
	if err != nil {
		return false
	}
	if now.Hour() != hour || now.Minute() != minute {
		return false
	}
	day := now.Truncate(24 * time.Hour)
	return !s.lastRun.Equal(day)
}

func (s *Scheduler) runOnce(ctx context.Context, now time.Time) {
	s.lastRun = now.Truncate(24 * time.Hour)
	reportID, err := s.trigger.Trigger(ctx)
	if err != nil {
		s.logger.Error("report schedule error", zap.String("report_id", reportID), zap.Error(err))
		return
	}
	s.logger.Info("report scheduled", zap.String("report_id", reportID))
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
