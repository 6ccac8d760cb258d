package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"store-monitor/internal/observability/metrics"
	uptime "store-monitor/internal/uptime/domain"
)

// EventSink accepts bulk loads with merge semantics: a row whose natural key
// already exists replaces the stored row.
type EventSink interface {
	UpsertStatusEvents(ctx context.Context, events []uptime.StatusEvent) (int, error)
	UpsertBusinessHours(ctx context.Context, rules []uptime.BusinessHourRule) (int, error)
	UpsertTimezones(ctx context.Context, zones []uptime.TimezoneAssignment) (int, error)
}

// Dataset is the parsed content of the three input files.
type Dataset struct {
	Events []uptime.StatusEvent
	Rules  []uptime.BusinessHourRule
	Zones  []uptime.TimezoneAssignment
}

// Dataset names used in logs and metrics.
const (
	DatasetStatus    = "store_status"
	DatasetHours     = "menu_hours"
	DatasetTimezones = "timezones"
)

// Ingest merges data into sink, one dataset at a time. Duplicate keys within
// a dataset resolve to the last row.
func Ingest(ctx context.Context, sink EventSink, data Dataset, logger *zap.Logger) error {
	if sink == nil {
		return errors.New("ingest: nil sink")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	steps := []struct {
		name string
		rows int
		load func() (int, error)
	}{
		{DatasetStatus, len(data.Events), func() (int, error) {
			return sink.UpsertStatusEvents(ctx, uptime.DedupeEvents(data.Events))
		}},
		{DatasetHours, len(data.Rules), func() (int, error) {
			return sink.UpsertBusinessHours(ctx, uptime.DedupeRules(data.Rules))
		}},
		{DatasetTimezones, len(data.Zones), func() (int, error) {
			return sink.UpsertTimezones(ctx, uptime.DedupeTimezones(data.Zones))
		}},
	}
	for _, step := range steps {
		start := time.Now()
		n, err := step.load()
		if err != nil {
			metrics.ObserveIngest(step.name, metrics.ResultError, 0, time.Since(start))
			return fmt.Errorf("ingest %s: %w", step.name, err)
		}
		metrics.ObserveIngest(step.name, metrics.ResultSuccess, n, time.Since(start))
		logger.Info("dataset_loaded",
			zap.String("dataset", step.name),
			zap.Int("rows_read", step.rows),
			zap.Int("rows_merged", n),
			zap.Duration("duration", time.Since(start)))
	}
	return nil
}
