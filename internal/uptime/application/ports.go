package application

import (
	"context"
	"io"
	"time"

	uptime "store-monitor/internal/uptime/domain"
)

// EventSource provides bulk reads of the three input collections.
type EventSource interface {
	// LoadStatusEvents returns all events ordered by store id, then timestamp.
	LoadStatusEvents(ctx context.Context) ([]uptime.StatusEvent, error)
	LoadBusinessHours(ctx context.Context) ([]uptime.BusinessHourRule, error)
	LoadTimezones(ctx context.Context) ([]uptime.TimezoneAssignment, error)
}

// ArtifactStore persists finished reports addressed by report id.
// Save overwrites any previous artifact for the same id.
type ArtifactStore interface {
	Save(ctx context.Context, reportID string, rows []uptime.ReportRow) error
	// Open returns uptime.ErrArtifactNotFound when nothing was saved.
	Open(ctx context.Context, reportID string) (io.ReadCloser, error)
}

// JobRepository stores report job status. Writes are last-write-wins.
type JobRepository interface {
	Create(ctx context.Context, job *uptime.Job) error
	// Get returns uptime.ErrJobNotFound for unknown ids.
	Get(ctx context.Context, reportID string) (*uptime.Job, error)
	MarkComplete(ctx context.Context, reportID string, at time.Time) (*uptime.Job, error)
	MarkRunning(ctx context.Context, reportID, lastError string, at time.Time) (*uptime.Job, error)
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
