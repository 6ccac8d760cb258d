package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"store-monitor/internal/observability/metrics"
	"store-monitor/internal/tasks"
	uptime "store-monitor/internal/uptime/domain"
	"store-monitor/internal/uptime/notify"
)

// Submitter hands work to a background executor.
type Submitter interface {
	Submit(task tasks.Task) error
}

// RunnerDeps are the collaborators of a Runner.
type RunnerDeps struct {
	Jobs          JobRepository
	Source        EventSource
	Artifacts     ArtifactStore
	Generator     *Generator
	Queue         Submitter
	Notifier      notify.Notifier
	Clock         Clock
	Logger        *zap.Logger
	PublicBaseURL string
	NewID         func() string
}

// Runner owns the report job lifecycle.
type Runner struct {
	jobs          JobRepository
	source        EventSource
	artifacts     ArtifactStore
	generator     *Generator
	queue         Submitter
	notifier      notify.Notifier
	clock         Clock
	logger        *zap.Logger
	publicBaseURL string
	newID         func() string

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewRunner constructs a Runner.
func NewRunner(deps RunnerDeps) (*Runner, error) {
	if deps.Jobs == nil {
		return nil, errors.New("report runner: nil job repository")
	}
	if deps.Source == nil {
		return nil, errors.New("report runner: nil event source")
	}
	if deps.Artifacts == nil {
		return nil, errors.New("report runner: nil artifact store")
	}
	if deps.Generator == nil {
		return nil, errors.New("report runner: nil generator")
	}
	if deps.Queue == nil {
		return nil, errors.New("report runner: nil queue")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Runner{
		jobs:          deps.Jobs,
		source:        deps.Source,
		artifacts:     deps.Artifacts,
		generator:     deps.Generator,
		queue:         deps.Queue,
		notifier:      deps.Notifier,
		clock:         deps.Clock,
		logger:        deps.Logger,
		publicBaseURL: strings.TrimRight(deps.PublicBaseURL, "/"),
		newID:         deps.NewID,
		inflight:      make(map[string]struct{}),
	}, nil
}

// Trigger records a new Running job and schedules its generation.
// When scheduling fails the id is still returned; the job stays Running
// and can be retriggered.
func (r *Runner) Trigger(ctx context.Context) (string, error) {
	reportID := r.newID()
	if err := r.jobs.Create(ctx, uptime.NewJob(reportID, r.clock.Now())); err != nil {
		return "", fmt.Errorf("report runner: create job: %w", err)
	}
	if err := r.schedule(reportID); err != nil {
		return reportID, err
	}
	return reportID, nil
}

// Retrigger schedules an existing Running job that is not already being
// computed in this process. Complete jobs are returned untouched.
func (r *Runner) Retrigger(ctx context.Context, reportID string) (*uptime.Job, error) {
	job, err := r.jobs.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if job.Status == uptime.JobComplete {
		return job, nil
	}
	if err := r.schedule(reportID); err != nil && !errors.Is(err, errInFlight) {
		return job, err
	}
	return job, nil
}

// Job returns the status record for reportID.
func (r *Runner) Job(ctx context.Context, reportID string) (*uptime.Job, error) {
	return r.jobs.Get(ctx, reportID)
}

// OpenReport returns the job and, when it is Complete, its artifact.
// Status is consulted before the artifact so a Running job never serves a file.
func (r *Runner) OpenReport(ctx context.Context, reportID string) (*uptime.Job, io.ReadCloser, error) {
	job, err := r.jobs.Get(ctx, reportID)
	if err != nil {
		return nil, nil, err
	}
	if job.Status != uptime.JobComplete {
		return job, nil, nil
	}
	rc, err := r.artifacts.Open(ctx, reportID)
	if err != nil {
		return job, nil, err
	}
	return job, rc, nil
}

var errInFlight = errors.New("report runner: job already in flight")

func (r *Runner) schedule(reportID string) error {
	if !r.claim(reportID) {
		return errInFlight
	}
	err := r.queue.Submit(func(ctx context.Context) {
		defer r.release(reportID)
		_ = r.Execute(ctx, reportID)
	})
	if err != nil {
		r.release(reportID)
		r.logger.Error("report_job_submit_failed", zap.String("report_id", reportID), zap.Error(err))
		return fmt.Errorf("report runner: schedule %s: %w", reportID, err)
	}
	return nil
}

func (r *Runner) claim(reportID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[reportID]; ok {
		return false
	}
	r.inflight[reportID] = struct{}{}
	return true
}

func (r *Runner) release(reportID string) {
	r.mu.Lock()
	delete(r.inflight, reportID)
	r.mu.Unlock()
}

// Execute computes and stores the report for reportID synchronously.
// Any failure, panics included, leaves the job Running with the error recorded.
// The returned error is informational; background callers discard it.
func (r *Runner) Execute(ctx context.Context, reportID string) (err error) {
	started := r.clock.Now()
	r.logger.Info("report_job_start", zap.String("report_id", reportID))

	var result Result
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("report runner: panic: %v", rec)
		}
		elapsed := r.clock.Now().Sub(started)
		if err != nil {
			r.fail(reportID, err, elapsed)
			return
		}
		r.complete(ctx, reportID, result, elapsed)
	}()

	snap, err := LoadSnapshot(ctx, r.source)
	if err != nil {
		return err
	}
	result, err = r.generator.Generate(ctx, snap)
	if err != nil {
		return err
	}
	if err := r.artifacts.Save(ctx, reportID, result.Rows); err != nil {
		return fmt.Errorf("report runner: save artifact: %w", err)
	}
	return nil
}

func (r *Runner) fail(reportID string, cause error, elapsed time.Duration) {
	metrics.ObserveReportJob(metrics.ResultError, elapsed)
	r.logger.Error("report_job_failed",
		zap.String("report_id", reportID),
		zap.Duration("duration", elapsed),
		zap.Error(cause))
	// The job context may be gone; the reset must still land.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := r.jobs.MarkRunning(ctx, reportID, cause.Error(), r.clock.Now()); err != nil {
		r.logger.Error("report_job_reset_failed", zap.String("report_id", reportID), zap.Error(err))
	}
}

func (r *Runner) complete(ctx context.Context, reportID string, result Result, elapsed time.Duration) {
	job, err := r.jobs.MarkComplete(ctx, reportID, r.clock.Now())
	if err != nil {
		r.fail(reportID, fmt.Errorf("report runner: mark complete: %w", err), elapsed)
		return
	}
	metrics.ObserveReportJob(metrics.ResultSuccess, elapsed)
	metrics.ObserveReportStores(len(result.Rows))
	r.logger.Info("report_job_complete",
		zap.String("report_id", reportID),
		zap.Int("stores", len(result.Rows)),
		zap.Time("anchor", result.Anchor),
		zap.Bool("anchor_fallback", result.AnchorFallback),
		zap.Duration("duration", elapsed))

	if r.notifier == nil {
		return
	}
	msg := notify.ReportMessage{
		ReportID:    reportID,
		ReportURL:   r.ReportURL(reportID),
		Stores:      len(result.Rows),
		Anchor:      result.Anchor.Format(time.RFC3339),
		Attempts:    job.Attempts,
		CompletedAt: job.UpdatedAt.Format(time.RFC3339),
		Meta:        map[string]string{"anchor_fallback": strconv.FormatBool(result.AnchorFallback)},
	}
	if err := r.notifier.Notify(ctx, msg); err != nil {
		r.logger.Warn("report_notify_failed", zap.String("report_id", reportID), zap.Error(err))
	}
}

// ReportURL returns the download link for reportID, or "" without a base URL.
func (r *Runner) ReportURL(reportID string) string {
	if r.publicBaseURL == "" {
		return ""
	}
	return r.publicBaseURL + "/get_report?report_id=" + url.QueryEscape(reportID)
}
