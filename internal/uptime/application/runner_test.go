package application

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	uptime "store-monitor/internal/uptime/domain"
	"store-monitor/internal/uptime/notify"
)

type recordingNotifier struct {
	messages []notify.ReportMessage
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.ReportMessage) error {
	n.messages = append(n.messages, msg)
	return nil
}

func scenarioSource(t *testing.T) *stubSource {
	return &stubSource{
		// The 16:00 observation sets the anchor, so the last hour is [15:00,16:00).
		events: []uptime.StatusEvent{
			{StoreID: "S1", Timestamp: mustTime(t, "2024-01-01T10:00:00Z"), Status: uptime.StatusActive},
			{StoreID: "S1", Timestamp: mustTime(t, "2024-01-01T16:00:00Z"), Status: uptime.StatusActive},
		},
		rules:  []uptime.BusinessHourRule{mondayRule("S1")},
		zones:  []uptime.TimezoneAssignment{{StoreID: "S1", Timezone: "UTC"}},
	}
}

type runnerFixture struct {
	runner    *Runner
	jobs      *stubJobs
	artifacts *stubArtifacts
	notifier  *recordingNotifier
}

func newRunnerFixture(t *testing.T, source EventSource, queue Submitter) runnerFixture {
	t.Helper()
	jobs := newStubJobs()
	artifacts := newStubArtifacts()
	notifier := &recordingNotifier{}
	ids := 0
	runner, err := NewRunner(RunnerDeps{
		Jobs:          jobs,
		Source:        source,
		Artifacts:     artifacts,
		Generator:     newTestGenerator(t, uptime.DefaultPolicy(), 2),
		Queue:         queue,
		Notifier:      notifier,
		Clock:         fixedClock{now: mustTime(t, "2024-06-01T12:00:00Z")},
		PublicBaseURL: "http://reports.local/",
		NewID: func() string {
			ids++
			return "r-" + string(rune('0'+ids))
		},
	})
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	return runnerFixture{runner: runner, jobs: jobs, artifacts: artifacts, notifier: notifier}
}

func TestRunnerTriggerCompletesJob(t *testing.T) {
	fx := newRunnerFixture(t, scenarioSource(t), &inlineQueue{})

	reportID, err := fx.runner.Trigger(context.Background())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	job, err := fx.runner.Job(context.Background(), reportID)
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	if job.Status != uptime.JobComplete || job.Attempts != 1 {
		t.Fatalf("unexpected job %+v", job)
	}
	rows := fx.artifacts.rows[reportID]
	if len(rows) != 1 || rows[0].UptimeLastHour != 60 || rows[0].DowntimeLastHour != 0 {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if len(fx.notifier.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(fx.notifier.messages))
	}
	if got := fx.notifier.messages[0].ReportURL; got != "http://reports.local/get_report?report_id=r-1" {
		t.Fatalf("unexpected report url %q", got)
	}
	if got := fx.notifier.messages[0].Meta["anchor_fallback"]; got != "false" {
		t.Fatalf("expected anchor_fallback=false in meta, got %q", got)
	}
}

func TestRunnerNotifiesAnchorFallback(t *testing.T) {
	fx := newRunnerFixture(t, &stubSource{}, &inlineQueue{})

	reportID, err := fx.runner.Trigger(context.Background())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	job, _ := fx.runner.Job(context.Background(), reportID)
	if job.Status != uptime.JobComplete {
		t.Fatalf("empty event set should still complete, got %+v", job)
	}
	if len(fx.notifier.messages) != 1 {
		t.Fatalf("expected one notification, got %d", len(fx.notifier.messages))
	}
	msg := fx.notifier.messages[0]
	if msg.Meta["anchor_fallback"] != "true" || msg.Stores != 0 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Anchor != "2024-06-01T12:00:00Z" {
		t.Fatalf("expected wall clock anchor, got %q", msg.Anchor)
	}
}

func TestRunnerTriggerReturnsBeforeWork(t *testing.T) {
	queue := &heldQueue{}
	fx := newRunnerFixture(t, scenarioSource(t), queue)

	reportID, err := fx.runner.Trigger(context.Background())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	job, _, err := fx.runner.OpenReport(context.Background(), reportID)
	if err != nil || job.Status != uptime.JobRunning {
		t.Fatalf("expected Running job, got %+v err=%v", job, err)
	}

	// A retrigger while the first run is queued must not double-submit.
	if _, err := fx.runner.Retrigger(context.Background(), reportID); err != nil {
		t.Fatalf("retrigger: %v", err)
	}
	if len(queue.pending) != 1 {
		t.Fatalf("expected one pending task, got %d", len(queue.pending))
	}

	queue.run()
	job, rc, err := fx.runner.OpenReport(context.Background(), reportID)
	if err != nil || job.Status != uptime.JobComplete || rc == nil {
		t.Fatalf("expected Complete job with artifact, got %+v err=%v", job, err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if !strings.Contains(string(body), "S1") {
		t.Fatalf("unexpected artifact %q", body)
	}
}

func TestRunnerFailureLeavesJobRetryable(t *testing.T) {
	fx := newRunnerFixture(t, scenarioSource(t), &inlineQueue{})
	fx.artifacts.saveErr = errBoom

	reportID, err := fx.runner.Trigger(context.Background())
	if err != nil {
		t.Fatalf("trigger must not surface computation failures: %v", err)
	}
	job, _ := fx.runner.Job(context.Background(), reportID)
	if job.Status != uptime.JobRunning || job.Attempts != 1 || !strings.Contains(job.LastError, "boom") {
		t.Fatalf("expected Running job with recorded error, got %+v", job)
	}
	if _, ok := fx.artifacts.rows[reportID]; ok {
		t.Fatalf("failed run must not leave an artifact")
	}
	if len(fx.notifier.messages) != 0 {
		t.Fatalf("failed run must not notify")
	}

	fx.artifacts.saveErr = nil
	job, err = fx.runner.Retrigger(context.Background(), reportID)
	if err != nil {
		t.Fatalf("retrigger: %v", err)
	}
	job, _ = fx.runner.Job(context.Background(), reportID)
	if job.Status != uptime.JobComplete || job.Attempts != 2 || job.LastError != "" {
		t.Fatalf("expected Complete after retrigger, got %+v", job)
	}
}

func TestRunnerRecoversPanics(t *testing.T) {
	fx := newRunnerFixture(t, &stubSource{panic: true}, &inlineQueue{})
	reportID, err := fx.runner.Trigger(context.Background())
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	job, _ := fx.runner.Job(context.Background(), reportID)
	if job.Status != uptime.JobRunning || !strings.Contains(job.LastError, "panic") {
		t.Fatalf("expected Running job after panic, got %+v", job)
	}
}

func TestRunnerRetriggerEdgeCases(t *testing.T) {
	queue := &inlineQueue{}
	fx := newRunnerFixture(t, scenarioSource(t), queue)

	if _, err := fx.runner.Retrigger(context.Background(), "missing"); !errors.Is(err, uptime.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	reportID, _ := fx.runner.Trigger(context.Background())
	job, err := fx.runner.Retrigger(context.Background(), reportID)
	if err != nil || job.Status != uptime.JobComplete {
		t.Fatalf("complete job should be returned as is, got %+v err=%v", job, err)
	}
	if queue.submitted != 1 {
		t.Fatalf("complete job must not be resubmitted, submitted=%d", queue.submitted)
	}
}

func TestRunnerSubmitFailureKeepsJob(t *testing.T) {
	fx := newRunnerFixture(t, scenarioSource(t), &inlineQueue{err: errBoom})
	reportID, err := fx.runner.Trigger(context.Background())
	if !errors.Is(err, errBoom) || reportID == "" {
		t.Fatalf("expected id with submit error, got %q %v", reportID, err)
	}
	job, _ := fx.runner.Job(context.Background(), reportID)
	if job.Status != uptime.JobRunning {
		t.Fatalf("expected Running job, got %+v", job)
	}
}

func TestRunnerOpenReportMissingArtifact(t *testing.T) {
	fx := newRunnerFixture(t, scenarioSource(t), &inlineQueue{})
	reportID, _ := fx.runner.Trigger(context.Background())
	delete(fx.artifacts.rows, reportID)

	job, rc, err := fx.runner.OpenReport(context.Background(), reportID)
	if !errors.Is(err, uptime.ErrArtifactNotFound) || rc != nil || job.Status != uptime.JobComplete {
		t.Fatalf("expected missing artifact on Complete job, got %+v %v", job, err)
	}
}
