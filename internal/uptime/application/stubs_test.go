package application

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"store-monitor/internal/tasks"
	uptime "store-monitor/internal/uptime/domain"
)

type stubSource struct {
	events []uptime.StatusEvent
	rules  []uptime.BusinessHourRule
	zones  []uptime.TimezoneAssignment
	err    error
	panic  bool
}

func (s *stubSource) LoadStatusEvents(context.Context) ([]uptime.StatusEvent, error) {
	if s.panic {
		panic("source exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func (s *stubSource) LoadBusinessHours(context.Context) ([]uptime.BusinessHourRule, error) {
	return s.rules, nil
}

func (s *stubSource) LoadTimezones(context.Context) ([]uptime.TimezoneAssignment, error) {
	return s.zones, nil
}

type stubArtifacts struct {
	mu      sync.Mutex
	rows    map[string][]uptime.ReportRow
	saveErr error
}

func newStubArtifacts() *stubArtifacts {
	return &stubArtifacts{rows: make(map[string][]uptime.ReportRow)}
}

func (a *stubArtifacts) Save(_ context.Context, reportID string, rows []uptime.ReportRow) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.saveErr != nil {
		return a.saveErr
	}
	a.rows[reportID] = rows
	return nil
}

func (a *stubArtifacts) Open(_ context.Context, reportID string) (io.ReadCloser, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rows, ok := a.rows[reportID]
	if !ok {
		return nil, uptime.ErrArtifactNotFound
	}
	var buf bytes.Buffer
	for _, row := range rows {
		buf.WriteString(row.StoreID + "\n")
	}
	return io.NopCloser(&buf), nil
}

type stubJobs struct {
	mu   sync.Mutex
	jobs map[string]uptime.Job
}

func newStubJobs() *stubJobs {
	return &stubJobs{jobs: make(map[string]uptime.Job)}
}

func (j *stubJobs) Create(_ context.Context, job *uptime.Job) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jobs[job.ID] = *job
	return nil
}

func (j *stubJobs) Get(_ context.Context, reportID string) (*uptime.Job, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[reportID]
	if !ok {
		return nil, uptime.ErrJobNotFound
	}
	return &job, nil
}

func (j *stubJobs) MarkComplete(_ context.Context, reportID string, at time.Time) (*uptime.Job, error) {
	return j.update(reportID, func(job *uptime.Job) { job.Complete(at) })
}

func (j *stubJobs) MarkRunning(_ context.Context, reportID, lastError string, at time.Time) (*uptime.Job, error) {
	return j.update(reportID, func(job *uptime.Job) { job.Reset(lastError, at) })
}

func (j *stubJobs) update(reportID string, fn func(*uptime.Job)) (*uptime.Job, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[reportID]
	if !ok {
		return nil, uptime.ErrJobNotFound
	}
	fn(&job)
	j.jobs[reportID] = job
	return &job, nil
}

// inlineQueue runs tasks on the caller's goroutine.
type inlineQueue struct {
	err       error
	submitted int
}

func (q *inlineQueue) Submit(task tasks.Task) error {
	if q.err != nil {
		return q.err
	}
	q.submitted++
	task(context.Background())
	return nil
}

// heldQueue keeps tasks until run is called.
type heldQueue struct {
	pending []tasks.Task
}

func (q *heldQueue) Submit(task tasks.Task) error {
	q.pending = append(q.pending, task)
	return nil
}

func (q *heldQueue) run() {
	pending := q.pending
	q.pending = nil
	for _, task := range pending {
		task(context.Background())
	}
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

var errBoom = errors.New("boom")
