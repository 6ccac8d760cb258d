package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	uptime "store-monitor/internal/uptime/domain"
)

// JobRepository keeps report jobs in process memory.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]uptime.Job
}

// NewJobRepository constructs an empty repository.
func NewJobRepository() *JobRepository {
	return &JobRepository{jobs: make(map[string]uptime.Job)}
}

// Create stores a new job, replacing any job with the same id.
func (r *JobRepository) Create(ctx context.Context, job *uptime.Job) error {
	_ = ctx
	if job == nil || job.ID == "" {
		return errors.New("memory job repo: empty job")
	}
	r.mu.Lock()
	r.jobs[job.ID] = *job
	r.mu.Unlock()
	return nil
}

// Get returns a copy of the job.
func (r *JobRepository) Get(ctx context.Context, reportID string) (*uptime.Job, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[reportID]
	if !ok {
		return nil, uptime.ErrJobNotFound
	}
	return &job, nil
}

// MarkComplete records a successful attempt.
func (r *JobRepository) MarkComplete(ctx context.Context, reportID string, at time.Time) (*uptime.Job, error) {
	_ = ctx
	return r.update(reportID, func(job *uptime.Job) { job.Complete(at) })
}

// MarkRunning records a failed attempt and keeps the job retryable.
func (r *JobRepository) MarkRunning(ctx context.Context, reportID, lastError string, at time.Time) (*uptime.Job, error) {
	_ = ctx
	return r.update(reportID, func(job *uptime.Job) { job.Reset(lastError, at) })
}

// CountRunning returns the number of Running jobs.
func (r *JobRepository) CountRunning(ctx context.Context) (int64, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, job := range r.jobs {
		if job.Status == uptime.JobRunning {
			n++
		}
	}
	return n, nil
}

func (r *JobRepository) update(reportID string, fn func(*uptime.Job)) (*uptime.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[reportID]
	if !ok {
		return nil, uptime.ErrJobNotFound
	}
	fn(&job)
	r.jobs[reportID] = job
	return &job, nil
}
