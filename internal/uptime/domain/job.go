package uptime

import "time"

// JobStatus is the two-state lifecycle of a report job.
// Running -> Complete on success; Running -> Running on failure.
type JobStatus string

const (
	JobRunning  JobStatus = "Running"
	JobComplete JobStatus = "Complete"
)

// IsValid reports whether s is a known status.
func (s JobStatus) IsValid() bool {
	return s == JobRunning || s == JobComplete
}

// Job is the status record of one report run.
type Job struct {
	ID        string
	Status    JobStatus
	Attempts  int
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a job in Running state.
func NewJob(id string, now time.Time) *Job {
	now = now.UTC()
	return &Job{ID: id, Status: JobRunning, CreatedAt: now, UpdatedAt: now}
}

// Complete marks a successful attempt.
func (j *Job) Complete(now time.Time) {
	j.Status = JobComplete
	j.Attempts++
	j.LastError = ""
	j.UpdatedAt = now.UTC()
}

// Reset records a failed attempt and leaves the job retryable.
func (j *Job) Reset(errMsg string, now time.Time) {
	j.Status = JobRunning
	j.Attempts++
	j.LastError = errMsg
	j.UpdatedAt = now.UTC()
}
