package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	uptime "store-monitor/internal/uptime/domain"
)

// JobRepository persists report jobs in report_status.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository constructs a JobRepository.
func NewJobRepository(db *sql.DB) (*JobRepository, error) {
	if db == nil {
		return nil, errors.New("job repo: nil db")
	}
	return &JobRepository{db: db}, nil
}

// Create inserts the job, replacing a row with the same id.
func (r *JobRepository) Create(ctx context.Context, job *uptime.Job) error {
	if r == nil || r.db == nil {
		return errors.New("job repo: nil db")
	}
	if job == nil || job.ID == "" {
		return errors.New("job repo: empty job")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO report_status (report_id, status, attempts, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (report_id)
DO UPDATE SET status = EXCLUDED.status, attempts = EXCLUDED.attempts,
	last_error = EXCLUDED.last_error, updated_at = EXCLUDED.updated_at`,
		job.ID, string(job.Status), job.Attempts, job.LastError, job.CreatedAt.UTC(), job.UpdatedAt.UTC())
	return err
}

// Get loads a job by report id.
func (r *JobRepository) Get(ctx context.Context, reportID string) (*uptime.Job, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("job repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT report_id, status, attempts, last_error, created_at, updated_at
FROM report_status
WHERE report_id = $1`, reportID)
	return scanJob(row)
}

// MarkComplete records a successful attempt.
func (r *JobRepository) MarkComplete(ctx context.Context, reportID string, at time.Time) (*uptime.Job, error) {
	return r.finish(ctx, reportID, uptime.JobComplete, "", at)
}

// MarkRunning records a failed attempt and keeps the job retryable.
func (r *JobRepository) MarkRunning(ctx context.Context, reportID, lastError string, at time.Time) (*uptime.Job, error) {
	return r.finish(ctx, reportID, uptime.JobRunning, lastError, at)
}

func (r *JobRepository) finish(ctx context.Context, reportID string, status uptime.JobStatus, lastError string, at time.Time) (*uptime.Job, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("job repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
UPDATE report_status
SET status = $2, attempts = attempts + 1, last_error = $3, updated_at = $4
WHERE report_id = $1
RETURNING report_id, status, attempts, last_error, created_at, updated_at`,
		reportID, string(status), lastError, at.UTC())
	return scanJob(row)
}

// CountRunning returns the number of Running jobs.
func (r *JobRepository) CountRunning(ctx context.Context) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("job repo: nil db")
	}
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM report_status WHERE status = 'Running'`).Scan(&count)
	return count, err
}

func scanJob(row *sql.Row) (*uptime.Job, error) {
	var (
		job    uptime.Job
		status string
	)
	if err := row.Scan(&job.ID, &status, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, uptime.ErrJobNotFound
		}
		return nil, err
	}
	job.Status = uptime.JobStatus(status)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}
