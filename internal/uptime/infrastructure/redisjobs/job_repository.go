package redisjobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	uptime "store-monitor/internal/uptime/domain"
)

const (
	keyPrefix  = "report_status:"
	runningKey = "report_status:running"
)

// finishScript updates an existing job hash and the Running index atomically.
// It returns 0 when the job does not exist.
var finishScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[1], 'last_error', ARGV[2], 'updated_at', ARGV[3])
redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if ARGV[1] == 'Running' then
	redis.call('SADD', KEYS[2], ARGV[4])
else
	redis.call('SREM', KEYS[2], ARGV[4])
end
return 1
`)

// JobRepository stores report jobs as Redis hashes keyed report_status:<id>.
type JobRepository struct {
	client *redis.Client
}

// NewJobRepository parses url and verifies the connection.
func NewJobRepository(ctx context.Context, url string) (*JobRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis job repo: parse url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis job repo: ping: %w", err)
	}
	return &JobRepository{client: client}, nil
}

// NewJobRepositoryFromClient wraps an existing client.
func NewJobRepositoryFromClient(client *redis.Client) (*JobRepository, error) {
	if client == nil {
		return nil, errors.New("redis job repo: nil client")
	}
	return &JobRepository{client: client}, nil
}

// Create writes the job hash, replacing any previous value.
func (r *JobRepository) Create(ctx context.Context, job *uptime.Job) error {
	if job == nil || job.ID == "" {
		return errors.New("redis job repo: empty job")
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keyPrefix+job.ID)
		pipe.HSet(ctx, keyPrefix+job.ID,
			"status", string(job.Status),
			"attempts", job.Attempts,
			"last_error", job.LastError,
			"created_at", job.CreatedAt.UTC().Format(time.RFC3339Nano),
			"updated_at", job.UpdatedAt.UTC().Format(time.RFC3339Nano),
		)
		if job.Status == uptime.JobRunning {
			pipe.SAdd(ctx, runningKey, job.ID)
		} else {
			pipe.SRem(ctx, runningKey, job.ID)
		}
		return nil
	})
	return err
}

// Get loads a job by report id.
func (r *JobRepository) Get(ctx context.Context, reportID string) (*uptime.Job, error) {
	fields, err := r.client.HGetAll(ctx, keyPrefix+reportID).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, uptime.ErrJobNotFound
	}
	return decodeJob(reportID, fields)
}

// MarkComplete records a successful attempt.
func (r *JobRepository) MarkComplete(ctx context.Context, reportID string, at time.Time) (*uptime.Job, error) {
	return r.finish(ctx, reportID, uptime.JobComplete, "", at)
}

// MarkRunning records a failed attempt and keeps the job retryable.
func (r *JobRepository) MarkRunning(ctx context.Context, reportID, lastError string, at time.Time) (*uptime.Job, error) {
	return r.finish(ctx, reportID, uptime.JobRunning, lastError, at)
}

// CountRunning returns the size of the Running index.
func (r *JobRepository) CountRunning(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, runningKey).Result()
}

// Close releases the client.
func (r *JobRepository) Close() error {
	return r.client.Close()
}

func (r *JobRepository) finish(ctx context.Context, reportID string, status uptime.JobStatus, lastError string, at time.Time) (*uptime.Job, error) {
	ok, err := finishScript.Run(ctx, r.client,
		[]string{keyPrefix + reportID, runningKey},
		string(status), lastError, at.UTC().Format(time.RFC3339Nano), reportID,
	).Int()
	if err != nil {
		return nil, err
	}
	if ok == 0 {
		return nil, uptime.ErrJobNotFound
	}
	return r.Get(ctx, reportID)
}

func decodeJob(reportID string, fields map[string]string) (*uptime.Job, error) {
	job := &uptime.Job{
		ID:        reportID,
		Status:    uptime.JobStatus(fields["status"]),
		LastError: fields["last_error"],
	}
	if !job.Status.IsValid() {
		return nil, fmt.Errorf("redis job repo: %s: bad status %q", reportID, fields["status"])
	}
	var err error
	if raw := fields["attempts"]; raw != "" {
		if job.Attempts, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("redis job repo: %s: attempts: %w", reportID, err)
		}
	}
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("redis job repo: %s: created_at: %w", reportID, err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("redis job repo: %s: updated_at: %w", reportID, err)
	}
	return job, nil
}
