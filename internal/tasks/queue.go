package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"store-monitor/internal/observability/metrics"
)

// Task is a unit of background work with no return channel.
type Task func(ctx context.Context)

var (
	// ErrQueueClosed is returned when submitting to a closed queue.
	ErrQueueClosed = errors.New("tasks: queue closed")
	// ErrQueueFull is returned when the buffer has no room.
	ErrQueueFull = errors.New("tasks: queue full")
	// ErrNilTask is returned when a nil task is submitted.
	ErrNilTask = errors.New("tasks: nil task")
)

// Queue runs submitted tasks on a fixed pool of workers.
type Queue struct {
	ctx    context.Context
	cancel context.CancelFunc
	ch     chan Task
	wg     sync.WaitGroup
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewQueue starts workers goroutines reading from a buffer of size capacity.
func NewQueue(workers, capacity int, logger *zap.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if capacity < 0 {
		capacity = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		ctx:    ctx,
		cancel: cancel,
		ch:     make(chan Task, capacity),
		logger: logger,
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.work(i)
	}
	return q
}

// Submit enqueues task without blocking.
func (q *Queue) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- task:
		metrics.SetQueueDepth(len(q.ch))
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting tasks and waits for queued work to drain or ctx to end.
// Tasks still running when ctx ends see their context cancelled.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		<-done
		return ctx.Err()
	}
}

func (q *Queue) work(id int) {
	defer q.wg.Done()
	for task := range q.ch {
		metrics.SetQueueDepth(len(q.ch))
		q.run(id, task)
	}
}

func (q *Queue) run(id int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			q.logger.Error("task panicked", zap.Int("worker", id), zap.String("panic", fmt.Sprint(rec)))
		}
	}()
	task(q.ctx)
}
