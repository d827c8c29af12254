package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-core/internal/jobs"
	"github.com/dvloznov/statement-core/internal/logger"
)

var ErrQueueClosed = errors.New("queue is closed")

const (
	DefaultWorkers    = 5
	DefaultMaxRetries = 3
)

var (
	_ jobs.Publisher = (*Queue)(nil)
	_ jobs.Consumer  = (*Queue)(nil)
)

// Queue hands detection runs to a fixed pool of workers over a buffered
// channel. A failed run is requeued after a linear backoff until it has
// used MaxRetries retries. Runs queued at shutdown are dropped; detection
// is idempotent, so the next scheduled run covers them.
type Queue struct {
	jobChan   chan *jobs.DetectRecurringJob
	closeChan chan struct{}
	wg        sync.WaitGroup
	mu        sync.RWMutex
	store     jobs.JobStore
	closed    bool
	workers   int
	backoff   func(retry int) time.Duration
}

// NewQueue returns a queue holding up to bufferSize runs before publishers block.
func NewQueue(bufferSize int, store jobs.JobStore) *Queue {
	return &Queue{
		jobChan:   make(chan *jobs.DetectRecurringJob, bufferSize),
		closeChan: make(chan struct{}),
		store:     store,
		workers:   DefaultWorkers,
		backoff: func(retry int) time.Duration {
			return time.Duration(retry) * time.Second
		},
	}
}

// WithWorkers sets the pool size used by Start; n <= 0 is ignored.
func (q *Queue) WithWorkers(n int) *Queue {
	if n > 0 {
		q.workers = n
	}
	return q
}

// PublishDetectRecurring fills in ID, status, creation time and retry budget,
// records the run and queues it. It blocks while the buffer is full.
func (q *Queue) PublishDetectRecurring(ctx context.Context, job *jobs.DetectRecurringJob) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return ErrQueueClosed
	}

	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}

	if job.Status == "" {
		job.Status = jobs.JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = DefaultMaxRetries
	}

	if q.store != nil {
		if err := q.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("PublishDetectRecurring: recording job: %w", err)
		}
	}

	select {
	case q.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.closeChan:
		return ErrQueueClosed
	}
}

// Start launches the worker pool. Workers exit when ctx is done or the queue stops.
func (q *Queue) Start(ctx context.Context, handler jobs.JobHandler) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler)
	}

	return nil
}

func (q *Queue) worker(ctx context.Context, handler jobs.JobHandler) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closeChan:
			return
		case job := <-q.jobChan:
			if job == nil {
				return
			}

			q.processJob(ctx, job, handler)
		}
	}
}

// processJob runs the handler once and records the outcome: completed,
// failed once retries are used up, or retrying with a delayed requeue.
func (q *Queue) processJob(ctx context.Context, job *jobs.DetectRecurringJob, handler jobs.JobHandler) {
	job.Status = jobs.JobStatusRunning
	now := time.Now()
	job.StartedAt = &now

	q.save(ctx, job)

	err := handler(ctx, job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	if err == nil {
		job.Status = jobs.JobStatusCompleted
		job.Error = ""
		q.save(ctx, job)
		return
	}

	job.Error = err.Error()
	if job.RetryCount >= job.MaxRetries {
		job.Status = jobs.JobStatusFailed
		q.save(ctx, job)
		return
	}

	job.RetryCount++
	job.Status = jobs.JobStatusRetrying
	q.save(ctx, job)

	retry := *job
	time.AfterFunc(q.backoff(retry.RetryCount), func() {
		retry.Status = jobs.JobStatusPending
		retry.StartedAt = nil
		retry.CompletedAt = nil
		_ = q.PublishDetectRecurring(ctx, &retry)
	})
}

// save records the job state. A failed save is logged and the job carries on.
func (q *Queue) save(ctx context.Context, job *jobs.DetectRecurringJob) {
	if q.store == nil {
		return
	}
	if err := q.store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).
			Str("job_id", job.JobID).
			Str("status", string(job.Status)).
			Msg("Failed to save job state")
	}
}

// Stop closes the queue and waits for running handlers, bounded by ctx.
// Stopping twice is a no-op.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.closeChan)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the queue without a deadline.
func (q *Queue) Close() error {
	return q.Stop(context.Background())
}
