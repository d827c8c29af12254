package inmemory

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-core/internal/jobs"
	"github.com/dvloznov/statement-core/internal/logger"
)

func newTestQueue(t *testing.T, store jobs.JobStore) *Queue {
	t.Helper()
	q := NewQueue(10, store).WithWorkers(2)
	q.backoff = func(int) time.Duration { return time.Millisecond }
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func waitForStatus(t *testing.T, store jobs.JobStore, jobID string, status jobs.JobStatus) *jobs.DetectRecurringJob {
	t.Helper()
	var job *jobs.DetectRecurringJob
	require.Eventually(t, func() bool {
		got, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		job = got
		return got.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestQueue_CompletesJob(t *testing.T) {
	store := NewStore()
	q := newTestQueue(t, store)
	ctx := context.Background()

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		job.(*jobs.DetectRecurringJob).Added = 3
		return nil
	}))

	job := &jobs.DetectRecurringJob{UserID: "user-1"}
	require.NoError(t, q.PublishDetectRecurring(ctx, job))
	require.NotEmpty(t, job.JobID)
	assert.Equal(t, DefaultMaxRetries, job.MaxRetries)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 3, done.Added)
	assert.NotNil(t, done.StartedAt)
	assert.NotNil(t, done.CompletedAt)
	assert.Empty(t, done.Error)
}

func TestQueue_RetriesThenFails(t *testing.T) {
	store := NewStore()
	q := newTestQueue(t, store)
	ctx := context.Background()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		calls.Add(1)
		return errors.New("store unavailable")
	}))

	job := &jobs.DetectRecurringJob{UserID: "user-1", MaxRetries: 2}
	require.NoError(t, q.PublishDetectRecurring(ctx, job))

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, failed.RetryCount)
	assert.Equal(t, "store unavailable", failed.Error)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQueue_RetrySucceeds(t *testing.T) {
	store := NewStore()
	q := newTestQueue(t, store)
	ctx := context.Background()

	var calls atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if calls.Add(1) == 1 {
			return errors.New("transient")
		}
		return nil
	}))

	job := &jobs.DetectRecurringJob{UserID: "user-1"}
	require.NoError(t, q.PublishDetectRecurring(ctx, job))

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 1, done.RetryCount)
	assert.Empty(t, done.Error)
}

func TestQueue_Closed(t *testing.T) {
	q := NewQueue(1, nil)
	require.NoError(t, q.Close())
	require.NoError(t, q.Close(), "closing twice is a no-op")

	err := q.PublishDetectRecurring(context.Background(), &jobs.DetectRecurringJob{UserID: "user-1"})
	assert.ErrorIs(t, err, ErrQueueClosed)

	err = q.Start(context.Background(), func(context.Context, jobs.Job) error { return nil })
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_PublishRespectsContext(t *testing.T) {
	q := NewQueue(0, nil)
	t.Cleanup(func() { _ = q.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := q.PublishDetectRecurring(ctx, &jobs.DetectRecurringJob{UserID: "user-1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// MockJobStore wraps a Store and lets tests fail individual saves.
type MockJobStore struct {
	*Store
	SaveJobFunc func(ctx context.Context, job *jobs.DetectRecurringJob) error
}

func (m *MockJobStore) SaveJob(ctx context.Context, job *jobs.DetectRecurringJob) error {
	return m.SaveJobFunc(ctx, job)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestQueue_LogsFailedStateSaves(t *testing.T) {
	var logs syncBuffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&logs))

	inner := NewStore()
	store := &MockJobStore{
		Store: inner,
		SaveJobFunc: func(ctx context.Context, job *jobs.DetectRecurringJob) error {
			if job.Status == jobs.JobStatusRunning {
				return errors.New("disk full")
			}
			return inner.SaveJob(ctx, job)
		},
	}
	q := newTestQueue(t, store)

	require.NoError(t, q.Start(ctx, func(ctx context.Context, job jobs.Job) error { return nil }))
	job := &jobs.DetectRecurringJob{UserID: "user-1"}
	require.NoError(t, q.PublishDetectRecurring(ctx, job))

	waitForStatus(t, inner, job.JobID, jobs.JobStatusCompleted)
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Failed to save job state")
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, logs.String(), "disk full")
	assert.Contains(t, logs.String(), job.JobID)
}
