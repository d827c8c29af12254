package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-core/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	job := &jobs.DetectRecurringJob{JobID: "j1", UserID: "user-1", Status: jobs.JobStatusPending}
	require.NoError(t, s.SaveJob(ctx, job))

	job.Status = jobs.JobStatusRunning
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusPending, got.Status, "store keeps its own copy")

	_, err = s.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, jobs.ErrNotFound)

	assert.Error(t, s.SaveJob(ctx, &jobs.DetectRecurringJob{}))
}

func TestStore_ListJobs(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)

	for i, j := range []*jobs.DetectRecurringJob{
		{JobID: "a", UserID: "user-1", Status: jobs.JobStatusCompleted},
		{JobID: "b", UserID: "user-2", Status: jobs.JobStatusCompleted},
		{JobID: "c", UserID: "user-1", Status: jobs.JobStatusFailed},
		{JobID: "d", UserID: "user-1", Status: jobs.JobStatusCompleted},
	} {
		j.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.SaveJob(ctx, j))
	}

	ids := func(list []*jobs.DetectRecurringJob) []string {
		var out []string
		for _, j := range list {
			out = append(out, j.JobID)
		}
		return out
	}

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, ids(all))

	mine, err := s.ListJobs(ctx, jobs.JobFilter{UserID: "user-1", Status: jobs.JobStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "a"}, ids(mine))

	page, err := s.ListJobs(ctx, jobs.JobFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(page))

	empty, err := s.ListJobs(ctx, jobs.JobFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_UpdateJobStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.SaveJob(ctx, &jobs.DetectRecurringJob{JobID: "j1"}))

	require.NoError(t, s.UpdateJobStatus(ctx, "j1", jobs.JobStatusFailed, "boom"))
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)

	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""), jobs.ErrNotFound)
}
