package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dvloznov/statement-core/internal/jobs"
)

var _ jobs.JobStore = (*Store)(nil)

// Store keeps detection job state for the API and worker processes. Callers
// always get copies, so a job handed to a worker can be mutated freely while
// the API reads its last saved state. State is process-local.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*jobs.DetectRecurringJob
}

func NewStore() *Store {
	return &Store{runs: make(map[string]*jobs.DetectRecurringJob)}
}

func (s *Store) SaveJob(ctx context.Context, job *jobs.DetectRecurringJob) error {
	if job.JobID == "" {
		return fmt.Errorf("SaveJob: detection job has no ID")
	}

	snapshot := *job
	s.mu.Lock()
	s.runs[job.JobID] = &snapshot
	s.mu.Unlock()
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.DetectRecurringJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[jobID]
	if !ok {
		return nil, fmt.Errorf("GetJob: %w: %s", jobs.ErrNotFound, jobID)
	}
	snapshot := *run
	return &snapshot, nil
}

// ListJobs returns the matching detection runs, newest first, ties broken by
// job ID so pages are stable.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.DetectRecurringJob, error) {
	s.mu.RLock()
	runs := make([]*jobs.DetectRecurringJob, 0, len(s.runs))
	for _, run := range s.runs {
		if filter.UserID != "" && run.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		snapshot := *run
		runs = append(runs, &snapshot)
	}
	s.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].JobID < runs[j].JobID
	})

	if filter.Offset >= len(runs) {
		return []*jobs.DetectRecurringJob{}, nil
	}
	if filter.Offset > 0 {
		runs = runs[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(runs) {
		runs = runs[:filter.Limit]
	}
	return runs, nil
}

// UpdateJobStatus moves a run to status. An empty errorMsg keeps the last error.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[jobID]
	if !ok {
		return fmt.Errorf("UpdateJobStatus: %w: %s", jobs.ErrNotFound, jobID)
	}
	run.Status = status
	if errorMsg != "" {
		run.Error = errorMsg
	}
	return nil
}
