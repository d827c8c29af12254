package jobs

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("job not found")

type JobType string

const JobTypeDetectRecurring JobType = "detect_recurring"

// JobStatus is where a detection run is in its life cycle:
// pending -> running -> completed | retrying -> pending ... -> failed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// DetectRecurringJob is one background run of recurring payment detection
// over a single user's transactions. A zero LookbackMonths selects the
// detector default. Trigger is "api" or "schedule". Added and Skipped hold
// the detector's counts once the run completes.
type DetectRecurringJob struct {
	JobID          string `json:"job_id"`
	UserID         string `json:"user_id"`
	LookbackMonths int    `json:"lookback_months"`
	Trigger        string `json:"trigger,omitempty"`

	Status  JobStatus `json:"status"`
	Added   int       `json:"added"`
	Skipped int       `json:"skipped"`
	Error   string    `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is what a JobHandler receives.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *DetectRecurringJob) GetID() string { return j.JobID }

func (j *DetectRecurringJob) GetType() JobType { return JobTypeDetectRecurring }

func (j *DetectRecurringJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues detection runs; the API and the scheduler hold one.
type Publisher interface {
	PublishDetectRecurring(ctx context.Context, job *DetectRecurringJob) error
	Close() error
}

// Consumer runs queued detection runs through a handler until stopped.
// Stop waits for in-flight runs or for ctx, whichever comes first.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobHandler executes one run. A returned error marks the run for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore records the state of detection runs so clients can poll them.
// GetJob and UpdateJobStatus return ErrNotFound for unknown IDs; ListJobs
// returns newest first.
type JobStore interface {
	SaveJob(ctx context.Context, job *DetectRecurringJob) error
	GetJob(ctx context.Context, jobID string) (*DetectRecurringJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*DetectRecurringJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs. Zero values match everything; a zero Limit
// returns all remaining runs after Offset.
type JobFilter struct {
	UserID string
	Status JobStatus
	Limit  int
	Offset int
}
