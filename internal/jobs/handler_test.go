package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-core/internal/recurring"
)

type MockDetector struct {
	DetectFunc func(ctx context.Context, userID string, lookbackMonths int) (*recurring.Result, error)
}

func (m *MockDetector) Detect(ctx context.Context, userID string, lookbackMonths int) (*recurring.Result, error) {
	return m.DetectFunc(ctx, userID, lookbackMonths)
}

type otherJob struct{}

func (otherJob) GetID() string { return "x" }
func (otherJob) GetType() JobType { return "other" }
func (otherJob) GetStatus() JobStatus { return JobStatusPending }

func TestDetectRecurringHandler_RecordsCounts(t *testing.T) {
	var gotUser string
	var gotLookback int
	handler := NewDetectRecurringHandler(&MockDetector{
		DetectFunc: func(ctx context.Context, userID string, lookbackMonths int) (*recurring.Result, error) {
			gotUser, gotLookback = userID, lookbackMonths
			return &recurring.Result{Added: 2, Skipped: 1}, nil
		},
	})

	job := &DetectRecurringJob{JobID: "j1", UserID: "user-1", LookbackMonths: 6}
	require.NoError(t, handler(context.Background(), job))

	assert.Equal(t, "user-1", gotUser)
	assert.Equal(t, 6, gotLookback)
	assert.Equal(t, 2, job.Added)
	assert.Equal(t, 1, job.Skipped)
}

func TestDetectRecurringHandler_DetectorFailure(t *testing.T) {
	boom := errors.New("list failed")
	handler := NewDetectRecurringHandler(&MockDetector{
		DetectFunc: func(ctx context.Context, userID string, lookbackMonths int) (*recurring.Result, error) {
			return nil, boom
		},
	})

	err := handler(context.Background(), &DetectRecurringJob{JobID: "j1", UserID: "user-1"})
	assert.ErrorIs(t, err, boom)
}

func TestDetectRecurringHandler_RejectsOtherJobTypes(t *testing.T) {
	handler := NewDetectRecurringHandler(&MockDetector{})
	err := handler(context.Background(), otherJob{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected job type other")
}
