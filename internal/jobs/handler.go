package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-core/internal/logger"
	"github.com/dvloznov/statement-core/internal/recurring"
)

// RecurringDetector runs recurring payment detection for one user.
type RecurringDetector interface {
	Detect(ctx context.Context, userID string, lookbackMonths int) (*recurring.Result, error)
}

// NewDetectRecurringHandler returns a handler that runs the detector for
// each DetectRecurringJob and records its counts on the job.
func NewDetectRecurringHandler(detector RecurringDetector) JobHandler {
	return func(ctx context.Context, job Job) error {
		j, ok := job.(*DetectRecurringJob)
		if !ok {
			return fmt.Errorf("DetectRecurringHandler: unexpected job type %s", job.GetType())
		}

		log := logger.FromContext(ctx).With().
			Str("job_id", j.JobID).
			Str("user_id", j.UserID).
			Logger()
		ctx = logger.WithContext(ctx, log)

		res, err := detector.Detect(ctx, j.UserID, j.LookbackMonths)
		if err != nil {
			return fmt.Errorf("DetectRecurringHandler: %w", err)
		}
		j.Added, j.Skipped = res.Added, res.Skipped

		log.Info().Int("added", res.Added).Int("skipped", res.Skipped).Msg("Detection job finished")
		return nil
	}
}
