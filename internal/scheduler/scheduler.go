package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dvloznov/statement-core/internal/jobs"
	"github.com/dvloznov/statement-core/internal/logger"
)

// DefaultSchedule runs detection daily at 03:00.
const DefaultSchedule = "0 3 * * *"

// Config controls periodic recurring payment detection.
type Config struct {
	Schedule       string
	TimeZone       string
	Users          []string
	LookbackMonths int
}

// Scheduler enqueues one detection job per configured user on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	publisher jobs.Publisher
	cfg       Config
	ctx       context.Context
}

// New validates the schedule and registers the detection entry.
// The scheduler does not run until Start is called.
func New(ctx context.Context, cfg Config, publisher jobs.Publisher) (*Scheduler, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}

	log := logger.FromContext(ctx)
	loc := time.UTC
	if cfg.TimeZone != "" {
		l, err := time.LoadLocation(cfg.TimeZone)
		if err != nil {
			log.Warn().Err(err).Str("time_zone", cfg.TimeZone).Msg("Invalid time zone, falling back to UTC")
		} else {
			loc = l
		}
	}

	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		publisher: publisher,
		cfg:       cfg,
		ctx:       ctx,
	}
	if _, err := s.cron.AddFunc(cfg.Schedule, s.EnqueueAll); err != nil {
		return nil, fmt.Errorf("New: invalid schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

// EnqueueAll publishes a detection job for every configured user.
// A failed publish is logged and does not stop the remaining users.
func (s *Scheduler) EnqueueAll() {
	log := logger.FromContext(s.ctx)
	queued := 0
	for _, userID := range s.cfg.Users {
		job := &jobs.DetectRecurringJob{
			UserID:         userID,
			LookbackMonths: s.cfg.LookbackMonths,
			Trigger:        "schedule",
		}
		if err := s.publisher.PublishDetectRecurring(s.ctx, job); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to enqueue scheduled detection")
			continue
		}
		queued++
	}
	log.Info().Int("queued", queued).Int("users", len(s.cfg.Users)).Msg("Scheduled detection enqueued")
}

// Start runs the cron scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	log := logger.FromContext(s.ctx)
	log.Info().
		Str("schedule", s.cfg.Schedule).
		Int("users", len(s.cfg.Users)).
		Msg("Detection scheduler started")
}

// Stop halts the scheduler and waits for a running enqueue to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next returns the next time the detection entry fires.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now())
}
