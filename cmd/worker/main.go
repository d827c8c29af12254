package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-core/internal/app"
	"github.com/dvloznov/statement-core/internal/config"
	"github.com/dvloznov/statement-core/internal/jobs"
	"github.com/dvloznov/statement-core/internal/jobs/inmemory"
	"github.com/dvloznov/statement-core/internal/logger"
	"github.com/dvloznov/statement-core/internal/scheduler"
)

func main() {
	var (
		configPath = flag.String("config", config.DefaultPath, "Path to the YAML configuration file")
		runOnce    = flag.Bool("once", false, "Enqueue detection for every configured user, drain the queue and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(len(cfg.Recurring.Users)+10, jobStore)

	log.Info().Msg("Starting worker service")

	if err := jobQueue.Start(ctx, jobs.NewDetectRecurringHandler(a.Detector)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	sched, err := scheduler.New(ctx, scheduler.Config{
		Schedule:       cfg.Recurring.Schedule,
		TimeZone:       cfg.Recurring.TimeZone,
		Users:          cfg.Recurring.Users,
		LookbackMonths: cfg.Recurring.LookbackMonths,
	}, jobQueue)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}

	if *runOnce {
		sched.EnqueueAll()
		waitForIdle(ctx, jobStore)
	} else {
		sched.Start()
		log.Info().Time("next_run", sched.Next()).Msg("Worker service started, waiting for jobs...")

		// Wait for interrupt signal
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info().Msg("Shutting down worker service...")
		sched.Stop()
	}

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}

// waitForIdle blocks until no job is pending, running or waiting for a retry.
func waitForIdle(ctx context.Context, store jobs.JobStore) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		list, err := store.ListJobs(ctx, jobs.JobFilter{})
		if err != nil {
			return
		}
		busy := false
		for _, j := range list {
			if j.Status != jobs.JobStatusCompleted && j.Status != jobs.JobStatusFailed {
				busy = true
				break
			}
		}
		if !busy {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
