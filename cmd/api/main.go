package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/statement-core/internal/api"
	"github.com/dvloznov/statement-core/internal/api/handlers"
	"github.com/dvloznov/statement-core/internal/app"
	"github.com/dvloznov/statement-core/internal/config"
	"github.com/dvloznov/statement-core/internal/jobs"
	"github.com/dvloznov/statement-core/internal/jobs/inmemory"
	"github.com/dvloznov/statement-core/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", config.DefaultPath, "Path to the YAML configuration file")
		port       = flag.String("port", "", "HTTP server port (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := logger.New()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	// Initialize logger
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format)
	ctx := logger.WithContext(context.Background(), log)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	// Start worker in background to process detection jobs
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Msg("Starting job worker")
	if err := jobQueue.Start(workerCtx, jobs.NewDetectRecurringHandler(a.Detector)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job worker")
	}

	router := api.NewRouter(api.Handlers{
		Statements: handlers.NewStatementsHandler(a.Ingestor, cfg.Server.MaxUploadMB<<20),
		Recurring:  handlers.NewRecurringHandler(a.Detector, a.Store, jobQueue),
		Merchants:  handlers.NewMerchantsHandler(a.Store),
		Jobs:       handlers.NewJobsHandler(jobStore),
	}, cfg.Server.DefaultUser, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("store", cfg.Store.Backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
