package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dvloznov/statement-core/internal/archive"
	"github.com/dvloznov/statement-core/internal/config"
	infraBQ "github.com/dvloznov/statement-core/internal/infra/bigquery"
	"github.com/dvloznov/statement-core/internal/infra/postgres"
	"github.com/dvloznov/statement-core/internal/infra/sqlite"
	"github.com/dvloznov/statement-core/internal/logger"
	"github.com/dvloznov/statement-core/internal/pipeline"
	"github.com/dvloznov/statement-core/internal/recurring"
	"github.com/dvloznov/statement-core/internal/statement"
	"github.com/dvloznov/statement-core/internal/store"
	"github.com/dvloznov/statement-core/internal/store/memory"
	"github.com/dvloznov/statement-core/internal/vision"
)

// App holds the collaborators shared by the API, worker and CLI binaries.
type App struct {
	Config   *config.Config
	Store    store.Store
	Archiver archive.Archiver
	Ingestor *pipeline.Ingestor
	Detector *recurring.Detector

	closers []io.Closer
}

// New opens the configured store, archiver and vision model and wires the
// ingestion pipeline and detector over them.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.FromContext(ctx)

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Store: st, closers: []io.Closer{st}}

	a.Archiver, err = OpenArchiver(ctx, cfg.Archive)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := a.Archiver.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	var images pipeline.ImageParser
	if cfg.Vision.Enabled {
		gen, err := vision.NewGeminiGenerator(ctx, cfg.Vision.Model)
		if err != nil {
			a.Close()
			return nil, err
		}
		images = vision.NewParser(gen)
	} else {
		log.Info().Msg("Vision model disabled, image statements will be rejected")
	}

	a.Ingestor = pipeline.NewIngestor(pipeline.Options{
		Archiver:      a.Archiver,
		ArchivePrefix: cfg.Archive.Prefix,
		Text:          statement.PDFToText{},
		Images:        images,
		Merchants:     st,
		Transactions:  st,
	})
	a.Detector = recurring.NewDetector(st, st)

	log.Info().
		Str("store", cfg.Store.Backend).
		Bool("archive", a.Archiver != nil).
		Bool("vision", images != nil).
		Msg("Application initialized")
	return a, nil
}

// Close releases every opened backend.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenStore opens the configured persistence backend. SQLite and PostgreSQL
// schemas are created if missing; BigQuery tables are created by Migrate.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.Init(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case config.BackendPostgres:
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Init(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case config.BackendBigQuery:
		return infraBQ.NewStore(ctx, cfg.BQProject, cfg.BQDataset)
	}
	return nil, fmt.Errorf("OpenStore: unknown store backend %q", cfg.Backend)
}

// Migrate brings the store schema up to date and returns the number of
// migrations applied. Only BigQuery tracks individual migrations.
func Migrate(ctx context.Context, st store.Store, appliedBy string) (int, error) {
	type initializer interface {
		Init(ctx context.Context) error
	}

	switch s := st.(type) {
	case *infraBQ.Store:
		return s.Migrate(ctx, appliedBy)
	case initializer:
		if err := s.Init(ctx); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return 0, nil
}

// OpenArchiver returns the configured archiver, or nil when archiving is off.
func OpenArchiver(ctx context.Context, cfg config.ArchiveConfig) (archive.Archiver, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case config.ArchiveGCS:
		return archive.NewGCSArchiver(ctx, cfg.Bucket)
	case config.ArchiveS3:
		return archive.NewS3Archiver(ctx, cfg.Bucket, cfg.Region)
	}
	return nil, fmt.Errorf("OpenArchiver: unknown archive backend %q", cfg.Backend)
}
