package pipeline

import (
	"context"

	"github.com/dvloznov/statement-core/internal/archive"
	"github.com/dvloznov/statement-core/internal/logger"
	"github.com/dvloznov/statement-core/internal/statement"
	"github.com/dvloznov/statement-core/internal/store"
)

// Options wires the collaborators of an Ingestor. Archiver, Images and
// Merchants are optional.
type Options struct {
	Archiver      archive.Archiver
	ArchivePrefix string
	Text          statement.TextExtractor
	Images        ImageParser
	Merchants     store.MerchantStore
	Transactions  store.TransactionStore
}

// Ingestor runs statement uploads through the ingestion pipeline.
type Ingestor struct {
	opts    Options
	gateway *store.Gateway
}

// NewIngestor creates an ingestor over the given collaborators.
func NewIngestor(opts Options) *Ingestor {
	in := &Ingestor{opts: opts}
	if opts.Transactions != nil {
		in.gateway = store.NewGateway(opts.Transactions)
	}
	return in
}

// NewStatementIngestionPipeline creates the standard 9-step pipeline.
// With persist false the archive, persist and merchant cache steps are left out.
func (in *Ingestor) NewStatementIngestionPipeline(persist bool) *Pipeline {
	archiveStep := &ArchiveStep{}
	persistStep := &PersistStep{}
	cacheStep := &CacheMerchantsStep{}
	if persist {
		archiveStep = &ArchiveStep{Archiver: in.opts.Archiver, Prefix: in.opts.ArchivePrefix}
		persistStep = &PersistStep{Gateway: in.gateway}
		cacheStep = &CacheMerchantsStep{Merchants: in.opts.Merchants}
	}
	return NewPipeline(
		&DetectFormatStep{},
		archiveStep,
		&LoadStep{Text: in.opts.Text},
		&IdentifyStep{},
		&ExtractStep{Images: in.opts.Images},
		&VerifyNotEmptyStep{},
		&ResolveMerchantsStep{Merchants: in.opts.Merchants},
		persistStep,
		cacheStep,
	)
}

// Ingest extracts the statement and persists its transactions for the user.
// Nothing is persisted unless extraction of the whole statement succeeds.
func (in *Ingestor) Ingest(ctx context.Context, userID string, req Request) (*PipelineState, error) {
	return in.run(ctx, userID, req, true)
}

// Preview extracts the statement without archiving or persisting anything.
func (in *Ingestor) Preview(ctx context.Context, userID string, req Request) (*PipelineState, error) {
	return in.run(ctx, userID, req, false)
}

func (in *Ingestor) run(ctx context.Context, userID string, req Request, persist bool) (*PipelineState, error) {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"user_id":   userID,
		"file_name": req.FileName,
	})
	ctx = logger.WithContext(ctx, log)

	state := &PipelineState{UserID: userID, Request: req}
	if err := in.NewStatementIngestionPipeline(persist).Execute(ctx, state); err != nil {
		log.Error().Err(err).Msg("Statement ingestion failed")
		return state, err
	}

	log.Info().
		Str("bank", string(state.Bank)).
		Int("transactions", len(state.Statement.Transactions)).
		Int("inserted", state.Result.Inserted).
		Int("skipped", state.Result.Skipped).
		Int("failed", state.Result.Failed).
		Msg("Statement ingested")
	return state, nil
}
