package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-core/internal/archive"
	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/logger"
	"github.com/dvloznov/statement-core/internal/merchant"
	"github.com/dvloznov/statement-core/internal/statement"
	"github.com/dvloznov/statement-core/internal/store"
)

// PipelineStep represents a single step in the ingestion pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// Request is one uploaded statement file.
type Request struct {
	Content  []byte
	FileName string
	FileType string
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	UserID  string
	Request Request

	Format     statement.Format
	ArchiveURI string
	Text       string
	Rows       [][]string

	Bank        domain.Bank
	AccountType domain.AccountType
	Statement   *domain.Statement

	Result store.PersistResult

	// NewMerchants are mapping rows for debits no known merchant matched.
	NewMerchants []*domain.MerchantRecord
}

// ImageParser reads a statement image with the vision model.
type ImageParser interface {
	ParseImage(ctx context.Context, mimeType string, image []byte) (*domain.Statement, error)
}

// Step 1: DetectFormatStep maps the declared mime type or extension onto a format.
type DetectFormatStep struct{}

func (s *DetectFormatStep) Execute(ctx context.Context, state *PipelineState) error {
	format, err := statement.DetectFormat(state.Request.FileType, state.Request.FileName)
	if err != nil {
		return err
	}
	state.Format = format
	log := logger.FromContext(ctx)
	log.Debug().
		Str("file_name", state.Request.FileName).
		Str("format", string(format)).
		Msg("Detected statement format")
	return nil
}

// Step 2: ArchiveStep stores the raw upload verbatim.
// A failed upload is logged and ingestion continues.
type ArchiveStep struct {
	Archiver archive.Archiver
	Prefix   string
	now      func() time.Time
}

func (s *ArchiveStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archiver == nil {
		return nil
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}

	key := archive.ObjectKey(s.Prefix, state.UserID, state.Request.FileName, uuid.NewString(), now())
	uri, err := s.Archiver.Archive(ctx, key, state.Request.FileType, state.Request.Content)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).
			Str("user_id", state.UserID).
			Str("key", key).
			Msg("Failed to archive raw statement")
		return nil
	}
	state.ArchiveURI = uri
	return nil
}

// Step 3: LoadStep turns the raw upload into text lines or tabular rows.
// PDFs whose text layer is too short are rejected as scanned documents.
type LoadStep struct {
	Text statement.TextExtractor
}

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	content := state.Request.Content

	switch state.Format {
	case statement.FormatPDF:
		if s.Text == nil {
			return fmt.Errorf("LoadStep: no PDF text extractor configured")
		}
		text, err := s.Text.ExtractText(ctx, content)
		if err != nil {
			return fmt.Errorf("LoadStep: extracting PDF text: %w", err)
		}
		if err := statement.CheckScanned(text); err != nil {
			return err
		}
		state.Text = text
	case statement.FormatText:
		state.Text = string(content)
	case statement.FormatCSV:
		state.Rows = statement.SplitCSV(string(content))
	case statement.FormatXLSX:
		rows, err := statement.ReadXLSXRows(content)
		if err != nil {
			return fmt.Errorf("LoadStep: reading xlsx: %w", err)
		}
		state.Rows = rows
	case statement.FormatXLS:
		rows, err := statement.ReadXLSRows(content)
		if err != nil {
			return fmt.Errorf("LoadStep: reading xls: %w", err)
		}
		state.Rows = rows
	}
	return nil
}

// Step 4: IdentifyStep classifies bank and account type from the file name
// and the loaded content. Images are identified by the vision model instead.
type IdentifyStep struct{}

func (s *IdentifyStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Format == statement.FormatImage {
		return nil
	}
	content := state.Text
	if state.Rows != nil {
		lines := make([]string, 0, len(state.Rows))
		for _, row := range state.Rows {
			lines = append(lines, strings.Join(row, " "))
		}
		content = strings.Join(lines, "\n")
	}
	state.Bank, state.AccountType = statement.Identify(state.Request.FileName, content)

	log := logger.FromContext(ctx)
	log.Info().
		Str("file_name", state.Request.FileName).
		Str("bank", string(state.Bank)).
		Str("account_type", string(state.AccountType)).
		Msg("Identified statement")
	return nil
}

// Step 5: ExtractStep dispatches to the extractor for the format.
type ExtractStep struct {
	Images ImageParser
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	var (
		st  *domain.Statement
		err error
	)
	switch state.Format {
	case statement.FormatCSV, statement.FormatXLSX, statement.FormatXLS:
		st, err = statement.ExtractRows(state.Rows, state.Bank)
	case statement.FormatPDF, statement.FormatText:
		st = statement.ExtractText(state.Text, state.Bank)
	case statement.FormatImage:
		if s.Images == nil {
			return fmt.Errorf("ExtractStep: image statements need the vision model, which is not configured")
		}
		mime := statement.ImageMIMEType(state.Request.FileType, state.Request.FileName)
		st, err = s.Images.ParseImage(ctx, mime, state.Request.Content)
		if err == nil {
			state.Bank = st.Account.Bank
			state.AccountType = domain.CheckingAccount
		}
	default:
		return &statement.FormatUnsupportedError{FileType: state.Request.FileType, FileName: state.Request.FileName}
	}
	if err != nil {
		return err
	}

	st.Account.Bank = state.Bank
	if st.Account.AccountType == "" {
		st.Account.AccountType = state.AccountType
	}
	state.Statement = st
	return nil
}

// Step 6: VerifyNotEmptyStep rejects statements without transactions.
type VerifyNotEmptyStep struct{}

func (s *VerifyNotEmptyStep) Execute(ctx context.Context, state *PipelineState) error {
	if state.Statement == nil || len(state.Statement.Transactions) == 0 {
		return &statement.EmptyResultError{Format: state.Format}
	}
	return nil
}

// Step 7: ResolveMerchantsStep attaches merchant core, display name,
// reference and category to every transaction. Debits that match no known
// merchant are collected as new mapping rows, one per merchant core.
type ResolveMerchantsStep struct {
	Merchants store.MerchantStore
}

func (s *ResolveMerchantsStep) Execute(ctx context.Context, state *PipelineState) error {
	var known []*domain.MerchantRecord
	if s.Merchants != nil {
		records, err := s.Merchants.ListMerchants(ctx, state.UserID)
		if err != nil {
			return fmt.Errorf("ResolveMerchantsStep: listing merchants: %w", err)
		}
		known = records
	}

	matched := 0
	pending := make(map[string]bool)
	for _, tx := range state.Statement.Transactions {
		if tx.MerchantCore == "" {
			tx.MerchantCore = merchant.ExtractCore(tx.Description)
		}
		if tx.Reference == "" {
			tx.Reference = merchant.ExtractReference(tx.Description)
		}

		if m, ok := merchant.FindBestMatch(tx.Description, known, merchant.DefaultThreshold); ok {
			tx.MerchantName = m.Record.Label()
			if tx.Category == "" {
				tx.Category = m.Record.Category
			}
			if tx.Category == "" {
				tx.Category = merchant.CategoryFor(tx.Description)
			}
			matched++
			continue
		}

		tx.MerchantName = merchant.SmartDisplayName(tx.Description)
		if tx.Category == "" {
			tx.Category = merchant.CategoryFor(tx.Description)
		}
		if !tx.Amount.IsNegative() {
			continue
		}
		name, ok := merchant.MappingName(tx.Description)
		if !ok {
			continue
		}
		core := merchant.ExtractCore(name)
		if pending[core] {
			continue
		}
		pending[core] = true
		state.NewMerchants = append(state.NewMerchants, &domain.MerchantRecord{
			ID:          MerchantID(state.UserID, core),
			UserID:      state.UserID,
			Name:        name,
			DisplayName: tx.MerchantName,
			Pattern:     core,
			Category:    tx.Category,
		})
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Int("transactions", len(state.Statement.Transactions)).
		Int("known_merchants", matched).
		Int("new_merchants", len(state.NewMerchants)).
		Msg("Resolved merchants")
	return nil
}

// Step 8: PersistStep stores the transactions without duplicating existing rows.
// A nil gateway leaves storage untouched.
type PersistStep struct {
	Gateway *store.Gateway
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Gateway == nil {
		return nil
	}
	state.Result = s.Gateway.PersistTransactions(ctx, state.UserID, state.Statement.Transactions)
	return nil
}

// MerchantID derives a stable mapping-row ID from the user and merchant core,
// so caching the same merchant twice updates one row.
func MerchantID(userID, core string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(userID+"/"+core)).String()
}

// Step 9: CacheMerchantsStep stores the new mapping rows so later statements
// resolve through them. A failed row is logged and skipped. A nil store
// leaves storage untouched.
type CacheMerchantsStep struct {
	Merchants store.MerchantStore
}

func (s *CacheMerchantsStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Merchants == nil {
		return nil
	}
	log := logger.FromContext(ctx)
	for _, m := range state.NewMerchants {
		if err := s.Merchants.UpsertMerchant(ctx, m); err != nil {
			log.Warn().Err(err).Str("pattern", m.Pattern).Msg("Failed to cache merchant")
		}
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
