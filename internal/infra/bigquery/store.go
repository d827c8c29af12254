package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/store"
)

// DefaultDataset is the dataset used when none is configured.
const DefaultDataset = "statements"

// Dataset locates the tables of one deployment.
type Dataset struct {
	Project string
	Dataset string
}

// Table returns the fully qualified, quoted table name.
func (d Dataset) Table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", d.Project, d.Dataset, name)
}

// Store is the BigQuery implementation of store.Store. It holds a shared
// client to avoid creating a new connection for each operation.
type Store struct {
	client *bigquery.Client
	ds     Dataset
}

var _ store.Store = (*Store)(nil)

// NewStore creates a store over the given project and dataset.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("NewStore: project ID is required")
	}
	if datasetID == "" {
		datasetID = DefaultDataset
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return &Store{client: client, ds: Dataset{Project: projectID, Dataset: datasetID}}, nil
}

// Close closes the BigQuery client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Migrate applies the pending schema migrations.
func (s *Store) Migrate(ctx context.Context, appliedBy string) (int, error) {
	return MigrateWithClient(ctx, s.client, s.ds, appliedBy)
}

func (s *Store) TransactionExists(ctx context.Context, key domain.TransactionKey) (bool, error) {
	return TransactionExistsWithClient(ctx, s.client, s.ds, key)
}

func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	return InsertTransactionWithClient(ctx, s.client, s.ds, tx)
}

func (s *Store) ListTransactions(ctx context.Context, userID, since string) ([]*domain.Transaction, error) {
	return ListTransactionsWithClient(ctx, s.client, s.ds, userID, since)
}

func (s *Store) ListRecurringItems(ctx context.Context, userID string) ([]*domain.RecurringItem, error) {
	return ListRecurringItemsWithClient(ctx, s.client, s.ds, userID)
}

func (s *Store) FindRecurringItemByName(ctx context.Context, userID, name string) (*domain.RecurringItem, error) {
	return FindRecurringItemByNameWithClient(ctx, s.client, s.ds, userID, name)
}

func (s *Store) FindRecurringItemByPattern(ctx context.Context, userID, pattern string) (*domain.RecurringItem, error) {
	return FindRecurringItemByPatternWithClient(ctx, s.client, s.ds, userID, pattern)
}

func (s *Store) InsertRecurringItem(ctx context.Context, item *domain.RecurringItem) error {
	return InsertRecurringItemWithClient(ctx, s.client, s.ds, item)
}

func (s *Store) ListMerchants(ctx context.Context, userID string) ([]*domain.MerchantRecord, error) {
	return ListMerchantsWithClient(ctx, s.client, s.ds, userID)
}

func (s *Store) UpsertMerchant(ctx context.Context, m *domain.MerchantRecord) error {
	return UpsertMerchantWithClient(ctx, s.client, s.ds, m)
}
