package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-core/internal/domain"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

// StorageError wraps a failed storage operation on a single row.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TransactionStore provides an interface for transaction persistence.
type TransactionStore interface {
	// TransactionExists reports whether a transaction with the same
	// (user, date, description, amount) key is already stored.
	TransactionExists(ctx context.Context, key domain.TransactionKey) (bool, error)

	// InsertTransaction stores a single transaction.
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error

	// ListTransactions returns the user's transactions dated on or after since (YYYY-MM-DD).
	ListTransactions(ctx context.Context, userID, since string) ([]*domain.Transaction, error)
}

// ConditionalInserter is implemented by stores that can insert a transaction
// atomically unless its key already exists.
type ConditionalInserter interface {
	// InsertTransactionIfAbsent reports false when the key was already stored.
	InsertTransactionIfAbsent(ctx context.Context, tx *domain.Transaction) (bool, error)
}

// RecurringStore provides an interface for recurring budget item persistence.
type RecurringStore interface {
	// ListRecurringItems returns every recurring item of the user.
	ListRecurringItems(ctx context.Context, userID string) ([]*domain.RecurringItem, error)

	// FindRecurringItemByName looks an item up by name, case-insensitively.
	// Returns ErrNotFound when there is none.
	FindRecurringItemByName(ctx context.Context, userID, name string) (*domain.RecurringItem, error)

	// FindRecurringItemByPattern looks an item up by source pattern, case-insensitively.
	// Returns ErrNotFound when there is none.
	FindRecurringItemByPattern(ctx context.Context, userID, pattern string) (*domain.RecurringItem, error)

	// InsertRecurringItem stores a single recurring item.
	InsertRecurringItem(ctx context.Context, item *domain.RecurringItem) error
}

// MerchantStore provides an interface for known merchant records.
type MerchantStore interface {
	// ListMerchants returns the merchant records known for the user.
	ListMerchants(ctx context.Context, userID string) ([]*domain.MerchantRecord, error)

	// UpsertMerchant stores a merchant record, replacing one with the same ID.
	UpsertMerchant(ctx context.Context, m *domain.MerchantRecord) error
}

// Store is the full persistence contract served by every backend.
type Store interface {
	TransactionStore
	RecurringStore
	MerchantStore

	// Close releases the backend connection.
	Close() error
}
