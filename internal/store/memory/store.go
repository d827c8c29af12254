package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/store"
)

// Store is an in-memory implementation of store.Store.
// It is safe for concurrent use. Data is lost when the process exits.
type Store struct {
	mu           sync.RWMutex
	transactions []*domain.Transaction
	recurring    []*domain.RecurringItem
	merchants    map[string]*domain.MerchantRecord
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{merchants: make(map[string]*domain.MerchantRecord)}
}

// TransactionExists implements store.TransactionStore.
func (s *Store) TransactionExists(ctx context.Context, key domain.TransactionKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists(key), nil
}

func (s *Store) exists(key domain.TransactionKey) bool {
	for _, tx := range s.transactions {
		if key.Matches(tx) {
			return true
		}
	}
	return false
}

// InsertTransaction implements store.TransactionStore.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.UserID == "" {
		return fmt.Errorf("InsertTransaction: user ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	txCopy := *tx
	s.transactions = append(s.transactions, &txCopy)
	return nil
}

// InsertTransactionIfAbsent implements store.ConditionalInserter.
func (s *Store) InsertTransactionIfAbsent(ctx context.Context, tx *domain.Transaction) (bool, error) {
	if tx.UserID == "" {
		return false, fmt.Errorf("InsertTransactionIfAbsent: user ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exists(tx.Key()) {
		return false, nil
	}
	txCopy := *tx
	s.transactions = append(s.transactions, &txCopy)
	return true, nil
}

// ListTransactions implements store.TransactionStore.
func (s *Store) ListTransactions(ctx context.Context, userID, since string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.Date < since {
			continue
		}
		txCopy := *tx
		result = append(result, &txCopy)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// ListRecurringItems implements store.RecurringStore.
func (s *Store) ListRecurringItems(ctx context.Context, userID string) ([]*domain.RecurringItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RecurringItem
	for _, item := range s.recurring {
		if item.UserID == userID {
			itemCopy := *item
			result = append(result, &itemCopy)
		}
	}
	return result, nil
}

// FindRecurringItemByName implements store.RecurringStore.
func (s *Store) FindRecurringItemByName(ctx context.Context, userID, name string) (*domain.RecurringItem, error) {
	return s.findRecurring(userID, func(item *domain.RecurringItem) bool {
		return strings.EqualFold(item.Name, name)
	})
}

// FindRecurringItemByPattern implements store.RecurringStore.
func (s *Store) FindRecurringItemByPattern(ctx context.Context, userID, pattern string) (*domain.RecurringItem, error) {
	return s.findRecurring(userID, func(item *domain.RecurringItem) bool {
		return item.SourcePattern != "" && strings.EqualFold(item.SourcePattern, pattern)
	})
}

func (s *Store) findRecurring(userID string, match func(*domain.RecurringItem) bool) (*domain.RecurringItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.recurring {
		if item.UserID == userID && match(item) {
			itemCopy := *item
			return &itemCopy, nil
		}
	}
	return nil, store.ErrNotFound
}

// InsertRecurringItem implements store.RecurringStore.
func (s *Store) InsertRecurringItem(ctx context.Context, item *domain.RecurringItem) error {
	if item.UserID == "" {
		return fmt.Errorf("InsertRecurringItem: user ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	itemCopy := *item
	s.recurring = append(s.recurring, &itemCopy)
	return nil
}

// ListMerchants implements store.MerchantStore.
func (s *Store) ListMerchants(ctx context.Context, userID string) ([]*domain.MerchantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MerchantRecord
	for _, m := range s.merchants {
		if m.UserID == userID {
			mCopy := *m
			result = append(result, &mCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpsertMerchant implements store.MerchantStore.
func (s *Store) UpsertMerchant(ctx context.Context, m *domain.MerchantRecord) error {
	if m.ID == "" {
		return fmt.Errorf("UpsertMerchant: merchant ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mCopy := *m
	s.merchants[m.ID] = &mCopy
	return nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

// Ensure Store implements the persistence contracts.
var (
	_ store.Store               = (*Store)(nil)
	_ store.ConditionalInserter = (*Store)(nil)
)
