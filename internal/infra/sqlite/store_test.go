package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "statements.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTx(id, date, description, amount string) *domain.Transaction {
	a := decimal.RequireFromString(amount)
	return &domain.Transaction{
		ID:          id,
		UserID:      "user-1",
		Date:        date,
		Description: description,
		Amount:      a,
		Type:        domain.DirectionOf(a),
		CreatedAt:   time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"99.00", 9900},
		{"-350.50", -35050},
		{"0.005", 1},
		{"-0.005", -1},
		{"15000", 1500000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Cents(decimal.RequireFromString(tt.in)))
		})
	}
	assert.Equal(t, "-350.50", FromCents(-35050).StringFixed(2))
}

func TestStore_ConditionalInsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx := newTx("t1", "2025-01-15", "WOOLWORTHS SANDTON", "-350.50")
	inserted, err := s.InsertTransactionIfAbsent(ctx, tx)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertTransactionIfAbsent(ctx, newTx("t2", "2025-01-15", "WOOLWORTHS SANDTON", "-350.50"))
	require.NoError(t, err)
	assert.False(t, inserted)

	inserted, err = s.InsertTransactionIfAbsent(ctx, newTx("t3", "2025-01-15", "WOOLWORTHS SANDTON", "-350.51"))
	require.NoError(t, err)
	assert.True(t, inserted, "a different cent is a different transaction")

	err = s.InsertTransaction(ctx, newTx("t4", "2025-01-15", "WOOLWORTHS SANDTON", "-350.50"))
	assert.Error(t, err, "plain insert hits the unique index")
}

func TestStore_TransactionExistsAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	balance := decimal.RequireFromString("1649.50")
	first := newTx("t1", "2025-01-15", "WOOLWORTHS SANDTON", "-350.50")
	first.Balance = &balance
	first.MerchantName = "Woolworths"
	require.NoError(t, s.InsertTransaction(ctx, first))
	require.NoError(t, s.InsertTransaction(ctx, newTx("t2", "2024-12-01", "NETFLIX", "-99.00")))

	exists, err := s.TransactionExists(ctx, first.Key())
	require.NoError(t, err)
	assert.True(t, exists)

	other := first.Key()
	other.UserID = "user-2"
	exists, err = s.TransactionExists(ctx, other)
	require.NoError(t, err)
	assert.False(t, exists)

	txs, err := s.ListTransactions(ctx, "user-1", "2025-01-01")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	got := txs[0]
	assert.Equal(t, "2025-01-15", got.Date)
	assert.True(t, got.Amount.Equal(first.Amount))
	require.NotNil(t, got.Balance)
	assert.True(t, got.Balance.Equal(balance))
	assert.Equal(t, domain.Debit, got.Type)
	assert.Equal(t, "Woolworths", got.MerchantName)

	all, err := s.ListTransactions(ctx, "user-1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "2024-12-01", all[0].Date)
}

func TestStore_RecurringItems(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertRecurringItem(ctx, &domain.RecurringItem{
		ID: "r1", UserID: "user-1", Name: "Netflix", Frequency: domain.Monthly,
		Amount: decimal.RequireFromString("99.00"), SourcePattern: "NETFLIX", AutoDetected: true,
	}))

	byPattern, err := s.FindRecurringItemByPattern(ctx, "user-1", "netflix")
	require.NoError(t, err)
	assert.Equal(t, "Netflix", byPattern.Name)
	assert.True(t, byPattern.AutoDetected)
	assert.Equal(t, "99.00", byPattern.Amount.StringFixed(2))

	byName, err := s.FindRecurringItemByName(ctx, "user-1", "NETFLIX")
	require.NoError(t, err)
	assert.Equal(t, "r1", byName.ID)

	_, err = s.FindRecurringItemByName(ctx, "user-2", "Netflix")
	assert.ErrorIs(t, err, store.ErrNotFound)

	items, err := s.ListRecurringItems(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestStore_UpsertMerchant(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := &domain.MerchantRecord{ID: "m1", UserID: "user-1", Name: "WOOLWORTHS", Category: "Groceries"}
	require.NoError(t, s.UpsertMerchant(ctx, m))
	m.DisplayName = "Woolies"
	require.NoError(t, s.UpsertMerchant(ctx, m))

	records, err := s.ListMerchants(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Woolies", records[0].Label())
	assert.Equal(t, "Groceries", records[0].Category)
}

func TestGatewayOverSQLite_IsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	gw := store.NewGateway(s)

	batch := func() []*domain.Transaction {
		return []*domain.Transaction{
			newTx("", "2025-01-15", "WOOLWORTHS SANDTON", "-350.50"),
			newTx("", "2025-01-16", "SALARY ACME", "15000.00"),
		}
	}

	first := gw.PersistTransactions(ctx, "user-1", batch())
	second := gw.PersistTransactions(ctx, "user-1", batch())

	assert.Equal(t, store.PersistResult{Inserted: 2}, first)
	assert.Equal(t, store.PersistResult{Skipped: 2}, second)
}
