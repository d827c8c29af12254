package recurring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/store"
	"github.com/dvloznov/statement-core/internal/store/memory"
)

func amounts(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.RequireFromString(v)
	}
	return out
}

func months(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		group    *Group
		wantType DetectionType
		wantAvg  string
		wantOK   bool
	}{
		{
			name:     "identical amounts over three months",
			group:    &Group{Pattern: "NETFLIX", Amounts: amounts("99.00", "99.00", "99.00"), Months: months("2025-01", "2025-02", "2025-03")},
			wantType: ExactAmount, wantAvg: "99.00", wantOK: true,
		},
		{
			name:     "one per month with narrow spread",
			group:    &Group{Pattern: "VIRGIN ACTIVE", Amounts: amounts("450", "460", "455"), Months: months("2025-01", "2025-02", "2025-03")},
			wantType: MonthlyMerchant, wantAvg: "455.00", wantOK: true,
		},
		{
			name:     "debit order keyword ignores spread",
			group:    &Group{Pattern: "XYZ ORDER", Description: "XYZ DEBIT ORDER", Amounts: amounts("100", "900"), Months: months("2025-01"), Keyword: true},
			wantType: ExplicitKeyword, wantAvg: "500.00", wantOK: true,
		},
		{
			name:   "two same-month amounts",
			group:  &Group{Pattern: "SPAR KLOOF", Amounts: amounts("50", "80"), Months: months("2025-03")},
			wantOK: false,
		},
		{
			name:   "identical amounts in one month",
			group:  &Group{Pattern: "SPAR KLOOF", Amounts: amounts("99", "99"), Months: months("2025-03")},
			wantOK: false,
		},
		{
			name:   "wide spread",
			group:  &Group{Pattern: "UBER", Amounts: amounts("100", "200", "150"), Months: months("2025-01", "2025-02", "2025-03")},
			wantOK: false,
		},
		{
			name:   "too frequent",
			group:  &Group{Pattern: "UBER", Amounts: amounts("100", "100", "101", "100", "100"), Months: months("2025-01", "2025-02")},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Classify(tt.group)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantType, c.DetectionType)
			assert.Equal(t, tt.wantAvg, c.AverageAmount.StringFixed(2))
			assert.Equal(t, tt.group.Pattern, c.Pattern)
			assert.Equal(t, len(tt.group.Amounts), c.Occurrences)
		})
	}
}

func TestExtractPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"NETFLIX.COM 12345678", "NETFLIX"},
		{"DEBIT ORDER SPOTIFY P1234", "SPOTIFY"},
		{"POS PURCHASE VIRGIN ACTIVE SANDTON", "VIRGIN ACTIVE"},
		{"XYZ DEBIT ORDER", "XYZ ORDER"},
		{"SPAR", "SPAR"},
		{"AMAZONIA GRILL ROSEBANK", "AMAZONIA GRILL"},
		{"APPLE.COM/BILL", "APPLE"},
		{"GOOGLEPLEX CAFE", "GOOGLEPLEX CAFE"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPattern(tt.in))
		})
	}
}

func TestHasDebitOrderKeyword(t *testing.T) {
	assert.True(t, HasDebitOrderKeyword("XYZ DEBIT ORDER"))
	assert.True(t, HasDebitOrderKeyword("Insurance D/O 0042"))
	assert.True(t, HasDebitOrderKeyword("LIFE COVER DEBIT ORD"))
	assert.False(t, HasDebitOrderKeyword("POS PURCHASE SPAR"))
}

func TestGroupTransactions_IgnoresCredits(t *testing.T) {
	txs := []*domain.Transaction{
		{Date: "2025-01-25", Description: "SALARY ACME", Amount: decimal.NewFromInt(15000)},
		{Date: "2025-01-20", Description: "NETFLIX.COM", Amount: decimal.NewFromInt(-99)},
		{Date: "2025-02-20", Description: "NETFLIX.COM 998877665", Amount: decimal.NewFromInt(-99)},
	}

	groups := GroupTransactions(txs)

	require.Len(t, groups, 1)
	assert.Equal(t, "NETFLIX", groups[0].Pattern)
	assert.Equal(t, 2, len(groups[0].Months))
	assert.True(t, groups[0].Amounts[0].Equal(decimal.NewFromInt(99)))
}

func TestNormalizeLookback(t *testing.T) {
	assert.Equal(t, 3, NormalizeLookback(0))
	assert.Equal(t, 3, NormalizeLookback(-4))
	assert.Equal(t, 6, NormalizeLookback(6))
	assert.Equal(t, 12, NormalizeLookback(13))
}

func seed(t *testing.T, s *memory.Store) {
	t.Helper()
	ctx := context.Background()
	rows := []struct {
		date, description, amount string
	}{
		{"2024-11-20", "NETFLIX.COM", "-99.00"},
		{"2025-01-05", "VIRGIN ACTIVE SANDTON", "-450.00"},
		{"2025-01-20", "NETFLIX.COM", "-99.00"},
		{"2025-01-25", "SALARY ACME", "15000.00"},
		{"2025-02-05", "VIRGIN ACTIVE SANDTON", "-460.00"},
		{"2025-02-20", "NETFLIX.COM", "-99.00"},
		{"2025-03-01", "XYZ DEBIT ORDER", "-120.00"},
		{"2025-03-05", "VIRGIN ACTIVE SANDTON", "-455.00"},
		{"2025-03-10", "SPAR KLOOF", "-50.00"},
		{"2025-03-12", "SPAR KLOOF", "-80.00"},
		{"2025-03-20", "NETFLIX.COM", "-99.00"},
	}
	for _, r := range rows {
		require.NoError(t, s.InsertTransaction(ctx, &domain.Transaction{
			UserID:      "user-1",
			Date:        r.date,
			Description: r.description,
			Amount:      decimal.RequireFromString(r.amount),
		}))
	}
	require.NoError(t, s.InsertRecurringItem(ctx, &domain.RecurringItem{
		UserID:        "user-1",
		Name:          "Gym",
		SourcePattern: "virgin active",
	}))
}

func newTestDetector(tx store.TransactionStore, items store.RecurringStore) *Detector {
	d := NewDetector(tx, items)
	d.now = func() time.Time { return time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC) }
	return d
}

func TestDetect(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s)
	d := newTestDetector(s, s)

	res, err := d.Detect(ctx, "user-1", 3)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Items, 2)

	netflix := res.Items[0]
	assert.Equal(t, ExactAmount, netflix.DetectionType)
	assert.Equal(t, "Netflix", netflix.Item.Name)
	assert.Equal(t, "NETFLIX", netflix.Item.SourcePattern)
	assert.Equal(t, "99.00", netflix.Item.Amount.StringFixed(2))
	assert.Equal(t, domain.Monthly, netflix.Item.Frequency)
	assert.True(t, netflix.Item.AutoDetected)

	debitOrder := res.Items[1]
	assert.Equal(t, ExplicitKeyword, debitOrder.DetectionType)
	assert.Equal(t, "XYZ ORDER", debitOrder.Item.SourcePattern)
	assert.Equal(t, "120.00", debitOrder.Item.Amount.StringFixed(2))

	stored, err := s.ListRecurringItems(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestDetect_SecondRunAddsNothing(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s)
	d := newTestDetector(s, s)

	_, err := d.Detect(ctx, "user-1", 3)
	require.NoError(t, err)
	res, err := d.Detect(ctx, "user-1", 3)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 3, res.Skipped)
	assert.Empty(t, res.Items)
}

// MockRecurringStore is a mock implementation of store.RecurringStore.
type MockRecurringStore struct {
	FindByNameFunc func(ctx context.Context, userID, name string) (*domain.RecurringItem, error)
	InsertFunc     func(ctx context.Context, item *domain.RecurringItem) error
}

func (m *MockRecurringStore) ListRecurringItems(ctx context.Context, userID string) ([]*domain.RecurringItem, error) {
	return nil, nil
}

func (m *MockRecurringStore) FindRecurringItemByName(ctx context.Context, userID, name string) (*domain.RecurringItem, error) {
	if m.FindByNameFunc != nil {
		return m.FindByNameFunc(ctx, userID, name)
	}
	return nil, store.ErrNotFound
}

func (m *MockRecurringStore) FindRecurringItemByPattern(ctx context.Context, userID, pattern string) (*domain.RecurringItem, error) {
	return nil, store.ErrNotFound
}

func (m *MockRecurringStore) InsertRecurringItem(ctx context.Context, item *domain.RecurringItem) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, item)
	}
	return nil
}

func TestDetect_RecheckByNameBeforeInsert(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s)
	inserts := 0
	items := &MockRecurringStore{
		FindByNameFunc: func(ctx context.Context, userID, name string) (*domain.RecurringItem, error) {
			if name == "Netflix" {
				return &domain.RecurringItem{Name: "netflix"}, nil
			}
			return nil, store.ErrNotFound
		},
		InsertFunc: func(ctx context.Context, item *domain.RecurringItem) error {
			inserts++
			return nil
		},
	}

	res, err := newTestDetector(s, items).Detect(ctx, "user-1", 3)
	require.NoError(t, err)

	// VIRGIN ACTIVE is not suppressed here because the mock lists no items.
	assert.Equal(t, 2, res.Added)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, inserts)
}

func TestDetect_InsertFailureCountsAsSkipped(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	seed(t, s)
	items := &MockRecurringStore{
		InsertFunc: func(ctx context.Context, item *domain.RecurringItem) error {
			return errors.New("write conflict")
		},
	}

	res, err := newTestDetector(s, items).Detect(ctx, "user-1", 3)
	require.NoError(t, err)

	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 3, res.Skipped)
}

// MockTransactionStore records the lower date bound it is queried with.
type MockTransactionStore struct {
	since string
	err   error
}

func (m *MockTransactionStore) TransactionExists(ctx context.Context, key domain.TransactionKey) (bool, error) {
	return false, nil
}

func (m *MockTransactionStore) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	return nil
}

func (m *MockTransactionStore) ListTransactions(ctx context.Context, userID, since string) ([]*domain.Transaction, error) {
	m.since = since
	return nil, m.err
}

func TestDetect_LookbackWindow(t *testing.T) {
	ctx := context.Background()
	txs := &MockTransactionStore{}
	d := newTestDetector(txs, &MockRecurringStore{})

	_, err := d.Detect(ctx, "user-1", 1)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-15", txs.since)

	_, err = d.Detect(ctx, "user-1", 40)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-15", txs.since)
}

func TestDetect_ListFailure(t *testing.T) {
	txs := &MockTransactionStore{err: errors.New("unavailable")}
	_, err := newTestDetector(txs, &MockRecurringStore{}).Detect(context.Background(), "user-1", 3)
	assert.Error(t, err)
}
