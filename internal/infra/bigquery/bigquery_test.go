package bigquery

import (
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/statement-core/internal/domain"
)

func TestTransactionRow_PreservesCents(t *testing.T) {
	balance := decimal.RequireFromString("1649.50")
	tx := &domain.Transaction{
		ID:          "tx-1",
		UserID:      "user-1",
		Date:        "2025-01-15",
		Description: "WOOLWORTHS SANDTON",
		Amount:      decimal.RequireFromString("-350.50"),
		Balance:     &balance,
		Type:        domain.Debit,
		CreatedAt:   time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC),
	}

	row, err := NewTransactionRow(tx)
	require.NoError(t, err)
	assert.Equal(t, "ZAR", row.Currency)
	assert.False(t, row.MerchantCore.Valid)

	back := row.Transaction()
	assert.True(t, back.Amount.Equal(tx.Amount), "amount %s", back.Amount)
	assert.True(t, back.Balance.Equal(balance))
	assert.Equal(t, "2025-01-15", back.Date)
	assert.True(t, tx.Key().Matches(back))
}

func TestNewTransactionRow_BadDate(t *testing.T) {
	_, err := NewTransactionRow(&domain.Transaction{Date: "15/01/2025"})
	assert.Error(t, err)
}

func TestRecurringItemRow(t *testing.T) {
	item := &domain.RecurringItem{
		ID: "r1", UserID: "user-1", Name: "Netflix", Frequency: domain.Monthly,
		Amount: decimal.RequireFromString("99.00"), SourcePattern: "NETFLIX", AutoDetected: true,
	}

	back := NewRecurringItemRow(item).Item()

	assert.Equal(t, "NETFLIX", back.SourcePattern)
	assert.True(t, back.Amount.Equal(item.Amount))
	assert.True(t, back.AutoDetected)
}

func TestDatasetTable(t *testing.T) {
	ds := Dataset{Project: "p", Dataset: "d"}
	assert.Equal(t, "`p.d.transactions`", ds.Table(transactionsTable))
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_second.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.b` (x INT64);")},
		"0001_first.sql":  {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.a` (x INT64);")},
		"001_invalid.sql": {Data: []byte("x")},
		"0003_test":       {Data: []byte("x")},
	}

	migrations, err := ReadMigrations(fsys, Dataset{Project: "proj", Dataset: "ds"})
	require.NoError(t, err)

	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "first", migrations[0].Name)
	assert.Equal(t, "CREATE TABLE `proj.ds.a` (x INT64);", migrations[0].SQL)
	assert.Len(t, migrations[0].Checksum, 64)

	again, err := ReadMigrations(fsys, Dataset{Project: "other", Dataset: "ds"})
	require.NoError(t, err)
	assert.Equal(t, migrations[0].Checksum, again[0].Checksum)
}

func TestEmbeddedMigrations(t *testing.T) {
	sub, err := fs.Sub(migrationFiles, "migrations")
	require.NoError(t, err)

	migrations, err := ReadMigrations(sub, Dataset{Project: "p", Dataset: "d"})
	require.NoError(t, err)

	require.Len(t, migrations, 3)
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version)
		assert.NotContains(t, m.SQL, "{{")
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: 1}, {Version: 2}, {Version: 3}}

	pending := PendingMigrations(all, []AppliedMigration{{Version: 1}, {Version: 3}})

	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)
}
