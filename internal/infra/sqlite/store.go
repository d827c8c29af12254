package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/store"
)

//go:embed schema.sql
var schema string

// Store is the SQLite implementation of store.Store. Money is stored as
// integer cents and converted to rand at this boundary.
type Store struct {
	db *sql.DB
}

var (
	_ store.Store               = (*Store)(nil)
	_ store.ConditionalInserter = (*Store)(nil)
)

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("Open: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("Open: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("Open: ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Init creates tables if they don't exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("Init: execute schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Cents converts rand to integer cents, rounding half away from zero.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents converts integer cents to rand.
func FromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

const insertTransactionSQL = `
	INTO transactions (
		id, user_id, txn_date, description, amount_cents, balance_cents,
		merchant_core, merchant_name, reference, category, direction, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func transactionArgs(tx *domain.Transaction) []any {
	var balance sql.NullInt64
	if tx.Balance != nil {
		balance = sql.NullInt64{Int64: Cents(*tx.Balance), Valid: true}
	}
	return []any{
		tx.ID, tx.UserID, tx.Date, tx.Description, Cents(tx.Amount), balance,
		tx.MerchantCore, tx.MerchantName, tx.Reference, tx.Category, string(tx.Type), tx.CreatedAt.UTC(),
	}
}

func (s *Store) TransactionExists(ctx context.Context, key domain.TransactionKey) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM transactions
		WHERE user_id = ? AND txn_date = ? AND description = ? AND amount_cents = ?`,
		key.UserID, key.Date, key.Description, Cents(key.Amount)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("TransactionExists: %w", err)
	}
	return n > 0, nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if _, err := s.db.ExecContext(ctx, "INSERT "+insertTransactionSQL, transactionArgs(tx)...); err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// InsertTransactionIfAbsent inserts the row unless its key exists.
func (s *Store) InsertTransactionIfAbsent(ctx context.Context, tx *domain.Transaction) (bool, error) {
	res, err := s.db.ExecContext(ctx, "INSERT OR IGNORE "+insertTransactionSQL, transactionArgs(tx)...)
	if err != nil {
		return false, fmt.Errorf("InsertTransactionIfAbsent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("InsertTransactionIfAbsent: rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID, since string) ([]*domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, txn_date, description, amount_cents, balance_cents,
		       merchant_core, merchant_name, reference, category, direction, created_at
		FROM transactions
		WHERE user_id = ? AND txn_date >= ?
		ORDER BY txn_date, created_at`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var (
			tx        domain.Transaction
			amount    int64
			balance   sql.NullInt64
			direction string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Date, &tx.Description, &amount, &balance,
			&tx.MerchantCore, &tx.MerchantName, &tx.Reference, &tx.Category, &direction, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		tx.Amount = FromCents(amount)
		if balance.Valid {
			b := FromCents(balance.Int64)
			tx.Balance = &b
		}
		tx.Type = domain.Direction(direction)
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}

const recurringItemColumns = `id, user_id, name, frequency, amount_cents, source_pattern, auto_detected, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecurringItem(row scanner) (*domain.RecurringItem, error) {
	var (
		item      domain.RecurringItem
		amount    int64
		frequency string
	)
	if err := row.Scan(&item.ID, &item.UserID, &item.Name, &frequency, &amount,
		&item.SourcePattern, &item.AutoDetected, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.Amount = FromCents(amount)
	item.Frequency = domain.Frequency(frequency)
	return &item, nil
}

func (s *Store) ListRecurringItems(ctx context.Context, userID string) ([]*domain.RecurringItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recurringItemColumns+`
		FROM recurring_items WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListRecurringItems: %w", err)
	}
	defer rows.Close()

	var items []*domain.RecurringItem
	for rows.Next() {
		item, err := scanRecurringItem(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRecurringItems: scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) FindRecurringItemByName(ctx context.Context, userID, name string) (*domain.RecurringItem, error) {
	return s.findRecurringItem(ctx, "name", userID, name)
}

func (s *Store) FindRecurringItemByPattern(ctx context.Context, userID, pattern string) (*domain.RecurringItem, error) {
	return s.findRecurringItem(ctx, "source_pattern", userID, pattern)
}

func (s *Store) findRecurringItem(ctx context.Context, column, userID, value string) (*domain.RecurringItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recurringItemColumns+`
		FROM recurring_items
		WHERE user_id = ? AND lower(`+column+`) = lower(?)
		ORDER BY created_at, rowid LIMIT 1`, userID, value)
	item, err := scanRecurringItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindRecurringItem by %s: %w", column, err)
	}
	return item, nil
}

func (s *Store) InsertRecurringItem(ctx context.Context, item *domain.RecurringItem) error {
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recurring_items (id, user_id, name, frequency, amount_cents, source_pattern, auto_detected, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.Name, string(item.Frequency), Cents(item.Amount),
		item.SourcePattern, item.AutoDetected, createdAt.UTC())
	if err != nil {
		return fmt.Errorf("InsertRecurringItem: %w", err)
	}
	return nil
}

func (s *Store) ListMerchants(ctx context.Context, userID string) ([]*domain.MerchantRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, display_name, pattern, category
		FROM merchants WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListMerchants: %w", err)
	}
	defer rows.Close()

	var records []*domain.MerchantRecord
	for rows.Next() {
		var m domain.MerchantRecord
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &m.DisplayName, &m.Pattern, &m.Category); err != nil {
			return nil, fmt.Errorf("ListMerchants: scan: %w", err)
		}
		records = append(records, &m)
	}
	return records, rows.Err()
}

func (s *Store) UpsertMerchant(ctx context.Context, m *domain.MerchantRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchants (id, user_id, name, display_name, pattern, category)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			display_name = excluded.display_name,
			pattern = excluded.pattern,
			category = excluded.category`,
		m.ID, m.UserID, m.Name, m.DisplayName, m.Pattern, m.Category)
	if err != nil {
		return fmt.Errorf("UpsertMerchant: %w", err)
	}
	return nil
}
