package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/store"
)

//go:embed schema.sql
var schema string

// Store is the PostgreSQL implementation of store.Store. The unique
// constraint on (user_id, txn_date, description, amount) backs an atomic
// conditional insert.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ store.Store               = (*Store)(nil)
	_ store.ConditionalInserter = (*Store)(nil)
)

// Open connects a pool to the database at dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("Open: database URL is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("Open: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Open: ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Init creates tables if they don't exist.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("Init: execute schema: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const insertTransactionSQL = `
	INSERT INTO transactions (
		id, user_id, txn_date, description, amount, balance,
		merchant_core, merchant_name, reference, category, direction, created_at
	) VALUES ($1, $2, $3::date, $4, $5::numeric, $6::numeric, $7, $8, $9, $10, $11, $12)`

func transactionArgs(tx *domain.Transaction) []any {
	var balance *string
	if tx.Balance != nil {
		b := tx.Balance.StringFixed(2)
		balance = &b
	}
	return []any{
		tx.ID, tx.UserID, tx.Date, tx.Description, tx.Amount.StringFixed(2), balance,
		tx.MerchantCore, tx.MerchantName, tx.Reference, tx.Category, string(tx.Type), tx.CreatedAt,
	}
}

func (s *Store) TransactionExists(ctx context.Context, key domain.TransactionKey) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE user_id = $1 AND txn_date = $2::date AND description = $3 AND amount = $4::numeric
		)`, key.UserID, key.Date, key.Description, key.Amount.StringFixed(2)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("TransactionExists: %w", err)
	}
	return exists, nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if _, err := s.pool.Exec(ctx, insertTransactionSQL, transactionArgs(tx)...); err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// InsertTransactionIfAbsent inserts the row unless its key exists.
func (s *Store) InsertTransactionIfAbsent(ctx context.Context, tx *domain.Transaction) (bool, error) {
	tag, err := s.pool.Exec(ctx, insertTransactionSQL+`
	ON CONFLICT (user_id, txn_date, description, amount) DO NOTHING`, transactionArgs(tx)...)
	if err != nil {
		return false, fmt.Errorf("InsertTransactionIfAbsent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID, since string) ([]*domain.Transaction, error) {
	if since == "" {
		since = "1970-01-01"
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, to_char(txn_date, 'YYYY-MM-DD'), description, amount::text, balance::text,
		       merchant_core, merchant_name, reference, category, direction, created_at
		FROM transactions
		WHERE user_id = $1 AND txn_date >= $2::date
		ORDER BY txn_date, created_at`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		var (
			tx        domain.Transaction
			amount    string
			balance   *string
			direction string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.Date, &tx.Description, &amount, &balance,
			&tx.MerchantCore, &tx.MerchantName, &tx.Reference, &tx.Category, &direction, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("ListTransactions: amount %q: %w", amount, err)
		}
		if balance != nil {
			b, err := decimal.NewFromString(*balance)
			if err != nil {
				return nil, fmt.Errorf("ListTransactions: balance %q: %w", *balance, err)
			}
			tx.Balance = &b
		}
		tx.Type = domain.Direction(direction)
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}

const recurringItemColumns = `id, user_id, name, frequency, amount::text, source_pattern, auto_detected, created_at`

func scanRecurringItem(row pgx.Row) (*domain.RecurringItem, error) {
	var (
		item      domain.RecurringItem
		amount    string
		frequency string
	)
	if err := row.Scan(&item.ID, &item.UserID, &item.Name, &frequency, &amount,
		&item.SourcePattern, &item.AutoDetected, &item.CreatedAt); err != nil {
		return nil, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", amount, err)
	}
	item.Amount = a
	item.Frequency = domain.Frequency(frequency)
	return &item, nil
}

func (s *Store) ListRecurringItems(ctx context.Context, userID string) ([]*domain.RecurringItem, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+recurringItemColumns+`
		FROM recurring_items WHERE user_id = $1 ORDER BY created_at`, userID)
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
	row := s.pool.QueryRow(ctx, `SELECT `+recurringItemColumns+`
		FROM recurring_items
		WHERE user_id = $1 AND lower(`+column+`) = lower($2)
		ORDER BY created_at LIMIT 1`, userID, value)
	item, err := scanRecurringItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO recurring_items (id, user_id, name, frequency, amount, source_pattern, auto_detected, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)`,
		item.ID, item.UserID, item.Name, string(item.Frequency), item.Amount.StringFixed(2),
		item.SourcePattern, item.AutoDetected, createdAt)
	if err != nil {
		return fmt.Errorf("InsertRecurringItem: %w", err)
	}
	return nil
}

func (s *Store) ListMerchants(ctx context.Context, userID string) ([]*domain.MerchantRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, display_name, pattern, category
		FROM merchants WHERE user_id = $1 ORDER BY name`, userID)
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
	_, err := s.pool.Exec(ctx, `
		INSERT INTO merchants (id, user_id, name, display_name, pattern, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			display_name = EXCLUDED.display_name,
			pattern = EXCLUDED.pattern,
			category = EXCLUDED.category`,
		m.ID, m.UserID, m.Name, m.DisplayName, m.Pattern, m.Category)
	if err != nil {
		return fmt.Errorf("UpsertMerchant: %w", err)
	}
	return nil
}
