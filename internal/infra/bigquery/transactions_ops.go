package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-core/internal/domain"
)

const (
	transactionsTable = "transactions"
	epochDate         = "1970-01-01"
)

// InsertTransactionWithClient streams one transaction row into the transactions table.
func InsertTransactionWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, tx *domain.Transaction) error {
	row, err := NewTransactionRow(tx)
	if err != nil {
		return err
	}

	inserter := client.DatasetInProject(ds.Project, ds.Dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertTransaction: inserting row: %w", err)
	}
	return nil
}

// TransactionExistsWithClient reports whether a row with the same
// (user, date, description, amount) key is stored.
func TransactionExistsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, key domain.TransactionKey) (bool, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT COUNT(1) AS n
		FROM %s
		WHERE user_id = @user_id
		  AND transaction_date = DATE(@transaction_date)
		  AND raw_description = @raw_description
		  AND amount = @amount
	`, ds.Table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: key.UserID},
		{Name: "transaction_date", Value: key.Date},
		{Name: "raw_description", Value: key.Description},
		{Name: "amount", Value: key.Amount.Rat()},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("TransactionExists: query read: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return false, fmt.Errorf("TransactionExists: iter next: %w", err)
	}
	return row.N > 0, nil
}

// ListTransactionsWithClient returns the user's transactions dated on or
// after since, ordered by date.
func ListTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, since string) ([]*domain.Transaction, error) {
	if since == "" {
		since = epochDate
	}

	q := client.Query(fmt.Sprintf(`
		SELECT
			transaction_id,
			user_id,
			transaction_date,
			amount,
			currency,
			balance_after,
			direction,
			raw_description,
			merchant_core,
			merchant_name,
			category_name,
			external_reference,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		  AND transaction_date >= DATE(@since)
		ORDER BY transaction_date, created_ts
	`, ds.Table(transactionsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "since", Value: since},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query read: %w", err)
	}

	var txs []*domain.Transaction
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iter next: %w", err)
		}
		txs = append(txs, r.Transaction())
	}

	return txs, nil
}
