package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-core/internal/domain"
)

const merchantsTable = "merchants"

// ListMerchantsWithClient returns the merchant records of the user.
func ListMerchantsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*domain.MerchantRecord, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			merchant_id,
			user_id,
			canonical_name,
			display_name,
			pattern,
			category_name,
			created_ts
		FROM %s
		WHERE user_id = @user_id
		ORDER BY canonical_name
	`, ds.Table(merchantsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListMerchants: query read: %w", err)
	}

	var records []*domain.MerchantRecord
	for {
		var r MerchantRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListMerchants: iter next: %w", err)
		}
		records = append(records, r.Record())
	}

	return records, nil
}

// UpsertMerchantWithClient replaces or inserts the merchant row with the same ID.
func UpsertMerchantWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, m *domain.MerchantRecord) error {
	row := NewMerchantRow(m, time.Now().UTC())

	q := client.Query(fmt.Sprintf(`
		MERGE %s AS t
		USING (SELECT @merchant_id AS merchant_id) AS s
		ON t.merchant_id = s.merchant_id
		WHEN MATCHED THEN UPDATE SET
			canonical_name = @canonical_name,
			display_name = @display_name,
			pattern = @pattern,
			category_name = @category_name
		WHEN NOT MATCHED THEN INSERT
			(merchant_id, user_id, canonical_name, display_name, pattern, category_name, created_ts)
		VALUES
			(@merchant_id, @user_id, @canonical_name, @display_name, @pattern, @category_name, @created_ts)
	`, ds.Table(merchantsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "merchant_id", Value: row.MerchantID},
		{Name: "user_id", Value: row.UserID},
		{Name: "canonical_name", Value: row.CanonicalName},
		{Name: "display_name", Value: row.DisplayName},
		{Name: "pattern", Value: row.Pattern},
		{Name: "category_name", Value: row.CategoryName},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpsertMerchant: %w", err)
	}
	return nil
}

// runDML runs a DML statement and waits for it to finish.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
