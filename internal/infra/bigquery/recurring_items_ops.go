package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/store"
)

const recurringItemsTable = "recurring_items"

const recurringItemColumns = `
			item_id,
			user_id,
			name,
			frequency,
			amount,
			source_pattern,
			auto_detected,
			created_ts`

// ListRecurringItemsWithClient returns every recurring item of the user.
func ListRecurringItemsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID string) ([]*domain.RecurringItem, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE user_id = @user_id
		ORDER BY created_ts
	`, recurringItemColumns, ds.Table(recurringItemsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
	}
	return readRecurringItems(ctx, q, "ListRecurringItems")
}

// FindRecurringItemByNameWithClient looks an item up by name, ignoring case.
func FindRecurringItemByNameWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, name string) (*domain.RecurringItem, error) {
	return findRecurringItem(ctx, client, ds, "name", userID, name)
}

// FindRecurringItemByPatternWithClient looks an item up by source pattern, ignoring case.
func FindRecurringItemByPatternWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, userID, pattern string) (*domain.RecurringItem, error) {
	return findRecurringItem(ctx, client, ds, "source_pattern", userID, pattern)
}

func findRecurringItem(ctx context.Context, client *bigquery.Client, ds Dataset, column, userID, value string) (*domain.RecurringItem, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE user_id = @user_id
		  AND LOWER(%s) = LOWER(@value)
		ORDER BY created_ts
		LIMIT 1
	`, recurringItemColumns, ds.Table(recurringItemsTable), column))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "value", Value: value},
	}

	items, err := readRecurringItems(ctx, q, "FindRecurringItem")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, store.ErrNotFound
	}
	return items[0], nil
}

func readRecurringItems(ctx context.Context, q *bigquery.Query, op string) ([]*domain.RecurringItem, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: query read: %w", op, err)
	}

	var items []*domain.RecurringItem
	for {
		var r RecurringItemRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: iter next: %w", op, err)
		}
		items = append(items, r.Item())
	}
	return items, nil
}

// InsertRecurringItemWithClient streams one recurring item row.
func InsertRecurringItemWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, item *domain.RecurringItem) error {
	inserter := client.DatasetInProject(ds.Project, ds.Dataset).Table(recurringItemsTable).Inserter()
	if err := inserter.Put(ctx, NewRecurringItemRow(item)); err != nil {
		return fmt.Errorf("InsertRecurringItem: inserting row: %w", err)
	}
	return nil
}
