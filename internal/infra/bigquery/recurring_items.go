package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/statement-core/internal/domain"
)

type RecurringItemRow struct {
	ItemID        string              `bigquery:"item_id"`   // REQUIRED
	UserID        string              `bigquery:"user_id"`   // REQUIRED
	Name          string              `bigquery:"name"`      // REQUIRED
	Frequency     string              `bigquery:"frequency"` // REQUIRED
	Amount        *big.Rat            `bigquery:"amount"`    // REQUIRED NUMERIC
	SourcePattern bigquery.NullString `bigquery:"source_pattern"`
	AutoDetected  bool                `bigquery:"auto_detected"`
	CreatedTS     time.Time           `bigquery:"created_ts"`
}

// NewRecurringItemRow converts a recurring item into its table row.
func NewRecurringItemRow(item *domain.RecurringItem) *RecurringItemRow {
	return &RecurringItemRow{
		ItemID:        item.ID,
		UserID:        item.UserID,
		Name:          item.Name,
		Frequency:     string(item.Frequency),
		Amount:        item.Amount.Rat(),
		SourcePattern: nullString(item.SourcePattern),
		AutoDetected:  item.AutoDetected,
		CreatedTS:     item.CreatedAt,
	}
}

// Item converts the row back into a recurring item.
func (r *RecurringItemRow) Item() *domain.RecurringItem {
	return &domain.RecurringItem{
		ID:            r.ItemID,
		UserID:        r.UserID,
		Name:          r.Name,
		Frequency:     domain.Frequency(r.Frequency),
		Amount:        ratToDecimal(r.Amount),
		SourcePattern: r.SourcePattern.StringVal,
		AutoDetected:  r.AutoDetected,
		CreatedAt:     r.CreatedTS,
	}
}
