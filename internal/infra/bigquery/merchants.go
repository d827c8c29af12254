package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/statement-core/internal/domain"
)

type MerchantRow struct {
	MerchantID    string `bigquery:"merchant_id"`    // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED
	CanonicalName string `bigquery:"canonical_name"` // REQUIRED

	DisplayName  bigquery.NullString `bigquery:"display_name"`
	Pattern      bigquery.NullString `bigquery:"pattern"` // stored merchant core
	CategoryName bigquery.NullString `bigquery:"category_name"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// NewMerchantRow converts a merchant record into its table row.
func NewMerchantRow(m *domain.MerchantRecord, now time.Time) *MerchantRow {
	return &MerchantRow{
		MerchantID:    m.ID,
		UserID:        m.UserID,
		CanonicalName: m.Name,
		DisplayName:   nullString(m.DisplayName),
		Pattern:       nullString(m.Pattern),
		CategoryName:  nullString(m.Category),
		CreatedTS:     now,
	}
}

// Record converts the row back into a merchant record.
func (r *MerchantRow) Record() *domain.MerchantRecord {
	return &domain.MerchantRecord{
		ID:          r.MerchantID,
		UserID:      r.UserID,
		Name:        r.CanonicalName,
		DisplayName: r.DisplayName.StringVal,
		Pattern:     r.Pattern.StringVal,
		Category:    r.CategoryName.StringVal,
	}
}
