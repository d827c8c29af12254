package bigquery

import (
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
)

type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC, signed
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	BalanceAfter *big.Rat `bigquery:"balance_after"` // NULLABLE NUMERIC

	Direction string `bigquery:"direction"` // REQUIRED: debit|credit

	RawDescription string              `bigquery:"raw_description"` // REQUIRED STRING
	MerchantCore   bigquery.NullString `bigquery:"merchant_core"`
	MerchantName   bigquery.NullString `bigquery:"merchant_name"`
	CategoryName   bigquery.NullString `bigquery:"category_name"`

	ExternalReference bigquery.NullString `bigquery:"external_reference"`

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// NewTransactionRow converts a canonical transaction into its table row.
func NewTransactionRow(tx *domain.Transaction) (*TransactionRow, error) {
	date, err := civil.ParseDate(tx.Date)
	if err != nil {
		return nil, fmt.Errorf("NewTransactionRow: parsing date %q: %w", tx.Date, err)
	}
	row := &TransactionRow{
		TransactionID:     tx.ID,
		UserID:            tx.UserID,
		TransactionDate:   date,
		Amount:            tx.Amount.Rat(),
		Currency:          domain.Currency,
		Direction:         string(tx.Type),
		RawDescription:    tx.Description,
		MerchantCore:      nullString(tx.MerchantCore),
		MerchantName:      nullString(tx.MerchantName),
		CategoryName:      nullString(tx.Category),
		ExternalReference: nullString(tx.Reference),
		CreatedTS:         tx.CreatedAt,
	}
	if tx.Balance != nil {
		row.BalanceAfter = tx.Balance.Rat()
	}
	return row, nil
}

// Transaction converts the row back into a canonical transaction.
func (r *TransactionRow) Transaction() *domain.Transaction {
	tx := &domain.Transaction{
		ID:           r.TransactionID,
		UserID:       r.UserID,
		Date:         r.TransactionDate.String(),
		Description:  r.RawDescription,
		Amount:       ratToDecimal(r.Amount),
		MerchantCore: r.MerchantCore.StringVal,
		MerchantName: r.MerchantName.StringVal,
		Reference:    r.ExternalReference.StringVal,
		Category:     r.CategoryName.StringVal,
		Type:         domain.Direction(r.Direction),
		CreatedAt:    r.CreatedTS,
	}
	if r.BalanceAfter != nil {
		b := ratToDecimal(r.BalanceAfter)
		tx.Balance = &b
	}
	if tx.Type == "" {
		tx.Type = domain.DirectionOf(tx.Amount)
	}
	return tx
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

// ratToDecimal reads a NUMERIC value. NUMERIC carries at most 9 decimal places.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	return decimal.RequireFromString(r.FloatString(9))
}
