package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the only currency handled by the ingestion core.
const Currency = "ZAR"

// DateLayout is the canonical ISO date layout used for every stored transaction.
const DateLayout = "2006-01-02"

// Direction tells whether money left or entered the account.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// DirectionOf returns Debit for negative amounts and Credit otherwise.
func DirectionOf(amount decimal.Decimal) Direction {
	if amount.IsNegative() {
		return Debit
	}
	return Credit
}

// Transaction is a normalized, storable transaction.
// Amount is signed: negative for debits, positive for credits, in rand.
type Transaction struct {
	ID           string
	UserID       string
	Date         string // YYYY-MM-DD
	Description  string
	Amount       decimal.Decimal
	Balance      *decimal.Decimal
	MerchantCore string
	MerchantName string
	Reference    string
	Category     string
	Type         Direction
	CreatedAt    time.Time
}

// Key returns the duplicate-suppression key of the transaction.
func (t *Transaction) Key() TransactionKey {
	return TransactionKey{
		UserID:      t.UserID,
		Date:        t.Date,
		Description: t.Description,
		Amount:      t.Amount,
	}
}

// Time parses the ISO date of the transaction.
func (t *Transaction) Time() (time.Time, error) {
	return time.Parse(DateLayout, t.Date)
}

// TransactionKey identifies a transaction for duplicate suppression per user.
type TransactionKey struct {
	UserID      string
	Date        string
	Description string
	Amount      decimal.Decimal
}

// Matches reports whether the transaction carries the same key.
func (k TransactionKey) Matches(t *Transaction) bool {
	return t.UserID == k.UserID &&
		t.Date == k.Date &&
		t.Description == k.Description &&
		t.Amount.Equal(k.Amount)
}

// AccountInfo describes the account a statement belongs to.
type AccountInfo struct {
	AccountNumber  string
	Bank           Bank
	AccountType    AccountType
	AccountName    string
	CurrentBalance decimal.Decimal
}

// Statement is the result of one successful extraction pass.
type Statement struct {
	Account      AccountInfo
	Transactions []*Transaction
}

// DateRange returns the earliest and latest transaction dates.
func (s *Statement) DateRange() (string, string) {
	var from, to string
	for _, tx := range s.Transactions {
		if from == "" || tx.Date < from {
			from = tx.Date
		}
		if to == "" || tx.Date > to {
			to = tx.Date
		}
	}
	return from, to
}

// Frequency of a recurring budget item.
type Frequency string

const Monthly Frequency = "Monthly"

// RecurringItem is a user's recognized recurring expense.
type RecurringItem struct {
	ID            string
	UserID        string
	Name          string
	Frequency     Frequency
	Amount        decimal.Decimal
	SourcePattern string
	AutoDetected  bool
	CreatedAt     time.Time
}

// MerchantRecord is a known merchant identity for a user.
// Pattern, when set, is the stored core token matched exactly.
type MerchantRecord struct {
	ID          string
	UserID      string
	Name        string
	DisplayName string
	Pattern     string
	Category    string
}

// Label returns the display name, falling back to the raw name.
func (m *MerchantRecord) Label() string {
	if strings.TrimSpace(m.DisplayName) != "" {
		return m.DisplayName
	}
	return m.Name
}
