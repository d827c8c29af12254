package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/merchant"
)

// Column names bound by header resolution.
const (
	ColumnDate        = "date"
	ColumnDescription = "description"
	ColumnAmount      = "amount"
	ColumnBalance     = "balance"
	ColumnType        = "type"
	ColumnAccount     = "account"
)

// Resolution order and accepted header synonyms, matched as lowercase substrings.
var headerSynonyms = []struct {
	column   string
	synonyms []string
}{
	{ColumnDate, []string{"date"}},
	{ColumnDescription, []string{"description", "detail", "narrative", "particulars"}},
	{ColumnAmount, []string{"amount", "value"}},
	{ColumnBalance, []string{"balance"}},
	{ColumnType, []string{"type", "dr/cr"}},
	{ColumnAccount, []string{"account"}},
}

var requiredColumns = []string{ColumnDate, ColumnDescription, ColumnAmount}

// headerScanRows bounds how far into a file the header row is searched for.
const headerScanRows = 20

// accountScanRows is how many data rows are scanned for a bare account number.
const accountScanRows = 5

var (
	accountToken = regexp.MustCompile(`^\d{10,16}$`)
	debitWords   = []string{"DEBIT", "PURCHASE", "PAYMENT"}
)

// HeaderMap binds column names to cell indexes.
type HeaderMap map[string]int

// Index returns the bound cell index of a column.
func (h HeaderMap) Index(column string) (int, bool) {
	i, ok := h[column]
	return i, ok
}

// ResolveHeader binds each column to the first header cell, left to right,
// containing one of its synonyms. A cell is bound to at most one column.
func ResolveHeader(cells []string) (HeaderMap, error) {
	h := make(HeaderMap)
	bound := make(map[int]bool)
	for _, field := range headerSynonyms {
		for i, cell := range cells {
			if bound[i] {
				continue
			}
			if containsAny(strings.ToLower(strings.TrimSpace(cell)), field.synonyms) {
				h[field.column] = i
				bound[i] = true
				break
			}
		}
	}

	var missing []string
	for _, c := range requiredColumns {
		if _, ok := h[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return h, &MissingColumnsError{Missing: missing}
	}
	return h, nil
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ExtractRows turns tabular rows into a statement. The header row is the
// first row, among the leading rows, that resolves every required column.
func ExtractRows(rows [][]string, bank domain.Bank) (*domain.Statement, error) {
	headerAt := -1
	var header HeaderMap
	var firstErr error
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if isBlankRow(rows[i]) {
			continue
		}
		h, err := ResolveHeader(rows[i])
		if err == nil {
			headerAt, header = i, h
			break
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if headerAt < 0 {
		if firstErr == nil {
			firstErr = &MissingColumnsError{Missing: requiredColumns}
		}
		return nil, firstErr
	}

	st := &domain.Statement{Account: domain.AccountInfo{Bank: bank}}
	var closing decimal.Decimal
	dataRows := 0

	for _, row := range rows[headerAt+1:] {
		if isBlankRow(row) {
			continue
		}
		dataRows++
		if st.Account.AccountNumber == "" && dataRows <= accountScanRows {
			st.Account.AccountNumber = findAccountNumber(row, header)
		}

		tx, ok := parseRow(row, header, bank)
		if !ok {
			continue
		}
		if tx.Balance != nil && !tx.Balance.IsZero() {
			closing = *tx.Balance
		}
		st.Transactions = append(st.Transactions, tx)
	}

	if st.Account.AccountNumber == "" {
		for _, row := range rows[:headerAt] {
			if n := findAccountNumber(row, nil); n != "" {
				st.Account.AccountNumber = n
				break
			}
		}
	}
	st.Account.CurrentBalance = closing
	return st, nil
}

func parseRow(row []string, header HeaderMap, bank domain.Bank) (*domain.Transaction, bool) {
	cell := func(column string) (string, bool) {
		i, ok := header.Index(column)
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	rawDate, _ := cell(ColumnDate)
	date, err := NormalizeDate(bank, rawDate)
	if err != nil {
		return nil, false
	}
	description, _ := cell(ColumnDescription)
	description = collapseSpaces(description)
	rawAmount, ok := cell(ColumnAmount)
	if !ok || rawAmount == "" {
		return nil, false
	}

	amount := ParseAmount(rawAmount).Abs()
	debit := IsNegativeAmount(rawAmount)
	if !debit {
		classifier, ok := cell(ColumnType)
		if !ok || classifier == "" {
			classifier = description
		}
		debit = containsAny(strings.ToUpper(classifier), debitWords)
	}

	tx := &domain.Transaction{
		Date:         date,
		Description:  description,
		Amount:       amount,
		Type:         domain.Credit,
		MerchantCore: merchant.ExtractCore(description),
		Reference:    merchant.ExtractReference(description),
	}
	if debit {
		tx.Amount = amount.Neg()
		tx.Type = domain.Debit
	}
	if rawBalance, ok := cell(ColumnBalance); ok && rawBalance != "" {
		b := ParseAmount(rawBalance)
		tx.Balance = &b
	}
	return tx, true
}

func findAccountNumber(row []string, header HeaderMap) string {
	if header != nil {
		if i, ok := header.Index(ColumnAccount); ok && i < len(row) {
			if n := digitsOnly(row[i]); accountToken.MatchString(n) {
				return n
			}
		}
	}
	for _, c := range row {
		for _, token := range strings.Fields(c) {
			if accountToken.MatchString(token) {
				return token
			}
		}
	}
	return ""
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
