package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/merchant"
)

// moneyToken matches a two-decimal monetary value with an optional sign,
// thousands separators and a Cr/Dr marker.
var moneyToken = regexp.MustCompile(`-?(?:\d{1,3}(?:[ ,]\d{3})+|\d+)\.\d{2}(?:\s?(?i:cr|dr)\b)?`)

// TextStrategy parses already-extracted document text lines into transactions.
type TextStrategy func(lines []string, bank domain.Bank) []*domain.Transaction

// Banks without an entry here use the generic strategy.
var textStrategies = map[domain.Bank]TextStrategy{
	domain.Capitec: ExtractCapitecLines,
}

// StrategyFor returns the text extraction strategy for a bank.
func StrategyFor(bank domain.Bank) TextStrategy {
	if s, ok := textStrategies[bank]; ok {
		return s
	}
	return ExtractGenericLines
}

var (
	accountNumberLine = regexp.MustCompile(`(?i)ACCOUNT[^\d\n]{0,30}(\d{10,16})\b`)
	holderLine        = regexp.MustCompile(`(?im)^[ \t]*(?:ACCOUNT HOLDER|NAME)[ \t]*:?[ \t]*(.*)$`)
)

// ExtractText parses document text with the strategy registered for the bank.
func ExtractText(content string, bank domain.Bank) *domain.Statement {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	st := &domain.Statement{
		Account:      domain.AccountInfo{Bank: bank},
		Transactions: StrategyFor(bank)(lines, bank),
	}

	if m := accountNumberLine.FindStringSubmatch(content); m != nil {
		st.Account.AccountNumber = m[1]
	}
	st.Account.AccountName = findHolder(content)

	for i := len(st.Transactions) - 1; i >= 0; i-- {
		if b := st.Transactions[i].Balance; b != nil && !b.IsZero() {
			st.Account.CurrentBalance = *b
			break
		}
	}
	return st
}

func findHolder(content string) string {
	loc := holderLine.FindStringSubmatchIndex(content)
	if loc == nil {
		return ""
	}
	if v := strings.TrimSpace(content[loc[2]:loc[3]]); v != "" {
		return collapseSpaces(v)
	}
	for _, line := range strings.Split(content[loc[1]:], "\n") {
		if v := strings.TrimSpace(line); v != "" {
			return collapseSpaces(v)
		}
	}
	return ""
}

// moneySpan is one monetary token located in a string.
type moneySpan struct {
	raw   string
	start int
	value decimal.Decimal
}

func findMoney(s string) []moneySpan {
	var spans []moneySpan
	for _, loc := range moneyToken.FindAllStringIndex(s, -1) {
		raw := s[loc[0]:loc[1]]
		spans = append(spans, moneySpan{raw: raw, start: loc[0], value: ParseAmount(raw)})
	}
	return spans
}

func newTextTransaction(date, description string, amount decimal.Decimal, balance *decimal.Decimal) *domain.Transaction {
	description = collapseSpaces(description)
	return &domain.Transaction{
		Date:         date,
		Description:  description,
		Amount:       amount,
		Balance:      balance,
		Type:         domain.DirectionOf(amount),
		MerchantCore: merchant.ExtractCore(description),
		Reference:    merchant.ExtractReference(description),
	}
}
