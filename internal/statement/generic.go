package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
)

// Checked in priority order against every line.
var genericDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{2}/\d{2}/\d{4}\b`),
	regexp.MustCompile(`\b\d{4}/\d{2}/\d{2}\b`),
	regexp.MustCompile(`\b\d{2}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2} (?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]* \d{4}\b`),
}

var genericDebitWords = []string{"DEBIT", "PURCHASE", "PAYMENT", "WITHDRAWAL", "FEE", "LEVY"}

// minDescriptionLength is the length below which a description is taken
// from the following line instead.
const minDescriptionLength = 3

func findDate(line string) []int {
	for _, p := range genericDatePatterns {
		if loc := p.FindStringIndex(line); loc != nil {
			return loc
		}
	}
	return nil
}

// ExtractGenericLines parses statement text of banks without a dedicated
// layout. A transaction line holds a date followed by a description and one
// or more two-decimal amounts; with two or more the last is the balance.
func ExtractGenericLines(lines []string, bank domain.Bank) []*domain.Transaction {
	var txs []*domain.Transaction
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		loc := findDate(line)
		if loc == nil {
			continue
		}
		date, err := NormalizeDate(bank, line[loc[0]:loc[1]])
		if err != nil {
			continue
		}

		rest := line[loc[1]:]
		money := findMoney(rest)
		if len(money) == 0 {
			continue
		}

		description := strings.TrimSpace(rest[:money[0].start])
		if len(description) < minDescriptionLength && i+1 < len(lines) && findDate(lines[i+1]) == nil {
			description = strings.TrimSpace(lines[i+1])
			i++
		}

		amountToken := money[0]
		balance := decimal.Zero
		if len(money) >= 2 {
			amountToken = money[len(money)-2]
			balance = money[len(money)-1].value
		}

		amount := amountToken.value.Abs()
		if amountToken.value.IsNegative() || containsAny(strings.ToUpper(description), genericDebitWords) {
			amount = amount.Neg()
		}
		txs = append(txs, newTextTransaction(date, description, amount, &balance))
	}
	return txs
}
