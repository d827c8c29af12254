package statement

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
)

// Preferred date layouts per bank. Banks not listed use slash layouts.
var bankDateLayouts = map[domain.Bank][]string{
	domain.Capitec:      {"2006/01/02", "02/01/2006"},
	domain.FNB:          {"02/01/2006", "2006/01/02"},
	domain.StandardBank: {"02/01/2006", "2006/01/02"},
	domain.ABSA:         {"2006-01-02", "02/01/2006"},
	domain.Nedbank:      {"02-01-2006", "02/01/2006"},
}

var defaultDateLayouts = []string{"2006/01/02", "02/01/2006"}

// Tried after the bank's own layouts.
var fallbackDateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"2006/1/2",
	"2/1/2006",
	"2-1-2006",
	"02/01/06",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"2 Jan 06",
	"02Jan2006",
	"20060102",
}

// NormalizeDate converts a raw statement date into YYYY-MM-DD using the
// bank's date layout first, then common South African layouts.
func NormalizeDate(bank domain.Bank, raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("NormalizeDate: empty date")
	}

	layouts, ok := bankDateLayouts[bank]
	if !ok {
		layouts = defaultDateLayouts
	}
	for _, group := range [][]string{layouts, fallbackDateLayouts} {
		for _, layout := range group {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(domain.DateLayout), nil
			}
		}
	}
	return "", fmt.Errorf("NormalizeDate: unrecognized date %q", raw)
}

var (
	currencyPrefix = regexp.MustCompile(`(?i)^(?:ZAR|R)\s*`)
	drcrSuffix     = regexp.MustCompile(`(?i)\s*(CR|DR)$`)
	amountStrip    = strings.NewReplacer(" ", "", "\u00a0", "", "\t", "", ",", "", "$", "", "€", "", "£", "")
)

// ParseAmount converts a raw money string into a decimal. The currency
// symbol, whitespace and thousands separators are stripped; parentheses,
// a leading or trailing minus, or a DR suffix mark a negative value.
// Text that is not a number yields zero.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if m := drcrSuffix.FindStringSubmatch(s); m != nil {
		if strings.EqualFold(m[1], "DR") {
			negative = true
		}
		s = s[:len(s)-len(m[0])]
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	}
	s = currencyPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	s = amountStrip.Replace(s)
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		return d.Neg()
	}
	return d
}

// IsNegativeAmount reports whether raw money text denotes a negative value.
func IsNegativeAmount(raw string) bool {
	return ParseAmount(raw).IsNegative() || strings.Contains(raw, "-")
}
