package recurring

import (
	"strings"
	"unicode"

	"github.com/dvloznov/statement-core/internal/merchant"
)

// Subscription brands are grouped on the brand alone, whatever follows it.
var subscriptionBrands = []string{
	"NETFLIX", "SPOTIFY", "SHOWMAX", "DSTV", "APPLE", "GOOGLE",
	"YOUTUBE", "AMAZON", "DISNEY", "MICROSOFT", "ADOBE", "OPENAI",
}

var debitOrderKeywords = []string{"debit order", "d/o", "debit ord"}

// patternTokens is how many leading tokens form a non-brand pattern.
const patternTokens = 2

// ExtractPattern returns the group key of a transaction description: a known
// subscription brand on its own, otherwise up to the first two tokens of the
// normalized merchant name. A brand must be a whole word, so NETFLIX.COM
// counts as NETFLIX but AMAZONIA does not count as AMAZON.
func ExtractPattern(description string) string {
	normalized := merchant.NormalizeName(description)
	words := strings.FieldsFunc(normalized, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for _, brand := range subscriptionBrands {
			if w == brand {
				return brand
			}
		}
	}
	fields := strings.Fields(normalized)
	if len(fields) > patternTokens {
		fields = fields[:patternTokens]
	}
	return strings.Join(fields, " ")
}

// HasDebitOrderKeyword reports whether a description marks a debit order.
func HasDebitOrderKeyword(description string) bool {
	d := strings.ToLower(description)
	for _, k := range debitOrderKeywords {
		if strings.Contains(d, k) {
			return true
		}
	}
	return false
}
