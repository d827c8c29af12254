package recurring

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/merchant"
)

// DetectionType names the rule that turned a group into a candidate.
type DetectionType string

const (
	ExplicitKeyword DetectionType = "explicit_keyword"
	ExactAmount     DetectionType = "exact_amount"
	MonthlyMerchant DetectionType = "monthly_merchant"
)

const (
	minMonths = 2
	// Largest distance of occurrences per month from one.
	cadenceTolerance = 0.3
)

// amountSpreadLimit bounds (max-min)/mean for monthly_merchant groups.
var amountSpreadLimit = decimal.RequireFromString("0.15")

// Group accumulates the transactions sharing one pattern.
type Group struct {
	Pattern     string
	Description string // first member's description
	Amounts     []decimal.Decimal
	Months      map[string]bool // YYYY-MM
	Keyword     bool
}

// Candidate is a provisional recurring-payment finding.
type Candidate struct {
	Pattern       string
	DisplayName   string
	AverageAmount decimal.Decimal
	DetectionType DetectionType
	Occurrences   int
}

// GroupTransactions buckets debit transactions by pattern, in order of first
// appearance. Credits and descriptions without a pattern are ignored.
func GroupTransactions(txs []*domain.Transaction) []*Group {
	index := make(map[string]*Group)
	var groups []*Group
	for _, tx := range txs {
		if !tx.Amount.IsNegative() {
			continue
		}
		pattern := ExtractPattern(tx.Description)
		if pattern == "" || len(tx.Date) < 7 {
			continue
		}
		g, ok := index[pattern]
		if !ok {
			g = &Group{Pattern: pattern, Description: tx.Description, Months: make(map[string]bool)}
			index[pattern] = g
			groups = append(groups, g)
		}
		g.Amounts = append(g.Amounts, tx.Amount.Abs())
		g.Months[tx.Date[:7]] = true
		if HasDebitOrderKeyword(tx.Description) {
			g.Keyword = true
		}
	}
	return groups
}

// Classify applies the detection rules in priority order and returns at most
// one candidate: a debit-order keyword, then an identical amount across
// months, then a roughly monthly cadence with a narrow amount spread.
func Classify(g *Group) (Candidate, bool) {
	n := len(g.Amounts)
	if n == 0 {
		return Candidate{}, false
	}
	c := Candidate{
		Pattern:     g.Pattern,
		DisplayName: merchant.SmartDisplayName(g.Description),
		Occurrences: n,
	}
	if c.DisplayName == "" {
		c.DisplayName = g.Pattern
	}
	months := len(g.Months)
	mean := decimal.Avg(g.Amounts[0], g.Amounts[1:]...)

	switch {
	case g.Keyword:
		c.DetectionType, c.AverageAmount = ExplicitKeyword, mean
	case n >= 2 && months >= minMonths && allEqual(g.Amounts):
		c.DetectionType, c.AverageAmount = ExactAmount, g.Amounts[0]
	case months >= minMonths && math.Abs(float64(n)/float64(months)-1) <= cadenceTolerance && narrowSpread(g.Amounts, mean):
		c.DetectionType, c.AverageAmount = MonthlyMerchant, mean
	default:
		return Candidate{}, false
	}
	c.AverageAmount = c.AverageAmount.Round(2)
	return c, true
}

func narrowSpread(amounts []decimal.Decimal, mean decimal.Decimal) bool {
	if mean.IsZero() {
		return false
	}
	spread := decimal.Max(amounts[0], amounts[1:]...).
		Sub(decimal.Min(amounts[0], amounts[1:]...)).
		Div(mean)
	return spread.LessThan(amountSpreadLimit)
}

func allEqual(amounts []decimal.Decimal) bool {
	for _, a := range amounts[1:] {
		if !a.Equal(amounts[0]) {
			return false
		}
	}
	return true
}
