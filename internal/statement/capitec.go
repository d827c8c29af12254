package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/statement-core/internal/domain"
)

var (
	capitecLine    = regexp.MustCompile(`^\s*(\d{2}/\d{2}/\d{4})\s*(.*)$`)
	capitecColumns = regexp.MustCompile(`\s{2,}|\|`)
	fullMoney      = regexp.MustCompile(`^` + moneyToken.String() + `$`)
)

// capitecFeeLimit is the value under which an unassigned amount is read as a fee.
var capitecFeeLimit = decimal.NewFromInt(50)

// capitecRoles holds the positional reading of a Capitec line's amounts.
type capitecRoles struct {
	in, out, fee, balance *decimal.Decimal
}

// ExtractCapitecLines parses Capitec statement text. Every transaction line
// starts with a DD/MM/YYYY date followed by pipe or space separated columns.
func ExtractCapitecLines(lines []string, bank domain.Bank) []*domain.Transaction {
	var txs []*domain.Transaction
	for _, line := range lines {
		m := capitecLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		date, err := NormalizeDate(bank, m[1])
		if err != nil {
			continue
		}

		var description string
		var values []decimal.Decimal
		for _, col := range capitecColumns.Split(m[2], -1) {
			col = strings.TrimSpace(col)
			if col == "" {
				continue
			}
			if fullMoney.MatchString(col) {
				values = append(values, ParseAmount(col))
				continue
			}
			if description == "" {
				description = col
			}
		}
		if len(values) == 0 {
			continue
		}

		roles := assignCapitecRoles(values)
		amount, ok := capitecAmount(roles, description)
		if !ok {
			continue
		}
		txs = append(txs, newTextTransaction(date, description, amount, roles.balance))
	}
	return txs
}

// assignCapitecRoles reads the final value as the balance when there is more
// than one. The rest are read left to right: the first positive value is
// money in, a value under the fee limit is the fee, anything else money out.
func assignCapitecRoles(values []decimal.Decimal) capitecRoles {
	var r capitecRoles
	rest := values
	if len(values) >= 2 {
		b := values[len(values)-1]
		r.balance = &b
		rest = values[:len(values)-1]
	}
	for i := range rest {
		v := rest[i]
		switch {
		case r.in == nil && v.IsPositive():
			r.in = &v
		case r.fee == nil && v.Abs().LessThan(capitecFeeLimit):
			r.fee = &v
		case r.out == nil:
			r.out = &v
		}
	}
	return r
}

// capitecAmount returns the signed transaction amount. A debit is the money
// out plus the fee; money in alone is a credit unless the description names
// an outgoing transaction.
func capitecAmount(r capitecRoles, description string) (decimal.Decimal, bool) {
	if r.out != nil || (r.fee != nil && r.in == nil) {
		total := decimal.Zero
		if r.out != nil {
			total = total.Add(r.out.Abs())
		}
		if r.fee != nil {
			total = total.Add(r.fee.Abs())
		}
		return total.Neg(), true
	}
	if r.in == nil {
		return decimal.Zero, false
	}
	if isCapitecDebit(description) {
		return r.in.Neg(), true
	}
	return *r.in, true
}

func isCapitecDebit(description string) bool {
	d := strings.ToUpper(description)
	switch {
	case strings.Contains(d, "PURCHASE"),
		strings.Contains(d, "WITHDRAWAL"),
		strings.Contains(d, "FEE"),
		strings.Contains(d, "SENT"),
		strings.Contains(d, "DEBIT ORDER"):
		return true
	case strings.Contains(d, "PAYMENT") && !strings.Contains(d, "RECEIVED"):
		return true
	case strings.Contains(d, "TRANSFER") && !strings.Contains(d, "FROM"):
		return true
	}
	return false
}
