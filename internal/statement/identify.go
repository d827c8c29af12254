package statement

import (
	"strings"

	"github.com/dvloznov/statement-core/internal/domain"
)

type bankMarker struct {
	bank  domain.Bank
	match func(name, content string) bool
}

func anyOf(markers ...string) func(name, content string) bool {
	return func(name, content string) bool {
		for _, m := range markers {
			if strings.Contains(name, m) || strings.Contains(content, m) {
				return true
			}
		}
		return false
	}
}

// bankMarkers is checked in order; the first match wins.
var bankMarkers = []bankMarker{
	{domain.Capitec, func(name, content string) bool {
		return (strings.Contains(content, "CAPITEC") && strings.Contains(content, "ACCOUNT STATEMENT")) ||
			strings.Contains(name, "CAPITEC")
	}},
	{domain.FNB, anyOf("FIRST NATIONAL BANK", "FNB")},
	{domain.ABSA, anyOf("ABSA")},
	{domain.StandardBank, anyOf("STANDARD BANK", "STANDARDBANK", "SBSA")},
	{domain.Nedbank, anyOf("NEDBANK")},
	{domain.Discovery, anyOf("DISCOVERY BANK", "DISCOVERY")},
	{domain.TymeBank, anyOf("TYMEBANK", "TYME BANK")},
	{domain.BankZero, anyOf("BANK ZERO", "BANKZERO")},
	{domain.Investec, anyOf("INVESTEC")},
}

var accountTypeMarkers = []struct {
	accountType domain.AccountType
	marker      string
}{
	{domain.CreditAccount, "CREDIT CARD"},
	{domain.SavingsAccount, "SAVINGS"},
}

// Identify classifies a statement by bank and account type using an ordered,
// case-insensitive keyword search over the file name and content.
func Identify(fileName, content string) (domain.Bank, domain.AccountType) {
	name := strings.ToUpper(fileName)
	upper := strings.ToUpper(content)

	bank := domain.UnknownBank
	for _, m := range bankMarkers {
		if m.match(name, upper) {
			bank = m.bank
			break
		}
	}

	accountType := domain.CheckingAccount
	for _, m := range accountTypeMarkers {
		if strings.Contains(upper, m.marker) || strings.Contains(name, m.marker) {
			accountType = m.accountType
			break
		}
	}

	return bank, accountType
}
