package domain

// Bank is a supported South African bank variant.
type Bank string

const (
	FNB          Bank = "FNB"
	ABSA         Bank = "ABSA"
	StandardBank Bank = "StandardBank"
	Nedbank      Bank = "Nedbank"
	Capitec      Bank = "Capitec"
	Discovery    Bank = "Discovery"
	TymeBank     Bank = "TymeBank"
	BankZero     Bank = "BankZero"
	Investec     Bank = "Investec"
	UnknownBank  Bank = "Unknown"
)

var bankDisplayNames = map[Bank]string{
	FNB:          "FNB",
	ABSA:         "ABSA",
	StandardBank: "Standard Bank",
	Nedbank:      "Nedbank",
	Capitec:      "Capitec",
	Discovery:    "Discovery Bank",
	TymeBank:     "TymeBank",
	BankZero:     "Bank Zero",
	Investec:     "Investec",
	UnknownBank:  "Unknown",
}

// DisplayName returns the human-readable bank name.
func (b Bank) DisplayName() string {
	if name, ok := bankDisplayNames[b]; ok {
		return name
	}
	return bankDisplayNames[UnknownBank]
}

// ParseBank maps a bank name, as returned by the vision model or configured
// by a user, onto a Bank. Unrecognized names map to UnknownBank.
func ParseBank(name string) Bank {
	for b, display := range bankDisplayNames {
		if equalFoldCompact(name, string(b)) || equalFoldCompact(name, display) {
			return b
		}
	}
	return UnknownBank
}

// AccountType is the kind of account a statement covers.
type AccountType string

const (
	CheckingAccount AccountType = "checking"
	SavingsAccount  AccountType = "savings"
	CreditAccount   AccountType = "credit"
)

func equalFoldCompact(a, b string) bool {
	return compact(a) == compact(b)
}

func compact(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ' || c == '_' || c == '-':
			continue
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
