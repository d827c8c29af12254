package vision

import (
	"strings"

	"github.com/dvloznov/statement-core/internal/domain"
)

// Categories is the closed set of categories the model may assign.
var Categories = []string{
	"Groceries",
	"Dining",
	"Transport",
	"Fuel",
	"Utilities",
	"Airtime & Data",
	"Subscriptions",
	"Insurance",
	"Medical",
	"Shopping",
	"Entertainment",
	"Education",
	"Housing",
	"Loans & Credit",
	"Bank Fees",
	"Transfers",
	"Cash",
	"Income",
	"Savings & Investments",
	"Other",
}

// FallbackCategory replaces categories outside the closed set.
const FallbackCategory = "Other"

var supportedBanks = []domain.Bank{
	domain.FNB, domain.ABSA, domain.StandardBank, domain.Nedbank, domain.Capitec,
	domain.Discovery, domain.TymeBank, domain.BankZero, domain.Investec,
}

const merchantHints = `South African merchant hints:
- Groceries: Checkers, Shoprite, Pick n Pay (PNP), Woolworths (WW), Spar, Food Lover's Market, Makro.
- Fuel: Engen, Shell, BP, Sasol, Caltex, TotalEnergies, Astron.
- Dining: KFC, Nando's, Steers, Wimpy, Spur, McDonald's, Debonairs, Mugg & Bean, Uber Eats, Mr D.
- Transport: Uber, Bolt, Gautrain, e-toll, SANRAL.
- Airtime & Data: Vodacom, MTN, Cell C, Telkom, Rain.
- Subscriptions: Netflix, Showmax, DStv, Spotify, Apple, YouTube, Amazon Prime.
- Utilities: Eskom, City Power, municipal accounts, prepaid electricity.
- Insurance: Discovery, Old Mutual, Sanlam, OUTsurance, Momentum, Hollard.
- Bank Fees: monthly account fee, SMS notification fee, cash handling fee.`

// Prompt returns the fixed instruction set sent with every statement image.
func Prompt() string {
	banks := make([]string, 0, len(supportedBanks))
	for _, b := range supportedBanks {
		banks = append(banks, b.DisplayName())
	}

	var b strings.Builder
	b.WriteString("You are a parser for South African bank statements.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Read ALL transactions in the attached statement image.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n\n")
	b.WriteString("Output a single JSON object with these fields:\n")
	b.WriteString("- \"bankName\": string, one of: " + strings.Join(banks, ", ") + ", or \"Unknown\"\n")
	b.WriteString("- \"accountHolder\": string or null\n")
	b.WriteString("- \"transactions\": array of objects with:\n")
	b.WriteString("  - \"date\": string, ISO format \"YYYY-MM-DD\"\n")
	b.WriteString("  - \"description\": string, as printed on the statement\n")
	b.WriteString("  - \"amount\": number in ZAR (negative for debits / money OUT, positive for credits / money IN)\n")
	b.WriteString("  - \"category\": string, EXACTLY one of: " + strings.Join(Categories, ", ") + "\n")
	b.WriteString("  - \"balance_after\": number or null\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- All amounts are South African Rand (ZAR). Do not convert currencies.\n")
	b.WriteString("- If the statement has separate money in / money out / fee columns, combine them into one signed \"amount\".\n")
	b.WriteString("- If the running balance is missing, set \"balance_after\" to null.\n")
	b.WriteString("- If you are unsure of a category, use \"Other\".\n")
	b.WriteString("- If the image is not a bank statement or is unreadable, return {\"error\": \"<reason>\"} instead.\n\n")
	b.WriteString(merchantHints)
	b.WriteString("\n\nReturn ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"{\" and end with \"}\".\n")
	return b.String()
}
