package merchant

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	feeWords      = regexp.MustCompile(`\b(?:FEE|FEES|CHARGE|CHARGES|LEVY)\b`)
	atmWords      = regexp.MustCompile(`\bATM\b|\bCASH WITHDRAWAL\b|\bCASH WDL\b`)
	cashDeposit   = regexp.MustCompile(`\bCASH DEPOSIT\b|\bCASH DEP\b`)
	cashSend      = regexp.MustCompile(`\bCASH ?SEND\b|\bSEND ?CASH\b`)
	transferWords = regexp.MustCompile(`\bTRANSFER\b|\bTRF\b|\bIB TRANSFER\b`)
	transferFrom  = regexp.MustCompile(`\bFROM\s+(.+)$`)
	transferTo    = regexp.MustCompile(`\bTO\s+(.+)$`)
	proxyWords    = regexp.MustCompile(`\bPAY ?SHAP\b|\bPROXY\b`)
	airtimeWords  = regexp.MustCompile(`\bAIRTIME\b|\bPREPAID\b|\bDATA BUNDLE\b|\bBUNDLE\b`)
	phoneNumber   = regexp.MustCompile(`\b0\d{9}\b|\+27\d{9}\b`)
)

// SmartDisplayName turns raw description text into a readable label for
// presentation and recurring-item naming. Rules run in a fixed order: fee
// phrasing, ATM and cash, transfer direction, proxy payments, airtime,
// payment-gateway prefixes, noise removal, brand lookup and finally
// location-abbreviation expansion. It is never used for matching.
func SmartDisplayName(description string) string {
	return defaultTables.SmartDisplayName(description)
}

// SmartDisplayName builds a display label using the receiver's tables.
func (t *Tables) SmartDisplayName(description string) string {
	upper := collapse(strings.ToUpper(description))
	if upper == "" {
		return ""
	}

	if label, ok := t.activityLabel(upper); ok {
		return label
	}

	stripped := t.stripGateway(upper)
	cleaned := t.stripNoise(Clean(stripped))
	if cleaned == "" {
		return titleCase(upper)
	}
	if brand, ok := t.LookupBrand(cleaned); ok {
		return brand.Name
	}
	return t.expandLocations(cleaned)
}

// MappingName returns the merchant text worth keeping as a mapping row for
// a description: gateway prefix, noise words and transaction tokens removed.
// ok is false for bank activity such as fees, cash, transfers or airtime,
// and when the remaining core is shorter than three characters.
func MappingName(description string) (string, bool) {
	upper := collapse(strings.ToUpper(description))
	if upper == "" {
		return "", false
	}
	if _, ok := defaultTables.activityLabel(upper); ok {
		return "", false
	}
	name := defaultTables.stripNoise(Clean(defaultTables.stripGateway(upper)))
	if utf8.RuneCountInString(ExtractCore(name)) < 3 {
		return "", false
	}
	return name, true
}

// activityLabel labels fees, cash, transfers, proxy payments and airtime.
func (t *Tables) activityLabel(upper string) (string, bool) {
	if feeWords.MatchString(upper) {
		for _, f := range t.Fees {
			if strings.Contains(upper, f.Contains) {
				return f.Label, true
			}
		}
		return "Bank Fee", true
	}

	switch {
	case cashSend.MatchString(upper):
		return "Cash Send", true
	case cashDeposit.MatchString(upper):
		return "Cash Deposit", true
	case atmWords.MatchString(upper):
		return "ATM Withdrawal", true
	}

	if transferWords.MatchString(upper) {
		if m := transferFrom.FindStringSubmatch(upper); m != nil {
			if who := t.label(m[1]); who != "" {
				return "Transfer from " + who, true
			}
		}
		if m := transferTo.FindStringSubmatch(upper); m != nil {
			if who := t.label(m[1]); who != "" {
				return "Transfer to " + who, true
			}
		}
		return "Transfer", true
	}

	if proxyWords.MatchString(upper) {
		if m := transferTo.FindStringSubmatch(upper); m != nil && !phoneNumber.MatchString(m[1]) {
			if who := t.label(m[1]); who != "" {
				return "PayShap to " + who, true
			}
		}
		return "PayShap Payment", true
	}

	if airtimeWords.MatchString(upper) {
		padded := " " + upper + " "
		for _, n := range t.Networks {
			if strings.Contains(padded, " "+n.Key+" ") {
				return n.Name + " Airtime", true
			}
		}
		return "Airtime", true
	}

	return "", false
}

// CategoryFor returns the budget category of a known brand, or "".
func CategoryFor(description string) string {
	cleaned := defaultTables.stripNoise(Clean(defaultTables.stripGateway(strings.ToUpper(description))))
	if brand, ok := defaultTables.LookupBrand(cleaned); ok {
		return brand.Category
	}
	return ""
}

func (t *Tables) label(raw string) string {
	cleaned := t.stripNoise(Clean(raw))
	if cleaned == "" {
		return ""
	}
	if brand, ok := t.LookupBrand(cleaned); ok {
		return brand.Name
	}
	return t.expandLocations(cleaned)
}

func (t *Tables) stripGateway(s string) string {
	for _, prefix := range t.Gateways {
		if strings.HasPrefix(s, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	return s
}

func (t *Tables) stripNoise(s string) string {
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if !t.noiseSet[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

func (t *Tables) expandLocations(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if full, ok := t.Locations[f]; ok && i > 0 {
			fields[i] = full
			continue
		}
		fields[i] = titleWord(f)
	}
	return strings.Join(fields, " ")
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = titleWord(f)
	}
	return strings.Join(fields, " ")
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	lower := []rune(strings.ToLower(w))
	lower[0] = []rune(strings.ToUpper(string(lower[0])))[0]
	return string(lower)
}
