package merchant

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNameLength caps normalized merchant names, in characters.
const MaxNameLength = 100

var (
	segmentSplit = regexp.MustCompile(`\s{2,}|\|`)
	whitespace   = regexp.MustCompile(`\s+`)

	cardMask = regexp.MustCompile(`\b\d{4,6}[*X]{2,}\d{2,4}\b|[*X]{4,}\d{2,4}\b|\*{2,}\d{2,4}\b|\b\d{4}(?:[ -]?[X*]{4}){2}[ -]?\d{4}\b`)
	dates    = regexp.MustCompile(`\b\d{4}[/-]\d{2}[/-]\d{2}\b|\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b|\b\d{1,2} ?(?:JAN(?:UARY)?|FEB(?:RUARY)?|MAR(?:CH)?|APR(?:IL)?|MAY|JUNE?|JULY?|AUG(?:UST)?|SEPT?(?:EMBER)?|OCT(?:OBER)?|NOV(?:EMBER)?|DEC(?:EMBER)?)\b(?: \d{4}\b)?`)
	times    = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\b`)
	refs     = regexp.MustCompile(`\bREF(?:ERENCE)?(?:\s*(?:NO|NUMBER|NR))?[\s:#.]*[A-Z0-9-]*\d[A-Z0-9-]*`)
	tokens   = regexp.MustCompile(`\b(?:PURCHASE|DEBIT|CREDIT|PAYMENT|TRANSFER|POS|ATM|EFT)\b`)
	digitRun = regexp.MustCompile(`\b\d{6,}\b`)

	refValue      = regexp.MustCompile(`\bREF(?:ERENCE)?(?:\s*(?:NO|NUMBER|NR))?[\s:#.]*([A-Z0-9-]*\d[A-Z0-9-]*)`)
	trailingDigit = regexp.MustCompile(`\b(\d{6,})\s*$`)
)

// Clean strips transaction noise from raw bank description text: the
// PURCHASE/DEBIT/CREDIT/PAYMENT/TRANSFER/POS/ATM/EFT tokens, card masks,
// embedded dates and times, reference numbers and long digit runs. When the
// text holds several column segments only the first non-empty one is kept.
// The result is uppercase with single spaces.
func Clean(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	for _, segment := range segmentSplit.Split(s, -1) {
		cleaned := cleanSegment(segment)
		if cleaned != "" {
			return cleaned
		}
	}
	return ""
}

func cleanSegment(s string) string {
	s = cardMask.ReplaceAllString(s, " ")
	s = refs.ReplaceAllString(s, " ")
	s = dates.ReplaceAllString(s, " ")
	s = times.ReplaceAllString(s, " ")
	s = tokens.ReplaceAllString(s, " ")
	s = digitRun.ReplaceAllString(s, " ")
	s = strings.Trim(s, " -*#:/.,")
	return collapse(s)
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// NormalizeName returns the canonical uppercase form of a merchant
// description, at most MaxNameLength characters long. Text made only of
// noise falls back to its collapsed uppercase form. A cut at the length
// limit is cleaned again until the name no longer changes.
func NormalizeName(raw string) string {
	s := normalizeOnce(raw)
	for {
		next := normalizeOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func normalizeOnce(raw string) string {
	s := Clean(raw)
	if s == "" {
		s = collapse(strings.ToUpper(raw))
	}
	return truncate(s, MaxNameLength)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit]))
}

var articles = map[string]bool{"THE": true, "A": true, "AN": true}

// ExtractCore returns the leading identity token of a merchant description.
// A leading article is dropped; the first token wins when it is at least two
// characters long, otherwise the whole normalized string is returned.
func ExtractCore(raw string) string {
	fields := strings.Fields(NormalizeName(raw))
	if len(fields) > 1 && articles[fields[0]] {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return ""
	}
	if utf8.RuneCountInString(fields[0]) >= 2 {
		return fields[0]
	}
	return strings.Join(fields, " ")
}

// ExtractReference returns the reference carried by a description: the value
// after REF/REFERENCE, or a trailing run of six or more digits.
func ExtractReference(raw string) string {
	s := strings.ToUpper(raw)
	if m := refValue.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	if m := trailingDigit.FindStringSubmatch(strings.TrimSpace(s)); m != nil {
		return m[1]
	}
	return ""
}
