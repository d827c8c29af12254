package merchant

import (
	"strings"
	"unicode/utf8"
)

// DefaultThreshold is the minimum similarity for two descriptions to count
// as the same merchant.
const DefaultThreshold = 0.7

// Scores returned by the similarity ladder.
const (
	ScoreExact        = 1.0
	ScoreCore         = 0.95
	ScoreAlias        = 0.9
	ScorePrefix       = 0.85
	ScoreCorePrefix   = 0.8
	ScoreContains     = 0.75
	levenshteinWeight = 0.7
	levenshteinMaxLen = 8
)

// Similarity scores how likely two descriptions name the same merchant.
// The first satisfied tier wins:
//
//	normalized equal                         1.0
//	cores equal (>= 2 chars)                 0.95
//	cores in the same alias group            0.9
//	normalized prefix                        0.85
//	core prefix (both >= 3 chars)            0.8
//	normalized containment (cores >= 4)      0.75
//	short cores (<= 8): levenshtein >= 0.7   scaled by 0.7
//
// Two blank descriptions are equal and score 1.0; a blank against a
// non-blank one scores 0. The score is symmetric in its arguments.
func Similarity(a, b string) float64 {
	return defaultTables.Similarity(a, b)
}

// Similarity scores two descriptions using the receiver's alias table.
func (t *Tables) Similarity(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == nb {
		return ScoreExact
	}
	if na == "" || nb == "" {
		return 0
	}

	ca, cb := ExtractCore(a), ExtractCore(b)
	la, lb := utf8.RuneCountInString(ca), utf8.RuneCountInString(cb)

	if ca == cb && la >= 2 {
		return ScoreCore
	}
	if t.IsAlias(ca, cb) {
		return ScoreAlias
	}
	if strings.HasPrefix(na, nb) || strings.HasPrefix(nb, na) {
		return ScorePrefix
	}
	if la >= 3 && lb >= 3 && (strings.HasPrefix(ca, cb) || strings.HasPrefix(cb, ca)) {
		return ScoreCorePrefix
	}
	if la >= 4 && lb >= 4 && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return ScoreContains
	}
	if la <= levenshteinMaxLen && lb <= levenshteinMaxLen {
		if sim := levenshteinSimilarity(ca, cb); sim >= DefaultThreshold {
			return sim * levenshteinWeight
		}
	}
	return 0
}

// IsFuzzyMatch reports whether two descriptions score at or above the
// threshold. A non-positive threshold selects DefaultThreshold.
func IsFuzzyMatch(a, b string, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return Similarity(a, b) >= threshold
}

func levenshteinSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
