package merchant

import (
	"strings"

	"github.com/dvloznov/statement-core/internal/domain"
)

// Match is the outcome of a best-match search.
type Match struct {
	Record *domain.MerchantRecord
	Score  float64
}

// FindBestMatch scans candidates for the merchant named by target.
// An exact normalized match returns immediately with score 1.0. A stored
// pattern equal to the target core scores 0.95 and the scan continues.
// Otherwise the highest similarity at or above threshold is kept.
// ok is false when nothing reaches the threshold.
func FindBestMatch(target string, candidates []*domain.MerchantRecord, threshold float64) (Match, bool) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	normalized := NormalizeName(target)
	if normalized == "" {
		return Match{}, false
	}
	core := ExtractCore(target)

	var best Match
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if NormalizeName(c.Name) == normalized {
			return Match{Record: c, Score: ScoreExact}, true
		}

		var score float64
		if pattern := strings.ToUpper(strings.TrimSpace(c.Pattern)); pattern != "" && pattern == core {
			score = ScoreCore
		} else {
			score = Similarity(target, c.Name)
		}

		if score >= threshold && score > best.Score {
			best = Match{Record: c, Score: score}
		}
	}

	return best, best.Record != nil
}
