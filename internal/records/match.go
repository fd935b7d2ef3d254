package records

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	// phoneticThreshold is the minimum Jaro-Winkler score for a candidate
	// that already shares a Double Metaphone code with the query.
	phoneticThreshold = 0.70

	// fuzzyThreshold is the minimum Jaro-Winkler score for a candidate with
	// no phonetic overlap at all.
	fuzzyThreshold = 0.85
)

// nameMatcher ranks person names against a spoken or misspelled query.
//
// The matching proceeds in two stages: Double Metaphone codes filter
// candidates that sound like the query ("Smyth" vs "Smith"), then
// Jaro-Winkler similarity ranks them. Candidates without phonetic overlap
// are only accepted at the higher fuzzy threshold. Multi-word names are
// compared full-string, concatenated, and best-pairwise-token so that a
// single-surname query still finds "John Smith".
type nameMatcher struct{}

func newNameMatcher() *nameMatcher { return &nameMatcher{} }

// scored is an index into the candidate list with its ranking score.
type scored struct {
	index int
	score float64
}

// rank returns the candidate indices whose names match the query, most
// similar first. An empty query matches nothing.
func (m *nameMatcher) rank(query string, names []string) []scored {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	queryTokens := strings.Fields(query)
	queryCodes := metaphoneCodes(queryTokens)

	var hits []scored
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		nameTokens := strings.Fields(name)

		score := bestSimilarity(queryTokens, nameTokens, query, name)
		threshold := fuzzyThreshold
		if codesOverlap(queryCodes, metaphoneCodes(nameTokens)) {
			threshold = phoneticThreshold
		}
		if score >= threshold {
			hits = append(hits, scored{index: i, score: score})
		}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})
	return hits
}

// metaphoneCodes returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func metaphoneCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestSimilarity computes the highest Jaro-Winkler similarity between query
// and candidate using three strategies: full strings, space-stripped
// strings, and the best pairwise token score.
func bestSimilarity(queryTokens, nameTokens []string, queryFull, nameFull string) float64 {
	score := matchr.JaroWinkler(queryFull, nameFull, false)

	if len(queryTokens) > 1 || len(nameTokens) > 1 {
		concatQuery := strings.Join(queryTokens, "")
		concatName := strings.Join(nameTokens, "")
		if s := matchr.JaroWinkler(concatQuery, concatName, false); s > score {
			score = s
		}
	}

	for _, qt := range queryTokens {
		for _, nt := range nameTokens {
			if s := matchr.JaroWinkler(qt, nt, false); s > score {
				score = s
			}
		}
	}

	return score
}
