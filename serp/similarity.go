package serp

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// SimilarityTier is the coarse relatedness of two keywords.
type SimilarityTier string

const (
	SimilarityHigh   SimilarityTier = "high"
	SimilarityMedium SimilarityTier = "medium"
	SimilarityLow    SimilarityTier = "low"
)

const locationPrefixRunes = 2

// Similarity classifies how related candidate is to the main keyword.
// Containment either way is high. Otherwise the leading two characters of the
// main keyword, usually a place name, and the number of the main keyword's
// bigrams found in the candidate decide between high, medium and low.
func Similarity(main, candidate string) SimilarityTier {
	m, c := Normalize(main), Normalize(candidate)
	if m == "" || c == "" {
		return SimilarityLow
	}
	if strings.Contains(c, m) || strings.Contains(m, c) {
		return SimilarityHigh
	}

	runes := []rune(m)
	hasPrefix := len(runes) >= locationPrefixRunes &&
		strings.Contains(c, string(runes[:locationPrefixRunes]))
	overlap := bigramOverlap(runes, c)

	switch {
	case hasPrefix && overlap >= 1:
		return SimilarityHigh
	case hasPrefix || overlap >= 2:
		return SimilarityMedium
	}
	return SimilarityLow
}

// bigramOverlap counts the overlapping bigrams of main that occur in
// candidate, one per window position.
func bigramOverlap(main []rune, candidate string) int {
	n := 0
	for i := 0; i+1 < len(main); i++ {
		if strings.Contains(candidate, string(main[i:i+2])) {
			n++
		}
	}
	return n
}

// ScoredKeyword is a related keyword kept by FilterSimilar.
type ScoredKeyword struct {
	Keyword string         `json:"keyword"`
	Tier    SimilarityTier `json:"tier"`
	Score   float64        `json:"score"`
}

// FilterSimilar drops low-tier candidates and orders the rest high tier
// first, then by Jaro-Winkler similarity to the main keyword.
func FilterSimilar(main string, candidates []string) []ScoredKeyword {
	normMain := Normalize(main)
	var out []ScoredKeyword
	for _, c := range candidates {
		tier := Similarity(main, c)
		if tier == SimilarityLow {
			continue
		}
		out = append(out, ScoredKeyword{
			Keyword: c,
			Tier:    tier,
			Score:   matchr.JaroWinkler(normMain, Normalize(c), false),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier == SimilarityHigh
		}
		return out[i].Score > out[j].Score
	})
	return out
}
