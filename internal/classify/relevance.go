package classify

import (
	"strings"

	"EditaisScanner/internal/text"
)

// RelevanceFilter is the three-tier keyword gate applied to every candidate before enrichment.
type RelevanceFilter struct {
	high   []string
	medium []string
	low    []string
}

// NewRelevanceFilter compiles the relevance tiers of t.
func NewRelevanceFilter(t Taxonomy) *RelevanceFilter {
	t = t.WithDefaults()
	return &RelevanceFilter{
		high:   foldAll(t.Relevance.High),
		medium: foldAll(t.Relevance.Medium),
		low:    foldAll(t.Relevance.Low),
	}
}

// IsRelevant reports whether s mentions a high keyword, two distinct medium keywords, or one
// medium keyword together with a low one.
func (f *RelevanceFilter) IsRelevant(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	folded := text.Fold(s)

	if containsAny(folded, f.high) {
		return true
	}

	medium := countMatches(folded, f.medium)
	switch {
	case medium >= 2:
		return true
	case medium == 1:
		return containsAny(folded, f.low)
	default:
		return false
	}
}

func countMatches(s string, keywords []string) int {
	n := 0
	for _, k := range keywords {
		if strings.Contains(s, k) {
			n++
		}
	}
	return n
}
