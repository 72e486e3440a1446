package classify

import (
	"strings"

	"github.com/samber/lo"

	"EditaisScanner/internal/text"
)

type foldedCategory struct {
	label    string
	keywords []string
}

// Categorizer maps text to one taxonomy label. It is safe for concurrent use.
type Categorizer struct {
	categories   []foldedCategory
	fallbacks    []foldedCategory
	defaultLabel string
}

// NewCategorizer compiles the taxonomy; missing sections fall back to DefaultTaxonomy.
func NewCategorizer(t Taxonomy) *Categorizer {
	t = t.WithDefaults()
	return &Categorizer{
		categories:   foldCategories(t.Categories),
		fallbacks:    foldCategories(t.Fallbacks),
		defaultLabel: t.DefaultLabel,
	}
}

// Classify returns the first matching category label, then the first fallback label, then the
// default label. Empty text has no category.
func (c *Categorizer) Classify(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	folded := text.Fold(s)
	for _, group := range [][]foldedCategory{c.categories, c.fallbacks} {
		for _, cat := range group {
			if containsAny(folded, cat.keywords) {
				return lo.ToPtr(cat.label)
			}
		}
	}
	return lo.ToPtr(c.defaultLabel)
}

// Labels lists every label the categorizer can produce, in precedence order. The listing API
// serves it as the category list while storage holds no categories yet.
func (c *Categorizer) Labels() []string {
	labels := make([]string, 0, len(c.categories)+len(c.fallbacks)+1)
	for _, cat := range c.categories {
		labels = append(labels, cat.label)
	}
	for _, cat := range c.fallbacks {
		labels = append(labels, cat.label)
	}
	labels = append(labels, c.defaultLabel)
	return lo.Uniq(labels)
}

func foldCategories(in []Category) []foldedCategory {
	return lo.Map(in, func(cat Category, _ int) foldedCategory {
		return foldedCategory{label: cat.Label, keywords: foldAll(cat.Keywords)}
	})
}

func foldAll(keywords []string) []string {
	folded := lo.Map(keywords, func(k string, _ int) string {
		return strings.TrimSpace(text.Fold(k))
	})
	return lo.Uniq(lo.Without(folded, ""))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
