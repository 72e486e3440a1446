// Package text cleans markup out of scraped strings and prepares them for keyword matching.
package text

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

var (
	strictPolicy = bluemonday.StrictPolicy()
	whitespace   = regexp.MustCompile(`\s+`)
	blockTags    = regexp.MustCompile(`(?i)<\s*/?\s*(p|br|div|li|tr|h[1-6])[^>]*>`)
)

// Clean strips tags, decodes entities and collapses whitespace.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	// keep block boundaries as word separators before tags disappear
	s = blockTags.ReplaceAllString(s, " ")
	s = strictPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Fold lower-cases s and removes diacritics so "Inscrições" and "inscricoes" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Truncate caps s at limit runes, replacing the tail with Ellipsis when it is cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	keep := limit - utf8.RuneCountInString(Ellipsis)
	if keep < 0 {
		keep = 0
	}
	r := []rune(s)
	return string(r[:keep]) + Ellipsis
}

// Join concatenates the non-empty parts with a single space.
func Join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}
