package domain

import (
	"fmt"
	"time"
)

// SourceKind identifies how a source payload is extracted.
type SourceKind string

const (
	KindFeed       SourceKind = "rss"
	KindGovListing SourceKind = "govbr"
	KindWebPage    SourceKind = "webpage"
	KindAPI        SourceKind = "api"
)

// DefaultCategory is the catch-all taxonomy label.
const DefaultCategory = "Outros"

// Source is a configured origin polled for editais. It is owned by the external registry.
type Source struct {
	ID        int64
	Name      string
	URL       string
	Kind      SourceKind
	Active    bool
	Config    SourceConfig
	LastRunAt *time.Time
}

// SourceConfig holds free-form extractor hints decoded from the source's JSON config column.
type SourceConfig map[string]any

// String returns the config value under key rendered as a string, or "" when absent.
func (c SourceConfig) String(key string) string {
	v, ok := c[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// StringMap returns a nested string map (headers, params, selectors).
func (c SourceConfig) StringMap(key string) map[string]string {
	out := map[string]string{}
	switch raw := c[key].(type) {
	case map[string]string:
		for k, v := range raw {
			out[k] = v
		}
	case map[string]any:
		for k, v := range raw {
			if v == nil {
				continue
			}
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

// Candidate is an unvalidated item produced by an extractor.
type Candidate struct {
	Title       string
	Description string
	// Link may be relative to the source URL.
	Link        string
	PublishedAt *time.Time
	// PublishedRaw is the untouched publication field of the entry, parsed as a late fallback.
	PublishedRaw string
	// Page is set when the candidate is the downloaded page itself; enrichment reuses it.
	Page *Page
}

// Edital is the persisted discovered notice. Link is its identity.
type Edital struct {
	ID          int64
	Title       string
	Link        string
	Description string
	Deadline    *time.Time
	PublishedAt time.Time
	Category    *string
	SourceName  string
	CreatedAt   time.Time
}

// Page is the opportunistic extraction of a fetched document.
type Page struct {
	URL   string
	Title string
	Text  string
	Date  *time.Time
}
