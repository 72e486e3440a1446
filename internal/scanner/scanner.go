package scanner

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"EditaisScanner/internal/domain"
)

// govBRHost is the publisher whose feeds are read through the government listing pages instead.
const govBRHost = "gov.br"

// Extractor turns one source's payload into candidates (feed, gov.br listing, web page, API).
type Extractor interface {
	Kind() domain.SourceKind
	Extract(ctx context.Context, src domain.Source) ([]domain.Candidate, error)
}

// Registry keeps a mapping from source kinds to their extractors.
type Registry struct {
	extractors map[domain.SourceKind]Extractor
}

// NewRegistry builds a registry holding the given extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{extractors: map[domain.SourceKind]Extractor{}}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds or replaces an extractor implementation.
func (r *Registry) Register(e Extractor) {
	if r.extractors == nil {
		r.extractors = map[domain.SourceKind]Extractor{}
	}
	r.extractors[e.Kind()] = e
}

// Select resolves the effective kind of src and returns its extractor.
func (r *Registry) Select(src domain.Source) (Extractor, error) {
	kind, err := ResolveKind(src)
	if err != nil {
		return nil, err
	}
	if e, ok := r.extractors[kind]; ok {
		return e, nil
	}
	return nil, &domain.ConfigError{SourceID: src.ID, Reason: fmt.Sprintf("no extractor registered for kind %q", kind)}
}

// ResolveKind maps a source to the strategy that reads it. The declared kind wins except for
// gov.br feeds, which are read from the human listing, and web pages explicitly configured with
// the govbr extractor.
func ResolveKind(src domain.Source) (domain.SourceKind, error) {
	kind := domain.SourceKind(strings.ToLower(strings.TrimSpace(string(src.Kind))))
	switch kind {
	case domain.KindFeed:
		if IsGovBR(src.URL) {
			return domain.KindGovListing, nil
		}
		return domain.KindFeed, nil
	case domain.KindWebPage:
		if strings.EqualFold(src.Config.String("extractor"), string(domain.KindGovListing)) {
			return domain.KindGovListing, nil
		}
		return domain.KindWebPage, nil
	case domain.KindGovListing, domain.KindAPI:
		return kind, nil
	case "":
		return "", &domain.ConfigError{SourceID: src.ID, Reason: "missing source kind"}
	default:
		return "", &domain.ConfigError{SourceID: src.ID, Reason: fmt.Sprintf("unsupported source kind %q", src.Kind)}
	}
}

// IsGovBR reports whether rawURL is served by the federal gov.br portal. State and agency
// subdomains publish regular feeds and are not matched.
func IsGovBR(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == govBRHost || host == "www."+govBRHost
}

// ResolveLink makes link absolute against the source URL. It returns "" when no absolute
// http(s) link can be produced.
func ResolveLink(base, link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	ref, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if !ref.IsAbs() {
		b, err := url.Parse(strings.TrimSpace(base))
		if err != nil || !b.IsAbs() {
			return ""
		}
		ref = b.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	ref.Fragment = ""
	return ref.String()
}
