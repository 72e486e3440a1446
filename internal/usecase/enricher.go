package usecase

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"EditaisScanner/internal/classify"
	"EditaisScanner/internal/dates"
	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/logging"
	"EditaisScanner/internal/ports"
	"EditaisScanner/internal/scanner"
	"EditaisScanner/internal/text"
)

// DefaultDescriptionLimit is the persisted description bound downstream consumers rely on.
const DefaultDescriptionLimit = 500

// Column bounds of the editais table.
const (
	MaxTitleLength = 500
	MaxLinkLength  = 1000
)

// EnricherDeps wires the collaborators of the Enricher. Only Pages may be nil.
type EnricherDeps struct {
	Pages            ports.PageFetcher
	Dates            *dates.Inferencer
	Categorizer      *classify.Categorizer
	DescriptionLimit int
	Clock            func() time.Time
	Logger           *slog.Logger
}

// Enricher turns a relevant candidate into a fully populated Edital draft.
type Enricher struct {
	pages       ports.PageFetcher
	dates       *dates.Inferencer
	categorizer *classify.Categorizer
	limit       int
	clock       func() time.Time
	logger      *slog.Logger
}

// NewEnricher fills unset dependencies with the default policy and taxonomy.
func NewEnricher(deps EnricherDeps) *Enricher {
	e := &Enricher{
		pages:       deps.Pages,
		dates:       deps.Dates,
		categorizer: deps.Categorizer,
		limit:       deps.DescriptionLimit,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
	if e.dates == nil {
		e.dates = dates.NewInferencer(dates.DefaultPolicy())
	}
	if e.categorizer == nil {
		e.categorizer = classify.NewCategorizer(classify.DefaultTaxonomy())
	}
	if e.limit <= 0 {
		e.limit = DefaultDescriptionLimit
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.logger == nil {
		e.logger = logging.Discard()
	}
	return e
}

// Enrich fetches the linked page, infers the deadline, classifies and normalizes the candidate.
// Page fetch failures fall back to the candidate's own text. It reports false only when the
// candidate has no title or no resolvable link, or the link does not fit the link column.
func (e *Enricher) Enrich(ctx context.Context, src domain.Source, c domain.Candidate) (domain.Edital, bool) {
	title := text.Clean(c.Title)
	link := scanner.ResolveLink(src.URL, c.Link)
	if title == "" || link == "" {
		return domain.Edital{}, false
	}
	if utf8.RuneCountInString(link) > MaxLinkLength {
		e.logger.Warn("dropping candidate with oversized link", "source", src.Name, "length", utf8.RuneCountInString(link))
		return domain.Edital{}, false
	}

	description := text.Clean(c.Description)
	page := e.pageFor(ctx, c, link)
	if description == "" {
		description = page.Text
	}

	now := e.clock().UTC()
	published := e.publishedAt(c, now)
	deadline := e.deadline(page, description, title, c, now)
	description = text.Truncate(description, e.limit)

	return domain.Edital{
		Title:       text.Truncate(title, MaxTitleLength),
		Link:        link,
		Description: description,
		Deadline:    &deadline,
		PublishedAt: published,
		Category:    e.categorizer.Classify(text.Join(title, description)),
		SourceName:  src.Name,
		CreatedAt:   now,
	}, true
}

// pageFor reuses the page an extractor already downloaded and fetches the link otherwise.
func (e *Enricher) pageFor(ctx context.Context, c domain.Candidate, link string) domain.Page {
	if c.Page != nil {
		return *c.Page
	}
	if e.pages == nil {
		return domain.Page{}
	}
	page, err := e.pages.FetchPage(ctx, link)
	if err != nil {
		e.logger.Debug("page fetch failed, using candidate text", "url", link, "error", err)
		return domain.Page{}
	}
	return page
}

// deadline walks the resolution order; the last step never yields nil.
func (e *Enricher) deadline(page domain.Page, description, title string, c domain.Candidate, now time.Time) time.Time {
	for _, s := range []string{page.Text, description, title} {
		if d := e.dates.Infer(s); d != nil {
			return *d
		}
	}
	if page.Date != nil {
		return *page.Date
	}
	if c.PublishedAt != nil {
		return c.PublishedAt.UTC()
	}
	if d := e.dates.ParseLenient(c.PublishedRaw); d != nil {
		return *d
	}
	return e.dates.Policy().DefaultDeadline(now)
}

func (e *Enricher) publishedAt(c domain.Candidate, now time.Time) time.Time {
	if c.PublishedAt != nil {
		return c.PublishedAt.UTC()
	}
	if d := e.dates.ParseLenient(c.PublishedRaw); d != nil {
		return *d
	}
	return now
}
