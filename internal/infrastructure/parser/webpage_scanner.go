package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"EditaisScanner/internal/dates"
	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/infrastructure/httpfetch"
	"EditaisScanner/internal/ports"
	"EditaisScanner/internal/scanner"
	"EditaisScanner/internal/text"
)

// previewLength caps the page text carried by a whole-page candidate.
const previewLength = 1000

var dateShapePattern = regexp.MustCompile(`\b\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b`)

// WebPageScanner reads arbitrary HTML pages. By default the whole page is one candidate;
// a "selectors.articles" config splits it into blocks.
type WebPageScanner struct {
	downloader ports.Downloader
	dates      *dates.Inferencer
	logger     *slog.Logger
}

var _ scanner.Extractor = (*WebPageScanner)(nil)

// NewWebPageScanner wires the downloader and the date parser used for page dates.
func NewWebPageScanner(downloader ports.Downloader, inferencer *dates.Inferencer, logger *slog.Logger) *WebPageScanner {
	if inferencer == nil {
		inferencer = dates.NewInferencer(dates.DefaultPolicy())
	}
	return &WebPageScanner{downloader: downloader, dates: inferencer, logger: discardLogger(logger)}
}

// Kind implements scanner.Extractor.
func (s *WebPageScanner) Kind() domain.SourceKind {
	return domain.KindWebPage
}

// Extract fetches the page once and builds candidates from it.
func (s *WebPageScanner) Extract(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	resp, err := s.downloader.Get(ctx, src.URL, configHeaders(src))
	if err != nil {
		return nil, fmt.Errorf("web page %s: %w", src.Name, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("web page %s: %w", src.Name, &domain.ParseError{Format: "html", Err: err})
	}
	httpfetch.StripNoise(doc)

	selectors := src.Config.StringMap("selectors")
	if selectors["articles"] != "" {
		candidates := s.blocks(doc, resp.URL, selectors)
		s.logger.Debug("web page blocks parsed", "source", src.Name, "entries", len(candidates))
		return candidates, nil
	}

	c := s.wholePage(doc, src.URL)
	if page, err := httpfetch.ParseDocument(resp.URL, resp.Body, s.dates); err == nil {
		c.Page = &page
	}
	return []domain.Candidate{c}, nil
}

func (s *WebPageScanner) wholePage(doc *goquery.Document, link string) domain.Candidate {
	body := httpfetch.MainText(doc)
	if body == "" {
		body = httpfetch.SelectionText(doc.Find("body"))
	}

	c := domain.Candidate{
		Title:       httpfetch.PageTitle(doc),
		Description: text.Truncate(body, previewLength),
		Link:        link,
	}
	if raw := dateShapePattern.FindString(body); raw != "" {
		c.PublishedRaw = raw
		c.PublishedAt = s.dates.ParseLenient(raw)
	}
	return c
}

func (s *WebPageScanner) blocks(doc *goquery.Document, base string, selectors map[string]string) []domain.Candidate {
	titleSel := selectorOr(selectors, "title", "h1, h2, h3, h4")
	descSel := selectorOr(selectors, "description", "p")
	linkSel := selectorOr(selectors, "link", "a[href]")
	dateSel := selectors["date"]

	var candidates []domain.Candidate
	doc.Find(selectors["articles"]).Each(func(_ int, block *goquery.Selection) {
		title := text.Clean(block.Find(titleSel).First().Text())
		href, _ := block.Find(linkSel).First().Attr("href")
		if title == "" && strings.TrimSpace(href) == "" {
			return
		}

		c := domain.Candidate{
			Title:       title,
			Description: httpfetch.SelectionText(block.Find(descSel).First()),
			Link:        scanner.ResolveLink(base, href),
		}
		if dateSel != "" {
			raw := text.Clean(block.Find(dateSel).First().Text())
			if raw != "" {
				c.PublishedRaw = raw
				c.PublishedAt = s.dates.ParseLenient(raw)
			}
		}
		candidates = append(candidates, c)
	})
	return candidates
}

func selectorOr(selectors map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(selectors[key]); v != "" {
		return v
	}
	return fallback
}
