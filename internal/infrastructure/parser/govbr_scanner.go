package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/infrastructure/httpfetch"
	"EditaisScanner/internal/ports"
	"EditaisScanner/internal/scanner"
	"EditaisScanner/internal/text"
)

// feedSuffixes are trailing path segments that turn a gov.br listing into its feed.
var feedSuffixes = []string{"/rss", "/rss.xml", "/feed"}

var pathDatePattern = regexp.MustCompile(`/(\d{4})/(\d{2})(?:/|$)`)

// GovBRScanner reads the human listing page behind a gov.br news feed.
type GovBRScanner struct {
	downloader ports.Downloader
	logger     *slog.Logger
}

var _ scanner.Extractor = (*GovBRScanner)(nil)

// NewGovBRScanner wires the downloader used to fetch listing pages.
func NewGovBRScanner(downloader ports.Downloader, logger *slog.Logger) *GovBRScanner {
	return &GovBRScanner{downloader: downloader, logger: discardLogger(logger)}
}

// Kind implements scanner.Extractor.
func (s *GovBRScanner) Kind() domain.SourceKind {
	return domain.KindGovListing
}

// Extract yields one candidate per article block that carries a heading.
func (s *GovBRScanner) Extract(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	listing := StripFeedSuffix(src.URL)

	resp, err := s.downloader.Get(ctx, listing, configHeaders(src))
	if err != nil {
		return nil, fmt.Errorf("gov listing %s: %w", src.Name, err)
	}

	candidates, err := ParseGovListing(resp.URL, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gov listing %s: %w", src.Name, err)
	}

	s.logger.Debug("gov listing parsed", "source", src.Name, "url", listing, "entries", len(candidates))
	return candidates, nil
}

// ParseGovListing extracts candidates from a listing document; base resolves relative links.
func ParseGovListing(base string, body []byte) ([]domain.Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ParseError{Format: "html", Err: err}
	}
	httpfetch.StripNoise(doc)

	var candidates []domain.Candidate
	doc.Find("article").Each(func(_ int, block *goquery.Selection) {
		heading := block.Find("h1, h2, h3, h4").First()
		if heading.Length() == 0 {
			return
		}
		title := text.Clean(heading.Text())
		if title == "" {
			return
		}

		href, _ := heading.Find("a[href]").First().Attr("href")
		if strings.TrimSpace(href) == "" {
			href, _ = block.Find("a[href]").First().Attr("href")
		}
		link := scanner.ResolveLink(base, href)

		candidates = append(candidates, domain.Candidate{
			Title:       title,
			Description: httpfetch.SelectionText(block.Find(".description, .tileBody, .subtitle, p").First()),
			Link:        link,
			PublishedAt: dateFromPath(link),
		})
	})

	return candidates, nil
}

// StripFeedSuffix converts a gov.br feed URL into the listing page it syndicates.
func StripFeedSuffix(rawURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	lower := strings.ToLower(trimmed)
	for _, suffix := range feedSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return trimmed[:len(trimmed)-len(suffix)]
		}
	}
	return trimmed
}

// dateFromPath reads the coarse /YYYY/MM/ segment gov.br puts in news paths.
func dateFromPath(link string) *time.Time {
	u, err := url.Parse(link)
	if err != nil {
		return nil
	}
	m := pathDatePattern.FindStringSubmatch(u.Path)
	if m == nil {
		return nil
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return nil
	}
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return &t
}
