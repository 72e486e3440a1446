package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"

	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/ports"
	"EditaisScanner/internal/scanner"
)

// FeedScanner reads RSS and Atom feeds.
type FeedScanner struct {
	downloader ports.Downloader
	logger     *slog.Logger
}

var _ scanner.Extractor = (*FeedScanner)(nil)

// NewFeedScanner wires the downloader used to fetch feed documents.
func NewFeedScanner(downloader ports.Downloader, logger *slog.Logger) *FeedScanner {
	return &FeedScanner{downloader: downloader, logger: discardLogger(logger)}
}

// Kind implements scanner.Extractor.
func (s *FeedScanner) Kind() domain.SourceKind {
	return domain.KindFeed
}

// Extract yields one candidate per feed entry. Entries are not filtered here.
func (s *FeedScanner) Extract(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	resp, err := s.downloader.Get(ctx, src.URL, configHeaders(src))
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", src.Name, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", src.Name, &domain.ParseError{Format: "feed", Err: err})
	}

	candidates := make([]domain.Candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		candidates = append(candidates, feedCandidate(item, resp.URL))
	}

	s.logger.Debug("feed parsed", "source", src.Name, "entries", len(candidates))
	return candidates, nil
}

func feedCandidate(item *gofeed.Item, base string) domain.Candidate {
	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}

	link := item.Link
	if link == "" && strings.HasPrefix(item.GUID, "http") {
		link = item.GUID
	}

	c := domain.Candidate{
		Title:        item.Title,
		Description:  body,
		Link:         scanner.ResolveLink(base, link),
		PublishedRaw: item.Published,
	}
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		c.PublishedAt = &t
	}
	return c
}
