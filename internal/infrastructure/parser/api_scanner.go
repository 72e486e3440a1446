package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/samber/lo"

	"EditaisScanner/internal/dates"
	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/ports"
	"EditaisScanner/internal/scanner"
)

// recordKeys are the envelope keys probed for the record list, in order.
var recordKeys = []string{"items", "data", "results", "records", "entries", "editais"}

// Default field aliases; a configured "<field>_field" is always tried first.
var (
	titleAliases       = []string{"title", "name", "nome"}
	descriptionAliases = []string{"description", "summary", "descricao"}
	linkAliases        = []string{"link", "url"}
	dateAliases        = []string{"date", "created_at", "published_at"}
)

// APIScanner reads JSON endpoints.
type APIScanner struct {
	downloader ports.Downloader
	dates      *dates.Inferencer
	logger     *slog.Logger
}

var _ scanner.Extractor = (*APIScanner)(nil)

// NewAPIScanner wires the downloader and the lenient date parser.
func NewAPIScanner(downloader ports.Downloader, inferencer *dates.Inferencer, logger *slog.Logger) *APIScanner {
	if inferencer == nil {
		inferencer = dates.NewInferencer(dates.DefaultPolicy())
	}
	return &APIScanner{downloader: downloader, dates: inferencer, logger: discardLogger(logger)}
}

// Kind implements scanner.Extractor.
func (s *APIScanner) Kind() domain.SourceKind {
	return domain.KindAPI
}

// Extract calls the endpoint with the configured headers and params and maps each record.
func (s *APIScanner) Extract(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	endpoint, err := withParams(src.URL, src.Config.StringMap("params"))
	if err != nil {
		return nil, &domain.ConfigError{SourceID: src.ID, Reason: fmt.Sprintf("invalid api url: %v", err)}
	}

	header := configHeaders(src)
	if header.Get("Accept") == "" {
		header.Set("Accept", "application/json")
	}

	resp, err := s.downloader.Get(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("api %s: %w", src.Name, err)
	}

	var payload any
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, fmt.Errorf("api %s: %w", src.Name, &domain.ParseError{Format: "json", Err: err})
	}

	records := locateRecords(payload, src.Config.String("records_field"))
	candidates := make([]domain.Candidate, 0, len(records))
	for _, raw := range records {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		candidates = append(candidates, s.candidate(record, src, resp.URL))
	}

	s.logger.Debug("api parsed", "source", src.Name, "entries", len(candidates))
	return candidates, nil
}

func (s *APIScanner) candidate(record map[string]any, src domain.Source, base string) domain.Candidate {
	aliases := func(field string, defaults []string) []string {
		return lo.Uniq(lo.Without(append([]string{src.Config.String(field + "_field")}, defaults...), ""))
	}

	c := domain.Candidate{
		Title:       firstField(record, aliases("title", titleAliases)),
		Description: firstField(record, aliases("description", descriptionAliases)),
		Link:        scanner.ResolveLink(base, firstField(record, aliases("link", linkAliases))),
	}
	if raw := firstField(record, aliases("date", dateAliases)); raw != "" {
		c.PublishedRaw = raw
		c.PublishedAt = s.dates.ParseLenient(raw)
	}
	return c
}

// locateRecords finds the record list: configured key, well-known envelope keys, a bare array,
// or the whole payload as a single record.
func locateRecords(payload any, configured string) []any {
	switch v := payload.(type) {
	case []any:
		return v
	case map[string]any:
		keys := recordKeys
		if configured != "" {
			keys = append([]string{configured}, recordKeys...)
		}
		for _, key := range keys {
			if list, ok := v[key].([]any); ok {
				return list
			}
		}
		return []any{v}
	default:
		return nil
	}
}

// firstField returns the first scalar value present under one of keys.
func firstField(record map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := record[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64, bool, json.Number:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func withParams(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if len(params) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
