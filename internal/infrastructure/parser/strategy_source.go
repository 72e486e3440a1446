package parser

import (
	"context"
	"fmt"
	"log/slog"

	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/ports"
	"EditaisScanner/internal/scanner"
)

// StrategySource implements ports.CandidateSource via registered extractor strategies.
type StrategySource struct {
	registry *scanner.Registry
	logger   *slog.Logger
}

var _ ports.CandidateSource = (*StrategySource)(nil)

// NewStrategySource wires the extractor registry.
func NewStrategySource(reg *scanner.Registry, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		logger:   discardLogger(log),
	}
}

// NewDefaultRegistry registers the four built-in extractors on one downloader.
func NewDefaultRegistry(downloader ports.Downloader, deps Deps) *scanner.Registry {
	log := discardLogger(deps.Logger)
	return scanner.NewRegistry(
		NewFeedScanner(downloader, log.With("component", "scanner.feed")),
		NewGovBRScanner(downloader, log.With("component", "scanner.govbr")),
		NewWebPageScanner(downloader, deps.Dates, log.With("component", "scanner.webpage")),
		NewAPIScanner(downloader, deps.Dates, log.With("component", "scanner.api")),
	)
}

// Candidates selects the extractor for src and runs it. Configuration problems surface as
// *domain.ConfigError so the caller can skip the source without touching its last run.
func (s *StrategySource) Candidates(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Select(src)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Name, err)
	}

	s.logger.Debug("extract source", "source", src.Name, "source_id", src.ID, "kind", strategy.Kind())
	results, err := strategy.Extract(ctx, src)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("source produced candidates", "source", src.Name, "count", len(results))
	return results, nil
}
