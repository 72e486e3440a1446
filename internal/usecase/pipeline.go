package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"EditaisScanner/internal/classify"
	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/logging"
	"EditaisScanner/internal/metrics"
	"EditaisScanner/internal/ports"
	"EditaisScanner/internal/text"
)

const (
	defaultWorkers      = 5
	defaultChunkSize    = 10
	defaultSourceBudget = 5 * time.Minute
)

// PipelineOptions tunes the per-source fan-out and time budget.
type PipelineOptions struct {
	Workers      int           `yaml:"workers"`
	ChunkSize    int           `yaml:"chunkSize"`
	SourceBudget time.Duration `yaml:"sourceBudget"`
}

func (o PipelineOptions) withDefaults() PipelineOptions {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.SourceBudget <= 0 {
		o.SourceBudget = defaultSourceBudget
	}
	return o
}

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Sources    ports.SourceRegistry
	Extractor  ports.CandidateSource
	UnitOfWork ports.UnitOfWork
	Enricher   *Enricher
	Relevance  *classify.RelevanceFilter
	Notifier   ports.Notifier
	Metrics    *metrics.Collector
	Options    PipelineOptions
	Clock      func() time.Time
	Logger     *slog.Logger
}

// Pipeline implements the editais ingestion run.
type Pipeline struct {
	sources   ports.SourceRegistry
	extractor ports.CandidateSource
	uow       ports.UnitOfWork
	enricher  *Enricher
	relevance *classify.RelevanceFilter
	notifier  ports.Notifier
	metrics   *metrics.Collector
	opts      PipelineOptions
	clock     func() time.Time
	logger    *slog.Logger

	running sync.Mutex
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		sources:   deps.Sources,
		extractor: deps.Extractor,
		uow:       deps.UnitOfWork,
		enricher:  deps.Enricher,
		relevance: deps.Relevance,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		opts:      deps.Options.withDefaults(),
		clock:     deps.Clock,
		logger:    deps.Logger,
	}
	if p.enricher == nil {
		p.enricher = NewEnricher(EnricherDeps{Clock: deps.Clock, Logger: deps.Logger})
	}
	if p.relevance == nil {
		p.relevance = classify.NewRelevanceFilter(classify.DefaultTaxonomy())
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	return p
}

// Run processes every active source once and returns the number of newly persisted editais.
// Failures are logged per source and never abort the run. A call made while another run is
// in progress returns 0 without doing anything.
func (p *Pipeline) Run(ctx context.Context) int {
	if !p.running.TryLock() {
		p.logger.Warn("run already in progress, skipping")
		return 0
	}
	defer p.running.Unlock()

	if p.sources == nil || p.extractor == nil || p.uow == nil {
		p.logger.Error("pipeline is not fully wired")
		return 0
	}

	started := p.clock()
	sources, err := p.sources.ListActiveSources(ctx)
	if err != nil {
		p.logger.Error("list active sources", "error", err)
		return 0
	}

	var fresh []domain.Edital
	for _, src := range sources {
		fresh = append(fresh, p.processSource(ctx, src)...)
	}

	elapsed := p.clock().Sub(started)
	p.metrics.ObserveRun(elapsed, len(fresh))
	p.logger.Info("run finished", "sources", len(sources), "new", len(fresh), "duration", elapsed)

	p.publishDigest(ctx, fresh)
	return len(fresh)
}

// processSource runs one source batch inside its own time budget and unit of work.
func (p *Pipeline) processSource(ctx context.Context, src domain.Source) (inserted []domain.Edital) {
	log := p.logger.With("source", src.Name, "source_id", src.ID)
	defer func() {
		if r := recover(); r != nil {
			log.Error("source processing panicked", "panic", r)
			inserted = nil
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, p.opts.SourceBudget)
	defer cancel()

	candidates, err := p.extractor.Candidates(sctx, src)
	if err != nil {
		if domain.IsConfig(err) {
			log.Warn("skipping misconfigured source", "error", err)
			p.metrics.Failed(src.Name, metrics.ReasonConfig)
		} else {
			log.Error("extract source", "error", err)
			p.metrics.Failed(src.Name, metrics.ReasonFetch)
		}
		return nil
	}

	relevant := lo.Filter(candidates, func(c domain.Candidate, _ int) bool {
		return p.relevance.IsRelevant(text.Join(text.Clean(c.Title), text.Clean(c.Description)))
	})
	p.metrics.Filtered(src.Name, len(candidates)-len(relevant))

	drafts := lo.UniqBy(p.enrich(sctx, src, relevant), func(e domain.Edital) string { return e.Link })

	inserted, err = p.persist(sctx, drafts)
	if err != nil {
		log.Error("persist batch rolled back", "error", err, "count", len(drafts))
		p.metrics.Failed(src.Name, metrics.ReasonPersist)
		inserted = nil
	}

	if err := p.sources.MarkLastRun(ctx, src.ID, p.clock().UTC()); err != nil {
		log.Error("mark last run", "error", err)
	}

	p.metrics.Discovered(src.Name, len(inserted))
	log.Info("source processed", "count", len(candidates), "relevant", len(relevant), "new", len(inserted))
	return inserted
}

// enrich fans out over fixed-size chunks; every chunk completes before the next starts.
func (p *Pipeline) enrich(ctx context.Context, src domain.Source, candidates []domain.Candidate) []domain.Edital {
	var drafts []domain.Edital
	for _, chunk := range lo.Chunk(candidates, p.opts.ChunkSize) {
		results := make([]*domain.Edital, len(chunk))

		var g errgroup.Group
		g.SetLimit(p.opts.Workers)
		for i, c := range chunk {
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						p.logger.Error("enrich candidate panicked", "source", src.Name, "url", c.Link, "panic", r)
					}
				}()
				if e, ok := p.enricher.Enrich(ctx, src, c); ok {
					results[i] = &e
				}
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results {
			if r != nil {
				drafts = append(drafts, *r)
			}
		}
	}
	return drafts
}

// persist writes the batch in one unit of work; any error other than a link conflict
// rolls back the whole batch.
func (p *Pipeline) persist(ctx context.Context, drafts []domain.Edital) ([]domain.Edital, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	var inserted []domain.Edital
	err := p.uow.WithinSource(ctx, func(ctx context.Context, store ports.EditalStore) error {
		for _, d := range drafts {
			exists, err := store.ExistsByLink(ctx, d.Link)
			if err != nil {
				return fmt.Errorf("check link %s: %w", d.Link, err)
			}
			if exists {
				continue
			}
			if err := store.Insert(ctx, d); err != nil {
				if domain.IsConflict(err) {
					continue
				}
				return fmt.Errorf("insert %s: %w", d.Link, err)
			}
			inserted = append(inserted, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (p *Pipeline) publishDigest(ctx context.Context, fresh []domain.Edital) {
	if p.notifier == nil || len(fresh) == 0 {
		return
	}
	if err := p.notifier.PublishDigest(ctx, BuildDigest(fresh)); err != nil {
		p.logger.Error("publish digest", "error", err)
	}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`")

// BuildDigest renders new editais as a Markdown message.
func BuildDigest(items []domain.Edital) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%d novos editais*\n\n", len(items))
	for _, it := range items {
		fmt.Fprintf(&b, "- %s\n", markdownEscaper.Replace(it.Title))
		if it.Category != nil {
			fmt.Fprintf(&b, "Categoria: %s\n", markdownEscaper.Replace(*it.Category))
		}
		if it.Deadline != nil {
			fmt.Fprintf(&b, "Prazo: %s\n", it.Deadline.Format("02/01/2006"))
		}
		fmt.Fprintf(&b, "%s\n\n", it.Link)
	}
	return strings.TrimRight(b.String(), "\n")
}
