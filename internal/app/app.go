package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"EditaisScanner/internal/classify"
	"EditaisScanner/internal/config"
	"EditaisScanner/internal/dates"
	"EditaisScanner/internal/infrastructure/httpfetch"
	"EditaisScanner/internal/infrastructure/parser"
	"EditaisScanner/internal/infrastructure/scheduler"
	"EditaisScanner/internal/infrastructure/storage"
	"EditaisScanner/internal/infrastructure/telegram"
	"EditaisScanner/internal/logging"
	"EditaisScanner/internal/metrics"
	"EditaisScanner/internal/ports"
	"EditaisScanner/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sqlx.DB
	metrics   *metrics.Collector
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
	catalog   *usecase.Catalog
}

// New connects to the database and builds the pipeline with all its adapters.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := storage.Open(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	inferencer := dates.NewInferencer(cfg.Dates.Policy())
	fetcher := httpfetch.New(cfg.Fetcher, inferencer, baseLogger.With("component", "fetcher"))
	registry := parser.NewDefaultRegistry(fetcher, parser.Deps{Dates: inferencer, Logger: baseLogger})
	categorizer := classify.NewCategorizer(cfg.Taxonomy)
	collector := metrics.New()
	editais := storage.NewPostgresRepository(db)

	var notifier ports.Notifier
	if tg := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID); tg.Configured() {
		notifier = tg
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:    storage.NewSourceRepository(db, baseLogger.With("component", "sources")),
		Extractor:  parser.NewStrategySource(registry, baseLogger.With("component", "source")),
		UnitOfWork: storage.NewTxManager(db),
		Enricher: usecase.NewEnricher(usecase.EnricherDeps{
			Pages:            fetcher,
			Dates:            inferencer,
			Categorizer:      categorizer,
			DescriptionLimit: cfg.Ingestion.DescriptionLimit,
			Logger:           baseLogger.With("component", "enricher"),
		}),
		Relevance: classify.NewRelevanceFilter(cfg.Taxonomy),
		Notifier:  notifier,
		Metrics:   collector,
		Options:   cfg.Ingestion.PipelineOptions(),
		Logger:    baseLogger.With("component", "pipeline"),
	})

	schedOpts := []scheduler.Option{
		scheduler.WithLocation(cfg.Scheduler.Location()),
		scheduler.WithLogger(baseLogger.With("component", "cron")),
	}
	if cfg.Scheduler.RunOnStart {
		schedOpts = append(schedOpts, scheduler.WithRunOnStart())
	}
	driver := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, schedOpts...)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		metrics:   collector,
		pipeline:  pipeline,
		scheduler: usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler")),
		catalog:   usecase.NewCatalog(editais, categorizer),
	}, nil
}

// Run performs a single pipeline execution and returns the number of new editais.
func (a *Application) Run(ctx context.Context) int {
	return a.pipeline.Run(ctx)
}

// Serve starts the cron trigger and the metrics endpoint and blocks until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := a.db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	server := &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	if err := a.scheduler.Start(ctx); err != nil {
		_ = server.Close()
		return fmt.Errorf("start scheduler: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("metrics server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Error("stop scheduler", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("stop metrics server", "error", err)
	}
	return runErr
}

// Categories lists stored categories or, when there are none yet, the taxonomy labels.
func (a *Application) Categories(ctx context.Context) ([]string, error) {
	return a.catalog.Categories(ctx)
}

// Migrate applies (steps == 0) or rolls back (steps < 0) the schema migrations.
func (a *Application) Migrate(steps int) error {
	changed, err := storage.Migrate(a.db, steps)
	if err != nil {
		return err
	}
	a.logger.Info("migrations finished", "changed", changed, "steps", steps)
	return nil
}

// Close releases the database pool.
func (a *Application) Close() error {
	return a.db.Close()
}
