package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"EditaisScanner/internal/logging"
	"EditaisScanner/internal/ports"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CronScheduler triggers a job on a cron expression. A job still running when the next tick
// fires is skipped rather than overlapped.
type CronScheduler struct {
	spec       string
	location   *time.Location
	runOnStart bool
	logger     *slog.Logger

	mu       sync.Mutex
	cron     *cron.Cron
	inflight sync.WaitGroup
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// Option tunes a CronScheduler.
type Option func(*CronScheduler)

// WithLocation evaluates the expression in loc instead of UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *CronScheduler) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithRunOnStart fires the job once right after Start.
func WithRunOnStart() Option {
	return func(c *CronScheduler) { c.runOnStart = true }
}

// WithLogger routes cron's own messages to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CronScheduler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, opts ...Option) *CronScheduler {
	c := &CronScheduler{
		spec:     spec,
		location: time.UTC,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start registers job and begins ticking until Stop is called or ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if _, err := cronParser.Parse(c.spec); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	log := cronLogger{logger: c.logger}
	// One wrapped job serves both the ticks and the run on start, so they share the
	// panic recovery and the skip-if-running guard.
	wrapped := cron.NewChain(cron.Recover(log), cron.SkipIfStillRunning(log)).Then(cron.FuncJob(func() {
		job(time.Now().In(c.location))
	}))

	runner := cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(c.location),
		cron.WithLogger(log),
	)
	if _, err := runner.AddJob(c.spec, wrapped); err != nil {
		return fmt.Errorf("register job: %w", err)
	}
	runner.Start()
	c.cron = runner
	c.logger.Info("scheduler started", "cron", c.spec, "timezone", c.location.String())

	if c.runOnStart {
		c.inflight.Add(1)
		go func() {
			defer c.inflight.Done()
			wrapped.Run()
		}()
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Stop halts the ticker and waits for a running job, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	stopped := runner.Stop()
	done := make(chan struct{})
	go func() {
		<-stopped.Done()
		c.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running job: %w", ctx.Err())
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
