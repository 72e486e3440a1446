// Package httpfetch is the resilient HTTP client shared by the extractors and the enricher.
package httpfetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"EditaisScanner/internal/dates"
	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/logging"
	"EditaisScanner/internal/ports"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
	maxBodyBytes       = 10 << 20

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// transientStatus lists the 5xx answers worth another attempt.
var transientStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Config tunes the client.
type Config struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"maxAttempts"`
	RetryDelay  time.Duration `yaml:"retryDelay"`
	UserAgent   string        `yaml:"userAgent"`
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	} else if c.RetryDelay == 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.UserAgent == "" {
		c.UserAgent = browserUserAgent
	}
	return c
}

// Fetcher implements ports.Downloader and ports.PageFetcher.
type Fetcher struct {
	client *http.Client
	cfg    Config
	dates  *dates.Inferencer
	logger *slog.Logger
}

var (
	_ ports.Downloader  = (*Fetcher)(nil)
	_ ports.PageFetcher = (*Fetcher)(nil)
)

// New builds a fetcher that skips certificate verification: many public portals serve broken
// chains and we only read public pages.
func New(cfg Config, inferencer *dates.Inferencer, logger *slog.Logger) *Fetcher {
	cfg = cfg.withDefaults()

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec

	return NewWithClient(&http.Client{Timeout: cfg.Timeout, Transport: transport}, cfg, inferencer, logger)
}

// NewWithClient wires a caller-provided client; the config still drives retries and headers.
func NewWithClient(client *http.Client, cfg Config, inferencer *dates.Inferencer, logger *slog.Logger) *Fetcher {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if inferencer == nil {
		inferencer = dates.NewInferencer(dates.DefaultPolicy())
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Fetcher{client: client, cfg: cfg, dates: inferencer, logger: logger}
}

// Get downloads rawURL, retrying transient 5xx answers and connection errors with a constant delay.
// Client errors and DNS failures are returned at once.
func (f *Fetcher) Get(ctx context.Context, rawURL string, header http.Header) (*ports.Response, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.cfg.RetryDelay), uint64(f.cfg.MaxAttempts-1)),
		ctx,
	)

	var resp *ports.Response
	op := func() error {
		r, err := f.do(ctx, rawURL, header)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Debug("retrying fetch", "url", rawURL, "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) {
			return nil, fetchErr
		}
		return nil, &domain.FetchError{URL: rawURL, Err: err}
	}
	return resp, nil
}

func (f *Fetcher) do(ctx context.Context, rawURL string, header http.Header) (*ports.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, backoff.Permanent(&domain.FetchError{URL: rawURL, Err: fmt.Errorf("build request: %w", err)})
	}
	f.applyHeaders(req, header)

	resp, err := f.client.Do(req)
	if err != nil {
		fetchErr := &domain.FetchError{URL: rawURL, Err: err}
		if !isTransient(ctx, err) {
			return nil, backoff.Permanent(fetchErr)
		}
		return nil, fetchErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		fetchErr := &domain.FetchError{URL: rawURL, StatusCode: resp.StatusCode}
		if transientStatus[resp.StatusCode] {
			return nil, fetchErr
		}
		return nil, backoff.Permanent(fetchErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}

	return &ports.Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (f *Fetcher) applyHeaders(req *http.Request, header http.Header) {
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	for k, values := range header {
		req.Header.Del(k)
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
}

// isTransient reports whether a transport error deserves another attempt.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout
	}
	return true
}
