package ports

import (
	"context"
	"net/http"
	"time"

	"EditaisScanner/internal/domain"
)

// SourceRegistry exposes the externally managed source list.
type SourceRegistry interface {
	ListActiveSources(ctx context.Context) ([]domain.Source, error)
	MarkLastRun(ctx context.Context, sourceID int64, at time.Time) error
}

// EditalStore persists discovered editais; the link is the identity key.
type EditalStore interface {
	ExistsByLink(ctx context.Context, link string) (bool, error)
	// Insert fails with *domain.ConflictError when the link is already taken.
	Insert(ctx context.Context, edital domain.Edital) error
}

// CategoryReader lists the categories already present in storage.
type CategoryReader interface {
	DistinctCategories(ctx context.Context) ([]string, error)
}

// UnitOfWork scopes the writes of one source batch: commit when fn returns nil, rollback otherwise.
type UnitOfWork interface {
	WithinSource(ctx context.Context, fn func(ctx context.Context, store EditalStore) error) error
}

// CandidateSource extracts the raw candidates of one source.
type CandidateSource interface {
	Candidates(ctx context.Context, src domain.Source) ([]domain.Candidate, error)
}

// Downloader performs raw GET requests with retries.
type Downloader interface {
	Get(ctx context.Context, rawURL string, header http.Header) (*Response, error)
}

// Response is a fully read HTTP response body with the URL reached after redirects.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// PageFetcher loads a linked document and extracts its readable text and publication date.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (domain.Page, error)
}

// Notifier streams digests of new editais to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
