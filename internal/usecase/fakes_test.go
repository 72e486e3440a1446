package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/ports"
)

var testNow = time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type memRegistry struct {
	mu      sync.Mutex
	sources []domain.Source
	marked  map[int64]time.Time
}

func newMemRegistry(sources ...domain.Source) *memRegistry {
	return &memRegistry{sources: sources, marked: map[int64]time.Time{}}
}

func (r *memRegistry) ListActiveSources(context.Context) ([]domain.Source, error) {
	return r.sources, nil
}

func (r *memRegistry) MarkLastRun(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.marked[id] = at
	return nil
}

func (r *memRegistry) wasMarked(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.marked[id]
	return ok
}

// memStore is an in-memory EditalStore with per-source transactions.
type memStore struct {
	mu         sync.Mutex
	rows       map[string]domain.Edital
	failInsert map[string]error
	// racers are links another writer claims between the existence check and the insert.
	racers map[string]bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]domain.Edital{}, failInsert: map[string]error{}, racers: map[string]bool{}}
}

func (m *memStore) WithinSource(ctx context.Context, fn func(context.Context, ports.EditalStore) error) error {
	tx := &memTx{parent: m, staged: map[string]domain.Edital{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range tx.staged {
		m.rows[k] = v
	}
	return nil
}

func (m *memStore) snapshot() map[string]domain.Edital {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Edital, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out
}

type memTx struct {
	parent *memStore
	staged map[string]domain.Edital
}

func (t *memTx) ExistsByLink(_ context.Context, link string) (bool, error) {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	_, committed := t.parent.rows[link]
	_, staged := t.staged[link]
	return committed || staged, nil
}

func (t *memTx) Insert(_ context.Context, e domain.Edital) error {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	if err := t.parent.failInsert[e.Link]; err != nil {
		return err
	}
	if t.parent.racers[e.Link] {
		return &domain.ConflictError{Link: e.Link}
	}
	if _, ok := t.parent.rows[e.Link]; ok {
		return &domain.ConflictError{Link: e.Link}
	}
	if _, ok := t.staged[e.Link]; ok {
		return &domain.ConflictError{Link: e.Link}
	}
	t.staged[e.Link] = e
	return nil
}

type extraction struct {
	candidates []domain.Candidate
	err        error
}

type fakeExtractor struct {
	results map[int64]extraction
	// entered and release let a test hold a run inside extraction.
	entered chan struct{}
	release chan struct{}
	// stalled sources block until their context is cancelled.
	stalled map[int64]bool
}

func (f *fakeExtractor) Candidates(ctx context.Context, src domain.Source) ([]domain.Candidate, error) {
	if f.stalled[src.ID] {
		<-ctx.Done()
		return nil, &domain.FetchError{URL: src.URL, Err: ctx.Err()}
	}
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	r := f.results[src.ID]
	return r.candidates, r.err
}

type fakePages map[string]domain.Page

func (f fakePages) FetchPage(_ context.Context, rawURL string) (domain.Page, error) {
	if p, ok := f[rawURL]; ok {
		return p, nil
	}
	return domain.Page{}, &domain.FetchError{URL: rawURL, Err: errors.New("unreachable")}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) PublishDigest(_ context.Context, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, digest)
	return nil
}
