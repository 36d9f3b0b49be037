package imageprovider_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/precivox/precivox-images/internal/conf"
	"github.com/precivox/precivox-images/internal/datastore"
	"github.com/precivox/precivox-images/internal/imageprovider"
)

// callLog records provider invocations across providers in call order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// mockProvider is a scripted ImageProvider.
type mockProvider struct {
	name   string
	search func(ctx context.Context, query string) (*imageprovider.ImageSearchResult, error)
	log    *callLog

	mu      sync.Mutex
	queries []string
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Search(ctx context.Context, query string) (*imageprovider.ImageSearchResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()
	if m.log != nil {
		m.log.add(m.name)
	}
	if m.search == nil {
		return nil, nil
	}
	return m.search(ctx, query)
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// foundProvider returns a result whose URL is derived from the query.
func foundProvider(name string, log *callLog) *mockProvider {
	return &mockProvider{
		name: name,
		log:  log,
		search: func(_ context.Context, query string) (*imageprovider.ImageSearchResult, error) {
			slug := strings.ReplaceAll(strings.TrimSuffix(query, " produto embalagem foto"), " ", "-")
			return &imageprovider.ImageSearchResult{
				URL:    fmt.Sprintf("https://%s.example.com/%s.jpg", name, slug),
				Title:  query,
				Source: name,
				Width:  300,
				Height: 300,
			}, nil
		},
	}
}

// emptyProvider answers without a result.
func emptyProvider(name string, log *callLog) *mockProvider {
	return &mockProvider{name: name, log: log}
}

// failingProvider always fails with a ProviderError of kind.
func failingProvider(name string, kind imageprovider.ProviderErrorKind, log *callLog) *mockProvider {
	return &mockProvider{
		name: name,
		log:  log,
		search: func(context.Context, string) (*imageprovider.ImageSearchResult, error) {
			return nil, &imageprovider.ProviderError{Provider: name, Kind: kind}
		},
	}
}

// mockStore is an in-memory ImageRecordStore with injectable failures.
type mockStore struct {
	mu      sync.Mutex
	records []datastore.ImageRecord

	findErr   error
	insertErr error
	countErr  error

	panicOnInsert bool
	beforeInsert  func(key string)

	finds   int
	inserts int
	counts  int
}

func newMockStore() *mockStore {
	return &mockStore{}
}

func (m *mockStore) activeLocked(key string) *datastore.ImageRecord {
	for i := range m.records {
		if m.records[i].Active && m.records[i].Key == key {
			return &m.records[i]
		}
	}
	return nil
}

func (m *mockStore) FindActiveByKey(_ context.Context, key string) (*datastore.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	if m.findErr != nil {
		return nil, m.findErr
	}
	if rec := m.activeLocked(datastore.CanonicalKey(key)); rec != nil {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (m *mockStore) Insert(_ context.Context, record *datastore.ImageRecord) (*datastore.ImageRecord, error) {
	if m.beforeInsert != nil {
		m.beforeInsert(record.Key)
	}
	if m.panicOnInsert {
		panic("insert exploded")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return nil, m.insertErr
	}

	rec := *record
	rec.Key = datastore.CanonicalKey(rec.Key)
	if m.activeLocked(rec.Key) != nil {
		return nil, &datastore.StoreError{Op: "insert", Err: datastore.ErrDuplicateKey}
	}
	rec.ID = uuid.New().String()
	rec.Active = true
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m.records = append(m.records, rec)
	return &rec, nil
}

// seed stores a record directly, bypassing failure injection.
func (m *mockStore) seed(key, url, origin string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, datastore.ImageRecord{
		ID:        uuid.New().String(),
		Key:       datastore.CanonicalKey(key),
		URL:       url,
		Origin:    origin,
		Active:    true,
		CreatedAt: time.Now(),
	})
}

func (m *mockStore) Update(_ context.Context, id string, patch datastore.ImageRecordPatch) (*datastore.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			if patch.Active != nil {
				m.records[i].Active = *patch.Active
			}
			cp := m.records[i]
			return &cp, nil
		}
	}
	return nil, &datastore.StoreError{Op: "update", Err: datastore.ErrRecordNotFound}
}

func (m *mockStore) ListByScope(_ context.Context, scope string) ([]datastore.ImageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []datastore.ImageRecord
	for _, r := range m.records {
		if r.Active && r.Scope == scope {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) CountActive(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts++
	if m.countErr != nil {
		return 0, m.countErr
	}
	var n int64
	for _, r := range m.records {
		if r.Active {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) GroupCountByOrigin(context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for _, r := range m.records {
		if r.Active {
			out[r.Origin]++
		}
	}
	return out, nil
}

func (m *mockStore) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.records {
		if r.Active && !r.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) DeleteInactive(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	var removed int64
	for _, r := range m.records {
		if r.Active {
			kept = append(kept, r)
		} else {
			removed++
		}
	}
	m.records = kept
	return removed, nil
}

func (m *mockStore) Close() error { return nil }

func (m *mockStore) stored() []datastore.ImageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]datastore.ImageRecord(nil), m.records...)
}

func (m *mockStore) insertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

// recordingObserver captures resolution events.
type recordingObserver struct {
	mu           sync.Mutex
	hits         []string
	misses       []string
	fallbacks    []string
	placeholders []string
	reasons      []string
	sources      []string
	providerRuns int
}

func (o *recordingObserver) CacheHit(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits = append(o.hits, key)
}

func (o *recordingObserver) CacheMiss(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses = append(o.misses, key)
}

func (o *recordingObserver) ProviderResult(string, bool, time.Duration, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.providerRuns++
}

func (o *recordingObserver) ProviderFallback(provider string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fallbacks = append(o.fallbacks, provider)
}

func (o *recordingObserver) Placeholder(title, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.placeholders = append(o.placeholders, title)
	o.reasons = append(o.reasons, reason)
}

func (o *recordingObserver) Resolved(source string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources = append(o.sources, source)
}

// newTestService builds a service with no batch delay unless overridden.
func newTestService(t *testing.T, store datastore.ImageRecordStore, providers []imageprovider.ImageProvider, opts ...imageprovider.Option) *imageprovider.Service {
	t.Helper()
	opts = append([]imageprovider.Option{imageprovider.WithBatchDelay(0)}, opts...)
	svc, err := imageprovider.NewService(store, providers, opts...)
	require.NoError(t, err)
	return svc
}

// newSQLiteStore opens an in-memory store for integration tests.
func newSQLiteStore(t *testing.T) *datastore.GormStore {
	t.Helper()
	store, err := datastore.Open(conf.DatabaseSettings{
		Driver: "sqlite",
		SQLite: conf.SQLiteSettings{Path: ":memory:"},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func isPlaceholder(url string) bool {
	return strings.HasPrefix(url, imageprovider.DefaultPlaceholderBase+"?text=")
}
