// service.go: cache-first image resolution with multi-provider fallback.
package imageprovider

import (
	"context"
	"fmt"
	"maps"
	"runtime/debug"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/precivox/precivox-images/internal/datastore"
	"github.com/precivox/precivox-images/internal/errors"
	"github.com/precivox/precivox-images/internal/logger"
)

const (
	DefaultBatchSize    = 5
	DefaultBatchDelay   = time.Second
	DefaultRecentWindow = 7 * 24 * time.Hour

	statsCacheKey = "stats"
)

// Stats summarizes the image record store.
type Stats struct {
	TotalActive     int64            `json:"total_active"`
	CountsByOrigin  map[string]int64 `json:"counts_by_origin"`
	RecentCount     int64            `json:"recent_count"`
	AvoidedSearches string           `json:"avoided_searches"`
}

// Service resolves product titles to image URLs. It is safe for concurrent use.
type Service struct {
	store     datastore.ImageRecordStore
	providers []ImageProvider
	validator URLValidator
	observer  Observer
	log       logger.Logger

	batchSize       int
	batchDelay      time.Duration
	recentWindow    time.Duration
	placeholderBase string
	statsTTL        time.Duration
	statsCache      *cache.Cache
	now             func() time.Time

	observers Observers
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithValidator enables the advisory reachability check of found URLs.
func WithValidator(v URLValidator) Option {
	return func(s *Service) { s.validator = v }
}

// WithBatchSize sets how many titles ResolveMany resolves concurrently.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithBatchDelay sets the pause between ResolveMany windows.
func WithBatchDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.batchDelay = d
		}
	}
}

// WithRecentWindow sets the trailing window counted by Stats.RecentCount.
func WithRecentWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.recentWindow = d
		}
	}
}

// WithPlaceholderBase overrides the placeholder image service URL.
func WithPlaceholderBase(base string) Option {
	return func(s *Service) {
		if base != "" {
			s.placeholderBase = base
		}
	}
}

// WithStatsCacheTTL memoizes Stats for ttl. Zero disables memoization.
func WithStatsCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.statsTTL = ttl }
}

// NewService creates a resolution service. Providers are tried in the given order.
func NewService(store datastore.ImageRecordStore, providers []ImageProvider, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.Newf("image record store is required").
			Component("imageprovider").
			Category(errors.CategoryConfiguration).
			Build()
	}

	s := &Service{
		store:           store,
		providers:       providers,
		log:             logger.NewDiscardLogger(),
		batchSize:       DefaultBatchSize,
		batchDelay:      DefaultBatchDelay,
		recentWindow:    DefaultRecentWindow,
		placeholderBase: DefaultPlaceholderBase,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch len(s.observers) {
	case 0:
		s.observer = NopObserver{}
	case 1:
		s.observer = s.observers[0]
	default:
		s.observer = s.observers
	}

	if s.statsTTL > 0 {
		s.statsCache = cache.New(s.statsTTL, 2*s.statsTTL)
	}

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	s.log.Debug("image resolution service ready",
		logger.Any("providers", names),
		logger.Int("batch_size", s.batchSize),
		logger.Duration("batch_delay", s.batchDelay),
		logger.Bool("validate_urls", s.validator != nil))

	return s, nil
}

// ResolveOne returns an image URL for title and never fails. A cached record
// wins; otherwise providers are searched in order and the first hit is stored.
// When nothing is found the placeholder URL is returned and nothing is stored,
// so the next call searches again.
func (s *Service) ResolveOne(ctx context.Context, title, scope string) (imageURL string) {
	start := time.Now()
	var found string

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("recovered panic while resolving image",
				logger.String("title", title),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
			if found != "" {
				imageURL = found
				s.observer.Resolved(SourceProvider, time.Since(start))
				return
			}
			imageURL = s.placeholder(title, ReasonPanic, start)
		}
	}()

	if err := ValidateTitle(title); err != nil {
		s.log.Debug("invalid product title", logger.Error(err))
		return s.placeholder(title, ReasonInvalidTitle, start)
	}

	key := CanonicalKey(title)
	log := s.log.WithContext(ctx).With(logger.String("key", key))

	record, err := s.store.FindActiveByKey(ctx, key)
	if err != nil {
		log.Warn("image cache lookup failed, searching providers", logger.Error(err))
	}
	if record != nil {
		s.observer.CacheHit(key)
		s.observer.Resolved(SourceCache, time.Since(start))
		log.Debug("image cache hit")
		return record.URL
	}
	s.observer.CacheMiss(key)

	result, provider := s.search(ctx, title, log)
	if result == nil {
		reason := ReasonNoResult
		if ctx.Err() != nil {
			reason = ReasonCancelled
		}
		return s.placeholder(title, reason, start)
	}
	found = result.URL

	s.checkReachable(ctx, result.URL, log)

	imageURL = s.persist(ctx, key, scope, provider, result, log)
	s.observer.Resolved(SourceProvider, time.Since(start))
	return imageURL
}

// search tries each provider in order and returns the first result.
func (s *Service) search(ctx context.Context, title string, log logger.Logger) (*ImageSearchResult, string) {
	query := NormalizeQuery(title)

	for _, p := range s.providers {
		if ctx.Err() != nil {
			log.Debug("resolution cancelled before provider search", logger.String("provider", p.Name()))
			return nil, ""
		}

		t0 := time.Now()
		result, err := p.Search(ctx, query)
		elapsed := time.Since(t0)
		found := err == nil && result != nil && result.URL != ""
		s.observer.ProviderResult(p.Name(), found, elapsed, err)

		if found {
			log.Info("image found",
				logger.String("provider", p.Name()),
				logger.Duration("elapsed", elapsed))
			return result, p.Name()
		}

		switch {
		case err == nil:
			log.Debug("provider returned no image", logger.String("provider", p.Name()))
		case IsProviderErrorKind(err, KindNotConfigured):
			log.Debug("provider not configured", logger.String("provider", p.Name()))
		default:
			log.Warn("provider search failed, trying next",
				logger.String("provider", p.Name()),
				logger.Error(err))
		}
		s.observer.ProviderFallback(p.Name(), err)
	}

	return nil, ""
}

// checkReachable runs the advisory HEAD check. Failures are logged only.
func (s *Service) checkReachable(ctx context.Context, imageURL string, log logger.Logger) {
	if s.validator == nil {
		return
	}
	if err := s.validator.Validate(ctx, imageURL); err != nil {
		log.Warn("image URL not reachable, using it anyway",
			logger.String("url", imageURL),
			logger.Error(err))
	}
}

// persist stores a provider result. When a concurrent resolution already
// stored the key, the stored URL is returned so callers converge on it.
func (s *Service) persist(ctx context.Context, key, scope, provider string, result *ImageSearchResult, log logger.Logger) string {
	_, err := s.store.Insert(ctx, &datastore.ImageRecord{
		Key:      key,
		URL:      result.URL,
		Origin:   OriginAutomaticSearch,
		Provider: provider,
		Scope:    scope,
		Metadata: result.metadata(),
	})
	if err == nil {
		s.invalidateStats()
		return result.URL
	}

	if errors.Is(err, datastore.ErrDuplicateKey) {
		existing, findErr := s.store.FindActiveByKey(ctx, key)
		if findErr == nil && existing != nil {
			log.Debug("image stored concurrently, using stored URL")
			return existing.URL
		}
	}

	log.Warn("failed to cache resolved image", logger.Error(err))
	return result.URL
}

func (s *Service) placeholder(title, reason string, start time.Time) string {
	s.observer.Placeholder(title, reason)
	s.observer.Resolved(SourcePlaceholder, time.Since(start))
	return PlaceholderURL(s.placeholderBase, title)
}

// Stats reports record counts. Store failures are returned to the caller.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.statsCache != nil {
		if v, ok := s.statsCache.Get(statsCacheKey); ok {
			if cached, ok := v.(Stats); ok {
				cached.CountsByOrigin = maps.Clone(cached.CountsByOrigin)
				return cached, nil
			}
		}
	}

	total, err := s.store.CountActive(ctx)
	if err != nil {
		return Stats{}, err
	}
	byOrigin, err := s.store.GroupCountByOrigin(ctx)
	if err != nil {
		return Stats{}, err
	}
	recent, err := s.store.CountCreatedSince(ctx, s.now().Add(-s.recentWindow))
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalActive:     total,
		CountsByOrigin:  byOrigin,
		RecentCount:     recent,
		AvoidedSearches: fmt.Sprintf("Sistema evita %d buscas desnecessárias por reutilização", total),
	}

	if s.statsCache != nil {
		memo := stats
		memo.CountsByOrigin = maps.Clone(byOrigin)
		s.statsCache.SetDefault(statsCacheKey, memo)
	}
	return stats, nil
}

// Cleanup hard-deletes inactive records and returns how many were removed.
func (s *Service) Cleanup(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteInactive(ctx)
	if err != nil {
		return 0, err
	}
	s.invalidateStats()
	s.log.Info("inactive image records removed", logger.Int64("removed", removed))
	return removed, nil
}

// ImagesByScope lists the active records first resolved for scope, newest first.
func (s *Service) ImagesByScope(ctx context.Context, scope string) ([]datastore.ImageRecord, error) {
	return s.store.ListByScope(ctx, scope)
}

// Deactivate retires a record so the next ResolveOne for its title searches
// the providers again.
func (s *Service) Deactivate(ctx context.Context, id string) (*datastore.ImageRecord, error) {
	active := false
	record, err := s.store.Update(ctx, id, datastore.ImageRecordPatch{Active: &active})
	if err != nil {
		return nil, err
	}
	s.invalidateStats()
	s.log.Info("image record deactivated",
		logger.String("id", id),
		logger.String("key", record.Key))
	return record, nil
}

func (s *Service) invalidateStats() {
	if s.statsCache != nil {
		s.statsCache.Delete(statsCacheKey)
	}
}
