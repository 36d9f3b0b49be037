// imageprovider.go: Package imageprovider resolves product titles to image URLs,
// caching every successful external search in the image record store.
package imageprovider

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/precivox/precivox-images/internal/errors"
)

// OriginAutomaticSearch tags records created by the resolution flow.
const OriginAutomaticSearch = "busca automática"

// ImageProvider searches one external image API.
//
// Search returns (nil, nil) when the provider answered but had no image for
// the query. Failures are returned as *ProviderError.
type ImageProvider interface {
	Name() string
	Search(ctx context.Context, query string) (*ImageSearchResult, error)
}

// ImageSearchResult is the first image a provider returned for a query.
type ImageSearchResult struct {
	URL    string
	Title  string
	Source string
	Width  int
	Height int
}

// metadata returns the fields persisted alongside the record.
func (r *ImageSearchResult) metadata() map[string]any {
	m := map[string]any{
		"title":  r.Title,
		"source": r.Source,
	}
	if r.Width > 0 {
		m["width"] = r.Width
	}
	if r.Height > 0 {
		m["height"] = r.Height
	}
	return m
}

// ProviderErrorKind classifies provider failures.
type ProviderErrorKind string

const (
	KindNotConfigured     ProviderErrorKind = "not_configured"
	KindRequestFailed     ProviderErrorKind = "request_failed"
	KindRateLimited       ProviderErrorKind = "rate_limited"
	KindMalformedResponse ProviderErrorKind = "malformed_response"
)

// ProviderError reports why a provider produced no result.
type ProviderError struct {
	Provider   string
	Kind       ProviderErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrorCategory maps provider failures onto the shared error categories.
func (e *ProviderError) ErrorCategory() errors.ErrorCategory {
	switch e.Kind {
	case KindNotConfigured:
		return errors.CategoryConfiguration
	case KindRateLimited:
		return errors.CategoryLimit
	case KindMalformedResponse:
		return errors.CategoryImageProvider
	default:
		return errors.CategoryImageFetch
	}
}

// IsProviderErrorKind reports whether err carries a ProviderError of kind.
func IsProviderErrorKind(err error, kind ProviderErrorKind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}

// providerError builds a ProviderError wrapped in an enhanced error.
func providerError(provider string, kind ProviderErrorKind, status int, cause error, reqID string) error {
	pe := &ProviderError{Provider: provider, Kind: kind, StatusCode: status, Err: cause}
	b := errors.New(pe).
		Component("imageprovider").
		Context("provider", provider).
		Context("kind", string(kind)).
		Context("operation", "search")
	if status != 0 {
		b = b.Context("status_code", status)
	}
	if reqID != "" {
		b = b.Context("request_id", reqID)
	}
	return b.Build()
}

// newLimiter returns nil when rps is zero, disabling client-side limiting.
func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// waitLimiter blocks until the limiter admits one request. A wait that cannot
// finish inside ctx is reported as rate limited.
func waitLimiter(ctx context.Context, limiter *rate.Limiter, provider, reqID string) error {
	if limiter == nil {
		return nil
	}
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return providerError(provider, KindRateLimited, 0,
			fmt.Errorf("rate limiter wait after %s: %w", time.Since(start).Round(time.Millisecond), err), reqID)
	}
	return nil
}
