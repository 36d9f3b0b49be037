package imageprovider

import "time"

// Placeholder reasons reported to observers.
const (
	ReasonInvalidTitle = "invalid_title"
	ReasonNoResult     = "no_result"
	ReasonPanic        = "panic"
	ReasonCancelled    = "cancelled"
)

// Observer receives resolution events at fixed points of ResolveOne. Calls
// happen synchronously on the resolving goroutine, so implementations must be
// safe for concurrent use and must not block.
type Observer interface {
	CacheHit(key string)
	CacheMiss(key string)
	// ProviderResult reports one provider call; err is nil on success and on
	// an empty answer.
	ProviderResult(provider string, found bool, elapsed time.Duration, err error)
	// ProviderFallback reports that resolution moves past provider.
	ProviderFallback(provider string, err error)
	Placeholder(title, reason string)
	Resolved(source string, elapsed time.Duration)
}

// Resolution sources passed to Observer.Resolved.
const (
	SourceCache       = "cache"
	SourceProvider    = "provider"
	SourcePlaceholder = "placeholder"
)

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) CacheHit(string) {}
func (NopObserver) CacheMiss(string) {}
func (NopObserver) ProviderResult(string, bool, time.Duration, error) {}
func (NopObserver) ProviderFallback(string, error) {}
func (NopObserver) Placeholder(string, string) {}
func (NopObserver) Resolved(string, time.Duration) {}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) CacheHit(key string) {
	for _, obs := range o {
		obs.CacheHit(key)
	}
}

func (o Observers) CacheMiss(key string) {
	for _, obs := range o {
		obs.CacheMiss(key)
	}
}

func (o Observers) ProviderResult(provider string, found bool, elapsed time.Duration, err error) {
	for _, obs := range o {
		obs.ProviderResult(provider, found, elapsed, err)
	}
}

func (o Observers) ProviderFallback(provider string, err error) {
	for _, obs := range o {
		obs.ProviderFallback(provider, err)
	}
}

func (o Observers) Placeholder(title, reason string) {
	for _, obs := range o {
		obs.Placeholder(title, reason)
	}
}

func (o Observers) Resolved(source string, elapsed time.Duration) {
	for _, obs := range o {
		obs.Resolved(source, elapsed)
	}
}
