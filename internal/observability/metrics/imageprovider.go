// Package metrics provides custom Prometheus metrics for the product image service.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/precivox/precivox-images/internal/errors"
	"github.com/precivox/precivox-images/internal/imageprovider"
)

// ImageProviderMetrics contains all Prometheus metrics related to image
// resolution. It implements imageprovider.Observer.
type ImageProviderMetrics struct {
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	ProviderRequests   *prometheus.CounterVec
	ProviderErrors     *prometheus.CounterVec
	ProviderDuration   *prometheus.HistogramVec
	ProviderFallbacks  *prometheus.CounterVec
	Placeholders       *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	registry           *prometheus.Registry
}

var _ imageprovider.Observer = (*ImageProviderMetrics)(nil)

// NewImageProviderMetrics creates a new instance of ImageProviderMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewImageProviderMetrics(registry *prometheus.Registry) (*ImageProviderMetrics, error) {
	m := &ImageProviderMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ImageProvider metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for ImageProviderMetrics.
func (m *ImageProviderMetrics) initMetrics() {
	m.CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_cache_hits_total",
		Help: "Total number of resolutions served from stored image records.",
	})

	m.CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_provider_cache_misses_total",
		Help: "Total number of resolutions that had to search providers.",
	})

	m.ProviderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_requests_total",
		Help: "Total number of provider searches by outcome.",
	}, []string{"provider", "outcome"}) // outcome: found, empty, error

	m.ProviderErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_errors_total",
		Help: "Total number of failed provider searches by error kind.",
	}, []string{"provider", "kind"}) // kind: not_configured, request_failed, rate_limited, malformed_response

	m.ProviderDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "image_provider_request_duration_seconds",
		Help:    "Duration of provider searches in seconds.",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12),
	}, []string{"provider"})

	m.ProviderFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_fallbacks_total",
		Help: "Total number of times resolution moved past a provider.",
	}, []string{"provider"})

	m.Placeholders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_provider_placeholders_total",
		Help: "Total number of placeholder URLs returned by reason.",
	}, []string{"reason"})

	m.ResolutionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "image_provider_resolution_duration_seconds",
		Help:    "End to end duration of single title resolutions in seconds.",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
	}, []string{"source"}) // source: cache, provider, placeholder
}

// CacheHit increases the cache hit counter by one.
func (m *ImageProviderMetrics) CacheHit(string) {
	m.CacheHits.Inc()
}

// CacheMiss increases the cache miss counter by one.
func (m *ImageProviderMetrics) CacheMiss(string) {
	m.CacheMisses.Inc()
}

// ProviderResult records the outcome and duration of one provider search.
func (m *ImageProviderMetrics) ProviderResult(provider string, found bool, elapsed time.Duration, err error) {
	outcome := OutcomeEmpty
	switch {
	case err != nil:
		outcome = OutcomeError
		m.ProviderErrors.WithLabelValues(provider, errorKind(err)).Inc()
	case found:
		outcome = OutcomeFound
	}
	m.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	m.ProviderDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// ProviderFallback counts a move to the next provider.
func (m *ImageProviderMetrics) ProviderFallback(provider string, _ error) {
	m.ProviderFallbacks.WithLabelValues(provider).Inc()
}

// Placeholder counts a placeholder response by reason.
func (m *ImageProviderMetrics) Placeholder(_, reason string) {
	m.Placeholders.WithLabelValues(reason).Inc()
}

// Resolved records the end to end resolution duration by source.
func (m *ImageProviderMetrics) Resolved(source string, elapsed time.Duration) {
	m.ResolutionDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// errorKind extracts the provider error kind used as a label.
func errorKind(err error) string {
	var pe *imageprovider.ProviderError
	if errors.As(err, &pe) && pe.Kind != "" {
		return string(pe.Kind)
	}
	return LabelUnknown
}

// Collect implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CacheHits.Collect(ch)
	m.CacheMisses.Collect(ch)
	m.ProviderRequests.Collect(ch)
	m.ProviderErrors.Collect(ch)
	m.ProviderDuration.Collect(ch)
	m.ProviderFallbacks.Collect(ch)
	m.Placeholders.Collect(ch)
	m.ResolutionDuration.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *ImageProviderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CacheHits.Describe(ch)
	m.CacheMisses.Describe(ch)
	m.ProviderRequests.Describe(ch)
	m.ProviderErrors.Describe(ch)
	m.ProviderDuration.Describe(ch)
	m.ProviderFallbacks.Describe(ch)
	m.Placeholders.Describe(ch)
	m.ResolutionDuration.Describe(ch)
}
