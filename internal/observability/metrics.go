// Package observability provides metrics and monitoring capabilities for the
// product image service.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/precivox/precivox-images/internal/httpclient"
	"github.com/precivox/precivox-images/internal/logger"
	"github.com/precivox/precivox-images/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry      *prometheus.Registry
	ImageProvider *metrics.ImageProviderMetrics
	HTTPClient    *metrics.HTTPClientMetrics
	log           logger.Logger
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors
// on a private registry together with the Go runtime and process collectors.
func NewMetrics(log logger.Logger) (*Metrics, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	imageProviderMetrics, err := metrics.NewImageProviderMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create ImageProvider metrics: %w", err)
	}

	httpClientMetrics, err := metrics.NewHTTPClientMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client metrics: %w", err)
	}

	return &Metrics{
		registry:      registry,
		ImageProvider: imageProviderMetrics,
		HTTPClient:    httpClientMetrics,
		log:           log.Module("metrics"),
	}, nil
}

// InstrumentClient installs the outbound request hooks on client.
func (m *Metrics) InstrumentClient(client *httpclient.Client) {
	client.SetBeforeRequestHook(m.HTTPClient.BeforeRequest)
	client.SetAfterResponseHook(m.HTTPClient.AfterResponse)
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", m.Handler())
}

// Handler returns the Prometheus exposition handler for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLogger{m.log},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// promErrorLogger routes promhttp errors to the module logger.
type promErrorLogger struct {
	log logger.Logger
}

func (l promErrorLogger) Println(v ...any) {
	l.log.Error("metrics handler error", logger.String("error", fmt.Sprint(v...)))
}
