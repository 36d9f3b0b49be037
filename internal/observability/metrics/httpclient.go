// Package metrics provides outbound HTTP metrics for observability
package metrics

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPClientMetrics counts outbound requests made through the shared client.
type HTTPClientMetrics struct {
	registry *prometheus.Registry

	requestsTotal *prometheus.CounterVec
	inFlight      prometheus.Gauge
}

// NewHTTPClientMetrics creates and registers outbound HTTP metrics
func NewHTTPClientMetrics(registry *prometheus.Registry) (*HTTPClientMetrics, error) {
	m := &HTTPClientMetrics{registry: registry}
	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_requests_total",
			Help: "Total number of outbound HTTP requests",
		},
		[]string{"host", "method", "status_code"}, // status_code: 200, 429, error
	)
	m.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_client_requests_in_flight",
		Help: "Outbound HTTP requests currently awaiting a response",
	})
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP client metrics: %w", err)
	}
	return m, nil
}

// BeforeRequest is installed as the client's before-request hook.
func (m *HTTPClientMetrics) BeforeRequest(*http.Request) {
	m.inFlight.Inc()
}

// AfterResponse is installed as the client's after-response hook.
func (m *HTTPClientMetrics) AfterResponse(req *http.Request, resp *http.Response, err error) {
	m.inFlight.Dec()
	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	m.requestsTotal.WithLabelValues(req.URL.Host, req.Method, status).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPClientMetrics) Collect(ch chan<- prometheus.Metric) {
	m.requestsTotal.Collect(ch)
	m.inFlight.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *HTTPClientMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.requestsTotal.Describe(ch)
	m.inFlight.Describe(ch)
}
