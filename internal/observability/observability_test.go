package observability

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/precivox/precivox-images/internal/conf"
	"github.com/precivox/precivox-images/internal/datastore"
	"github.com/precivox/precivox-images/internal/httpclient"
	"github.com/precivox/precivox-images/internal/imageprovider"
)

func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()
	const numGoroutines = 20

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics(nil)
			if !assert.NoError(t, err) {
				return
			}
			assert.NotNil(t, m.registry)
			assert.NotNil(t, m.ImageProvider)
			assert.NotNil(t, m.HTTPClient)
		})
	}
	wg.Wait()
}

func TestNewEndpointDisabled(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	_, err = NewEndpoint(conf.MetricsSettings{Enabled: false}, m)
	require.Error(t, err)
}

func TestEndpointServesMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics(nil)
	require.NoError(t, err)
	m.ImageProvider.CacheHit("arroz")

	ep, err := NewEndpoint(conf.MetricsSettings{Enabled: true, Listen: "127.0.0.1:0"}, m)
	require.NoError(t, err)

	var wg sync.WaitGroup
	quit := make(chan struct{})
	require.NoError(t, ep.Start(&wg, quit))
	defer func() {
		close(quit)
		wg.Wait()
	}()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+ep.Addr()+"/metrics", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "image_provider_cache_hits_total 1")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestEndpointBindFailure(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	ep, err := NewEndpoint(conf.MetricsSettings{Enabled: true, Listen: "256.0.0.1:99999"}, m)
	require.NoError(t, err)

	var wg sync.WaitGroup
	require.Error(t, ep.Start(&wg, make(chan struct{})))
	wg.Wait()
}

// TestServiceFeedsMetrics resolves through a real service and Google provider
// and checks the collectors observed the run.
func TestServiceFeedsMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, imageprovider.DefaultGoogleEndpoint,
		httpmock.NewStringResponder(http.StatusOK, `{"items":[{"link":"https://cdn.example.com/arroz.jpg","title":"Arroz"}]}`))
	transport.RegisterResponder(http.MethodGet, imageprovider.DefaultBingEndpoint,
		httpmock.NewStringResponder(http.StatusTooManyRequests, `{}`))

	client := httpclient.New(&httpclient.Config{Transport: transport})
	m.InstrumentClient(client)

	store, err := datastore.Open(conf.DatabaseSettings{Driver: "sqlite", SQLite: conf.SQLiteSettings{Path: ":memory:"}}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	providers := []imageprovider.ImageProvider{
		imageprovider.NewBingProvider(imageprovider.BingConfig{APIKey: "bing-key"}, client, nil),
		imageprovider.NewGoogleProvider(imageprovider.GoogleConfig{APIKey: "g-key", SearchEngineID: "cx"}, client, nil),
	}
	svc, err := imageprovider.NewService(store, providers, imageprovider.WithObserver(m.ImageProvider))
	require.NoError(t, err)

	ctx := context.Background()
	assert.Equal(t, "https://cdn.example.com/arroz.jpg", svc.ResolveOne(ctx, "Arroz", ""))
	assert.Equal(t, "https://cdn.example.com/arroz.jpg", svc.ResolveOne(ctx, "ARROZ", ""))

	ip := m.ImageProvider
	assert.InDelta(t, 1, testutil.ToFloat64(ip.CacheHits), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(ip.CacheMisses), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(ip.ProviderErrors.WithLabelValues("bing", string(imageprovider.KindRateLimited))), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(ip.ProviderFallbacks.WithLabelValues("bing")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(ip.ProviderRequests.WithLabelValues("google", "found")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.HTTPClient, "http_client_requests_total"))
}
