package app

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/precivox/precivox-images/internal/conf"
	"github.com/precivox/precivox-images/internal/httpclient"
	"github.com/precivox/precivox-images/internal/imageprovider"
	"github.com/precivox/precivox-images/internal/logger"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	return &conf.Settings{
		Logging: logger.LoggingConfig{
			DefaultLevel: "error",
			Console:      &logger.ConsoleOutput{Enabled: false},
		},
		Database: conf.DatabaseSettings{
			Driver: "sqlite",
			SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "images.db")},
		},
		ImageProvider: conf.ImageProviderSettings{
			Providers:         []string{"bing", "google"},
			Google:            conf.GoogleSettings{Endpoint: conf.DefaultGoogleEndpoint},
			Bing:              conf.BingSettings{Endpoint: conf.DefaultBingEndpoint},
			Timeout:           time.Second,
			ValidationTimeout: time.Second,
			BatchSize:         3,
			RecentWindow:      24 * time.Hour,
			PlaceholderBase:   conf.DefaultPlaceholderBase,
		},
	}
}

func TestBuildProvidersKeepsPriorityOrder(t *testing.T) {
	t.Parallel()
	settings := testSettings(t).ImageProvider

	providers, err := BuildProviders(settings, httpclient.New(nil), nil)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	assert.Equal(t, "bing", providers[0].Name())
	assert.Equal(t, "google", providers[1].Name())
}

func TestBuildProvidersRejectsUnknown(t *testing.T) {
	t.Parallel()
	settings := testSettings(t).ImageProvider
	settings.Providers = []string{"google", "duckduckgo"}

	_, err := BuildProviders(settings, httpclient.New(nil), nil)
	require.Error(t, err)
}

func TestInitWithoutCredentialsFallsBackToPlaceholder(t *testing.T) {
	t.Parallel()
	appCtx := NewContext(nil)
	require.NoError(t, appCtx.Init(testSettings(t)))
	defer appCtx.Close()

	require.NotNil(t, appCtx.Service)
	require.NotNil(t, appCtx.Store)
	assert.Nil(t, appCtx.Metrics)

	url := appCtx.Service.ResolveOne(t.Context(), "Arroz", "")
	assert.Equal(t, imageprovider.PlaceholderURL(conf.DefaultPlaceholderBase, "Arroz"), url)
}

func TestInitStartsMetricsEndpoint(t *testing.T) {
	t.Parallel()
	settings := testSettings(t)
	settings.Metrics = conf.MetricsSettings{Enabled: true, Listen: "127.0.0.1:0"}

	appCtx := NewContext(nil)
	require.NoError(t, appCtx.Init(settings))
	defer appCtx.Close()
	require.NotNil(t, appCtx.Metrics)

	appCtx.Service.ResolveOne(t.Context(), "Feijão", "")

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+appCtx.endpoint.Addr()+"/metrics", http.NoBody)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInitFailureClosesResources(t *testing.T) {
	t.Parallel()
	settings := testSettings(t)
	settings.Database.Driver = "oracle"

	appCtx := NewContext(nil)
	require.Error(t, appCtx.Init(settings))
	assert.Nil(t, appCtx.Store)
	assert.Nil(t, appCtx.Service)

	appCtx.Close()
}
