package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolateEnv points the .env lookup at an empty temp dir so the developer's
// own environment files never leak into tests.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := DotEnvFile
	DotEnvFile = filepath.Join(dir, ".env")
	t.Cleanup(func() { DotEnvFile = orig })
	for _, b := range getEnvBindings() {
		t.Setenv(b.EnvVar, "")
		require.NoError(t, os.Unsetenv(b.EnvVar))
	}
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "debug: false\n")

	settings, err := Load(path)
	require.NoError(t, err)

	ip := settings.ImageProvider
	assert.Equal(t, []string{"google", "bing"}, ip.Providers)
	assert.Equal(t, 5, ip.BatchSize)
	assert.Equal(t, time.Second, ip.BatchDelay)
	assert.Equal(t, 10*time.Second, ip.Timeout)
	assert.Equal(t, 5*time.Second, ip.ValidationTimeout)
	assert.Equal(t, 7*24*time.Hour, ip.RecentWindow)
	assert.Equal(t, DefaultPlaceholderBase, ip.PlaceholderBase)
	assert.Equal(t, DefaultGoogleEndpoint, ip.Google.Endpoint)
	assert.Equal(t, DefaultBingEndpoint, ip.Bing.Endpoint)
	assert.True(t, ip.ValidateURLs)
	assert.Equal(t, "sqlite", settings.Database.Driver)
	assert.Equal(t, DefaultSQLitePath, settings.Database.SQLite.Path)
	assert.False(t, settings.Metrics.Enabled)
	assert.Equal(t, "localhost:8090", settings.Metrics.Listen)
	assert.Same(t, settings, GetSettings())
}

func TestLoadReadsFileValues(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, `
database:
  driver: sqlite
  sqlite:
    path: ":memory:"
imageprovider:
  providers: [bing, google]
  batchsize: 3
  batchdelay: 250ms
  statscachettl: 0s
`)

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"bing", "google"}, settings.ImageProvider.Providers)
	assert.Equal(t, 3, settings.ImageProvider.BatchSize)
	assert.Equal(t, 250*time.Millisecond, settings.ImageProvider.BatchDelay)
	assert.Zero(t, settings.ImageProvider.StatsCacheTTL)
	assert.Equal(t, ":memory:", settings.Database.SQLite.Path)
}

func TestLoadBindsProviderCredentialsFromEnv(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "debug: false\n")

	t.Setenv("GOOGLE_CUSTOM_SEARCH_API_KEY", "google-key")
	t.Setenv("GOOGLE_SEARCH_ENGINE_ID", "engine-id")
	t.Setenv("BING_SEARCH_API_KEY", "bing-key")
	t.Setenv("PRECIVOX_IMAGEPROVIDER_BATCHDELAY", "2s")

	settings, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "google-key", settings.ImageProvider.Google.APIKey)
	assert.Equal(t, "engine-id", settings.ImageProvider.Google.SearchEngineID)
	assert.Equal(t, "bing-key", settings.ImageProvider.Bing.APIKey)
	assert.Equal(t, 2*time.Second, settings.ImageProvider.BatchDelay)
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "debug: false\n")
	require.NoError(t, os.WriteFile(DotEnvFile, []byte("BING_SEARCH_API_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("BING_SEARCH_API_KEY") })

	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", settings.ImageProvider.Bing.APIKey)
}

func TestLoadRejectsInvalidEnvValue(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "debug: false\n")
	t.Setenv("PRECIVOX_DATABASE_DRIVER", "oracle")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PRECIVOX_DATABASE_DRIVER")
}

func TestLoadCreatesDefaultConfigWithoutSecrets(t *testing.T) {
	isolateEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GOOGLE_CUSTOM_SEARCH_API_KEY", "must-not-be-written")

	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "must-not-be-written", settings.ImageProvider.Google.APIKey)

	data, err := os.ReadFile(filepath.Join(home, ".config", appDirName, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "must-not-be-written")

	var onDisk Settings
	require.NoError(t, yaml.Unmarshal(data, &onDisk))
	assert.Equal(t, []string{"google", "bing"}, onDisk.ImageProvider.Providers)
}

func TestValidateSettings(t *testing.T) {
	dir := isolateEnv(t)
	path := writeConfig(t, dir, "debug: false\n")
	base, err := Load(path)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(s *Settings)
		want   string
	}{
		{"unknown provider", func(s *Settings) { s.ImageProvider.Providers = []string{"yahoo"} }, "ImageProvider.Providers[0] failed oneof"},
		{"duplicate provider", func(s *Settings) { s.ImageProvider.Providers = []string{"bing", "bing"} }, "ImageProvider.Providers failed unique"},
		{"zero batch size", func(s *Settings) { s.ImageProvider.BatchSize = 0 }, "ImageProvider.BatchSize failed gte=1"},
		{"mysql without dsn", func(s *Settings) { s.Database.Driver = "mysql" }, "Database.DSN failed required_unless"},
		{"telemetry without dsn", func(s *Settings) { s.Telemetry.Enabled = true }, "Telemetry.DSN failed required_if"},
		{"bad telemetry dsn", func(s *Settings) {
			s.Telemetry.Enabled = true
			s.Telemetry.DSN = "not a url"
		}, "telemetry.dsn must be a valid Sentry DSN"},
		{"metrics without listen", func(s *Settings) {
			s.Metrics.Enabled = true
			s.Metrics.Listen = ""
		}, "Metrics.Listen failed required_if"},
		{"metrics listen without port", func(s *Settings) {
			s.Metrics.Enabled = true
			s.Metrics.Listen = "8090"
		}, "metrics.listen must be host:port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := *base
			s.ImageProvider.Providers = append([]string(nil), base.ImageProvider.Providers...)
			tt.mutate(&s)

			err := ValidateSettings(&s)
			require.Error(t, err)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Error(), tt.want)
		})
	}

	require.NoError(t, ValidateSettings(base))
}
