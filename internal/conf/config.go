// Package conf loads and validates settings for the product image service.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/precivox/precivox-images/internal/errors"
	"github.com/precivox/precivox-images/internal/logger"
)

// Settings is the root configuration structure
type Settings struct {
	Debug         bool                  `yaml:"debug" mapstructure:"debug"`
	Logging       logger.LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Database      DatabaseSettings      `yaml:"database" mapstructure:"database"`
	ImageProvider ImageProviderSettings `yaml:"imageprovider" mapstructure:"imageprovider"`
	Telemetry     TelemetrySettings     `yaml:"telemetry" mapstructure:"telemetry"`
	Metrics       MetricsSettings       `yaml:"metrics" mapstructure:"metrics"`
}

// DatabaseSettings selects and configures the image record store backend
type DatabaseSettings struct {
	Driver             string         `yaml:"driver" mapstructure:"driver" validate:"required,oneof=sqlite mysql postgres"`
	DSN                string         `yaml:"dsn" mapstructure:"dsn" validate:"required_unless=Driver sqlite"`
	SQLite             SQLiteSettings `yaml:"sqlite" mapstructure:"sqlite"`
	MaxOpenConns       int            `yaml:"maxopenconns" mapstructure:"maxopenconns" validate:"gte=0"`
	SlowQueryThreshold time.Duration  `yaml:"slowquerythreshold" mapstructure:"slowquerythreshold" validate:"gte=0"`
}

// SQLiteSettings holds the sqlite backend options
type SQLiteSettings struct {
	Path string `yaml:"path" mapstructure:"path"` // database file, ":memory:" for ephemeral stores
}

// ImageProviderSettings configures image resolution
type ImageProviderSettings struct {
	Providers         []string       `yaml:"providers" mapstructure:"providers" validate:"required,min=1,unique,dive,oneof=google bing"` // priority order
	Google            GoogleSettings `yaml:"google" mapstructure:"google"`
	Bing              BingSettings   `yaml:"bing" mapstructure:"bing"`
	Timeout           time.Duration  `yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`
	UserAgent         string         `yaml:"useragent" mapstructure:"useragent"`
	ValidateURLs      bool           `yaml:"validateurls" mapstructure:"validateurls"`
	ValidationTimeout time.Duration  `yaml:"validationtimeout" mapstructure:"validationtimeout" validate:"gt=0"`
	BatchSize         int            `yaml:"batchsize" mapstructure:"batchsize" validate:"gte=1,lte=50"`
	BatchDelay        time.Duration  `yaml:"batchdelay" mapstructure:"batchdelay" validate:"gte=0"`
	RecentWindow      time.Duration  `yaml:"recentwindow" mapstructure:"recentwindow" validate:"gt=0"`
	PlaceholderBase   string         `yaml:"placeholderbase" mapstructure:"placeholderbase" validate:"required,url"`
	StatsCacheTTL     time.Duration  `yaml:"statscachettl" mapstructure:"statscachettl" validate:"gte=0"`
}

// GoogleSettings holds Google Custom Search credentials. Empty credentials
// leave the provider registered but not configured.
type GoogleSettings struct {
	APIKey         string  `yaml:"apikey" mapstructure:"apikey"`
	SearchEngineID string  `yaml:"searchengineid" mapstructure:"searchengineid"`
	Endpoint       string  `yaml:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	RateLimit      float64 `yaml:"ratelimit" mapstructure:"ratelimit" validate:"gte=0"` // requests per second, 0 disables
}

// BingSettings holds Bing Image Search credentials
type BingSettings struct {
	APIKey    string  `yaml:"apikey" mapstructure:"apikey"`
	Endpoint  string  `yaml:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	RateLimit float64 `yaml:"ratelimit" mapstructure:"ratelimit" validate:"gte=0"`
}

// TelemetrySettings controls optional Sentry error reporting
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn" validate:"required_if=Enabled true"`
}

// MetricsSettings controls the Prometheus scrape endpoint
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen" validate:"required_if=Enabled true"` // host:port
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file, the optional .env file and environment
// variables. An empty configFile searches the default config paths and
// writes a default config.yaml when none exists.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v := viper.New()
	if err := initViper(v, configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, environment bindings and reads the config file.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	if err := loadDotEnv(); err != nil {
		return err
	}
	if err := configureEnvironmentVariables(v); err != nil {
		return err
	}

	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.New(fmt.Errorf("error reading config file %s: %w", configFile, err)).
				Component("configuration").
				Category(errors.CategoryConfiguration).
				Context("operation", "read_config").
				Build()
		}
		return nil
	}

	v.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	err = v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(v, configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes a config.yaml built from defaults only, so
// credentials taken from the environment never land on disk.
func createDefaultConfig(v *viper.Viper, dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := defaultConfigYAML()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	v.SetConfigFile(configPath)
	return v.ReadInConfig()
}

// defaultConfigYAML renders the default settings as YAML.
func defaultConfigYAML() ([]byte, error) {
	dv := viper.New()
	setDefaultConfig(dv)

	defaults := &Settings{}
	if err := dv.Unmarshal(defaults); err != nil {
		return nil, fmt.Errorf("error building default settings: %w", err)
	}

	data, err := yaml.Marshal(defaults)
	if err != nil {
		return nil, fmt.Errorf("error marshaling default settings to YAML: %w", err)
	}
	return data, nil
}

// GetSettings returns the most recently loaded settings
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}
