package conf

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/precivox/precivox-images/internal/errors"
)

// envPrefix applies to every key not listed in getEnvBindings,
// e.g. PRECIVOX_IMAGEPROVIDER_BATCHSIZE.
const envPrefix = "PRECIVOX"

// DotEnvFile is the optional file loaded into the process environment before
// bindings are evaluated. Variables already set in the environment win.
var DotEnvFile = ".env"

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicitly named environment variables. The
// provider credentials keep the names the web application already uses.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"imageprovider.google.apikey", "GOOGLE_CUSTOM_SEARCH_API_KEY", nil},
		{"imageprovider.google.searchengineid", "GOOGLE_SEARCH_ENGINE_ID", nil},
		{"imageprovider.bing.apikey", "BING_SEARCH_API_KEY", nil},

		{"database.dsn", "DATABASE_URL", nil},
		{"telemetry.dsn", "SENTRY_DSN", nil},

		{"debug", "PRECIVOX_DEBUG", validateEnvBool},
		{"database.driver", "PRECIVOX_DATABASE_DRIVER", validateEnvDriver},
		{"imageprovider.batchsize", "PRECIVOX_BATCH_SIZE", validateEnvPositiveInt},
	}
}

// loadDotEnv merges DotEnvFile into the environment when it exists.
func loadDotEnv() error {
	if DotEnvFile == "" {
		return nil
	}
	if err := godotenv.Load(DotEnvFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.New(fmt.Errorf("error loading %s: %w", DotEnvFile, err)).
			Component("configuration").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// bindEnvVars sets up environment variable bindings with validation
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return errors.Newf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - ")).
			Component("configuration").
			Category(errors.CategoryValidation).
			Build()
	}

	return nil
}

// configureEnvironmentVariables enables prefixed automatic env lookup and the
// explicit bindings.
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return bindEnvVars(v)
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvDriver(value string) error {
	switch value {
	case "sqlite", "mysql", "postgres":
		return nil
	default:
		return fmt.Errorf("must be one of sqlite, mysql, postgres")
	}
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}
