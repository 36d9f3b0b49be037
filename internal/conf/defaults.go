package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with the image provider package
const (
	DefaultGoogleEndpoint  = "https://www.googleapis.com/customsearch/v1"
	DefaultBingEndpoint    = "https://api.bing.microsoft.com/v7.0/images/search"
	DefaultPlaceholderBase = "https://via.placeholder.com/300x300/cccccc/666666"
	DefaultSQLitePath      = "data/precivox-images.db"
)

// setDefaultConfig registers default values for every configuration key.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/precivox-images.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.sqlite.path", DefaultSQLitePath)
	v.SetDefault("database.maxopenconns", 0)
	v.SetDefault("database.slowquerythreshold", 200*time.Millisecond)

	v.SetDefault("imageprovider.providers", []string{"google", "bing"})
	v.SetDefault("imageprovider.google.apikey", "")
	v.SetDefault("imageprovider.google.searchengineid", "")
	v.SetDefault("imageprovider.google.endpoint", DefaultGoogleEndpoint)
	v.SetDefault("imageprovider.google.ratelimit", 1.0)
	v.SetDefault("imageprovider.bing.apikey", "")
	v.SetDefault("imageprovider.bing.endpoint", DefaultBingEndpoint)
	v.SetDefault("imageprovider.bing.ratelimit", 3.0)
	v.SetDefault("imageprovider.timeout", 10*time.Second)
	v.SetDefault("imageprovider.useragent", "PRECIVOX-ImageResolver/1.0")
	v.SetDefault("imageprovider.validateurls", true)
	v.SetDefault("imageprovider.validationtimeout", 5*time.Second)
	v.SetDefault("imageprovider.batchsize", 5)
	v.SetDefault("imageprovider.batchdelay", time.Second)
	v.SetDefault("imageprovider.recentwindow", 7*24*time.Hour)
	v.SetDefault("imageprovider.placeholderbase", DefaultPlaceholderBase)
	v.SetDefault("imageprovider.statscachettl", 30*time.Second)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "localhost:8090")
}
