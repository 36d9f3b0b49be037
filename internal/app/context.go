// Package app assembles the image resolution service from settings. The CLI
// commands share one Context that is filled in before any command runs.
package app

import (
	"sync"
	"time"

	"github.com/precivox/precivox-images/internal/buildinfo"
	"github.com/precivox/precivox-images/internal/conf"
	"github.com/precivox/precivox-images/internal/datastore"
	"github.com/precivox/precivox-images/internal/errors"
	"github.com/precivox/precivox-images/internal/httpclient"
	"github.com/precivox/precivox-images/internal/imageprovider"
	"github.com/precivox/precivox-images/internal/logger"
	"github.com/precivox/precivox-images/internal/observability"
)

const sentryFlushTimeout = 2 * time.Second

// Context holds the assembled application state.
type Context struct {
	Settings  *conf.Settings
	BuildInfo *buildinfo.Context
	Log       logger.Logger
	Store     *datastore.GormStore
	Service   *imageprovider.Service
	Metrics   *observability.Metrics

	central  *logger.CentralLogger
	client   *httpclient.Client
	endpoint *observability.Endpoint
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewContext creates an empty context carrying build metadata.
func NewContext(info *buildinfo.Context) *Context {
	return &Context{BuildInfo: info}
}

// Init wires logging, telemetry, storage, providers and the service from
// settings. On failure everything already opened is closed again.
func (c *Context) Init(settings *conf.Settings) (err error) {
	c.Settings = settings

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Build()
	}
	c.central = central
	c.Log = central.Module("cli")

	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if settings.Telemetry.Enabled {
		if err := errors.InitSentry(settings.Telemetry.DSN, c.BuildInfo.Release()); err != nil {
			return err
		}
		c.Log.Info("error telemetry enabled")
	}

	store, err := datastore.Open(settings.Database, central.Module("datastore"))
	if err != nil {
		return err
	}
	c.Store = store

	var opts []imageprovider.Option
	c.client = httpclient.New(&httpclient.Config{
		DefaultTimeout: settings.ImageProvider.Timeout,
		UserAgent:      settings.ImageProvider.UserAgent,
	})

	if settings.Metrics.Enabled {
		if err := c.startMetrics(settings.Metrics); err != nil {
			return err
		}
		opts = append(opts, imageprovider.WithObserver(c.Metrics.ImageProvider))
	}

	providers, err := BuildProviders(settings.ImageProvider, c.client, central.Module("imageprovider"))
	if err != nil {
		return err
	}

	ip := settings.ImageProvider
	opts = append(opts,
		imageprovider.WithLogger(central.Module("imageprovider")),
		imageprovider.WithBatchSize(ip.BatchSize),
		imageprovider.WithBatchDelay(ip.BatchDelay),
		imageprovider.WithRecentWindow(ip.RecentWindow),
		imageprovider.WithPlaceholderBase(ip.PlaceholderBase),
		imageprovider.WithStatsCacheTTL(ip.StatsCacheTTL),
	)
	if ip.ValidateURLs {
		opts = append(opts, imageprovider.WithValidator(imageprovider.NewHeadValidator(c.client, ip.ValidationTimeout)))
	}

	svc, err := imageprovider.NewService(store, providers, opts...)
	if err != nil {
		return err
	}
	c.Service = svc
	return nil
}

// BuildProviders creates the configured providers in priority order.
func BuildProviders(settings conf.ImageProviderSettings, client *httpclient.Client, log logger.Logger) ([]imageprovider.ImageProvider, error) {
	providers := make([]imageprovider.ImageProvider, 0, len(settings.Providers))
	for _, name := range settings.Providers {
		switch name {
		case "google":
			providers = append(providers, imageprovider.NewGoogleProvider(imageprovider.GoogleConfig{
				APIKey:         settings.Google.APIKey,
				SearchEngineID: settings.Google.SearchEngineID,
				Endpoint:       settings.Google.Endpoint,
				RateLimit:      settings.Google.RateLimit,
			}, client, log))
		case "bing":
			providers = append(providers, imageprovider.NewBingProvider(imageprovider.BingConfig{
				APIKey:    settings.Bing.APIKey,
				Endpoint:  settings.Bing.Endpoint,
				RateLimit: settings.Bing.RateLimit,
			}, client, log))
		default:
			return nil, errors.Newf("unknown image provider %q", name).
				Component("app").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}
	return providers, nil
}

func (c *Context) startMetrics(settings conf.MetricsSettings) error {
	m, err := observability.NewMetrics(c.central.Module("observability"))
	if err != nil {
		return err
	}
	m.InstrumentClient(c.client)
	c.Metrics = m

	endpoint, err := observability.NewEndpoint(settings, m)
	if err != nil {
		return err
	}
	c.quit = make(chan struct{})
	if err := endpoint.Start(&c.wg, c.quit); err != nil {
		return err
	}
	c.endpoint = endpoint
	return nil
}

// Close releases everything Init opened. It is safe to call more than once.
func (c *Context) Close() {
	if c.quit != nil {
		close(c.quit)
		c.quit = nil
	}
	c.wg.Wait()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil && c.Log != nil {
			c.Log.Warn("failed to close image record store", logger.Error(err))
		}
		c.Store = nil
	}
	if c.Settings != nil && c.Settings.Telemetry.Enabled {
		errors.FlushSentry(sentryFlushTimeout)
	}
	if c.central != nil {
		_ = c.central.Close()
		c.central = nil
	}
}
