// bing.go: Bing Image Search provider.
package imageprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/precivox/precivox-images/internal/errors"
	"github.com/precivox/precivox-images/internal/httpclient"
	"github.com/precivox/precivox-images/internal/logger"
)

const (
	bingProviderName    = "bing"
	bingSource          = "Bing Image Search"
	DefaultBingEndpoint = "https://api.bing.microsoft.com/v7.0/images/search"

	bingKeyHeader = "Ocp-Apim-Subscription-Key"
)

// BingConfig holds the Bing subscription key and tuning.
type BingConfig struct {
	APIKey    string
	Endpoint  string
	RateLimit float64 // requests per second, 0 disables
}

// BingProvider queries the Bing Image Search v7 API.
type BingProvider struct {
	client   *httpclient.Client
	apiKey   string
	endpoint string
	limiter  *rate.Limiter
	log      logger.Logger
}

type bingImagesResponse struct {
	Value []bingImage `json:"value"`
}

type bingImage struct {
	ContentURL string `json:"contentUrl"`
	Name       string `json:"name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// NewBingProvider creates the provider. Without a key Search fails with
// KindNotConfigured.
func NewBingProvider(cfg BingConfig, client *httpclient.Client, log logger.Logger) *BingProvider {
	if client == nil {
		client = httpclient.New(nil)
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultBingEndpoint
	}

	p := &BingProvider{
		client:   client,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		endpoint: endpoint,
		limiter:  newLimiter(cfg.RateLimit),
		log:      log.Module(bingProviderName),
	}
	if !p.Configured() {
		p.log.Warn("bing subscription key missing, provider disabled")
	}
	return p
}

// Name returns the provider identifier.
func (p *BingProvider) Name() string { return bingProviderName }

// Configured reports whether a subscription key is present.
func (p *BingProvider) Configured() bool { return p.apiKey != "" }

// Search returns the first image result for query.
func (p *BingProvider) Search(ctx context.Context, query string) (*ImageSearchResult, error) {
	reqID := uuid.New().String()[:8]

	if !p.Configured() {
		return nil, providerError(bingProviderName, KindNotConfigured, 0,
			errors.NewStd("subscription key missing"), reqID)
	}

	log := p.log.WithContext(ctx).With(
		logger.String("request_id", reqID),
		logger.String("query", query))

	if err := waitLimiter(ctx, p.limiter, bingProviderName, reqID); err != nil {
		log.Debug("rate limiter wait aborted", logger.Error(err))
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", "1")
	params.Set("offset", "0")
	params.Set("imageType", "Photo")
	params.Set("size", "Medium")
	params.Set("safeSearch", "Moderate")

	header := http.Header{}
	header.Set(bingKeyHeader, p.apiKey)

	start := time.Now()
	resp, err := p.client.Get(ctx, p.endpoint+"?"+params.Encode(), header)
	if err != nil {
		log.Debug("bing request failed", logger.Error(err))
		return nil, providerError(bingProviderName, KindRequestFailed, 0, err, reqID)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Debug("failed to close response body", logger.Error(closeErr))
		}
	}()

	if err := checkStatus(resp, bingProviderName, reqID, p.apiKey); err != nil {
		log.Warn("bing search rejected",
			logger.Int("status_code", resp.StatusCode),
			logger.Error(err))
		return nil, err
	}

	var payload bingImagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, providerError(bingProviderName, KindMalformedResponse, resp.StatusCode, err, reqID)
	}

	if len(payload.Value) == 0 || payload.Value[0].ContentURL == "" {
		log.Debug("bing returned no images", logger.Duration("elapsed", time.Since(start)))
		return nil, nil
	}

	first := payload.Value[0]
	log.Debug("bing image found",
		logger.String("url", first.ContentURL),
		logger.Duration("elapsed", time.Since(start)))

	return &ImageSearchResult{
		URL:    first.ContentURL,
		Title:  cleanTitle(first.Name),
		Source: bingSource,
		Width:  first.Width,
		Height: first.Height,
	}, nil
}
