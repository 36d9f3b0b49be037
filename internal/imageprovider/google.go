// google.go: Google Custom Search image provider.
package imageprovider

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"github.com/k3a/html2text"
	"golang.org/x/time/rate"

	"github.com/precivox/precivox-images/internal/errors"
	"github.com/precivox/precivox-images/internal/httpclient"
	"github.com/precivox/precivox-images/internal/logger"
)

const (
	googleProviderName    = "google"
	googleSource          = "Google Custom Search"
	DefaultGoogleEndpoint = "https://www.googleapis.com/customsearch/v1"

	// errorBodyPreview bounds how much of a failed response is kept for diagnostics
	errorBodyPreview = 512
)

// GoogleConfig holds Google Custom Search credentials and tuning.
type GoogleConfig struct {
	APIKey         string
	SearchEngineID string
	Endpoint       string
	RateLimit      float64 // requests per second, 0 disables
}

// GoogleProvider queries the Custom Search JSON API for a single image.
type GoogleProvider struct {
	client   *httpclient.Client
	apiKey   string
	engineID string
	endpoint string
	limiter  *rate.Limiter
	log      logger.Logger
}

// NewGoogleProvider creates the provider. Missing credentials are accepted;
// Search then fails with KindNotConfigured without touching the network.
func NewGoogleProvider(cfg GoogleConfig, client *httpclient.Client, log logger.Logger) *GoogleProvider {
	if client == nil {
		client = httpclient.New(nil)
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultGoogleEndpoint
	}

	p := &GoogleProvider{
		client:   client,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		engineID: strings.TrimSpace(cfg.SearchEngineID),
		endpoint: endpoint,
		limiter:  newLimiter(cfg.RateLimit),
		log:      log.Module(googleProviderName),
	}

	if !p.Configured() {
		p.log.Warn("google custom search credentials missing, provider disabled",
			logger.Bool("has_api_key", p.apiKey != ""),
			logger.Bool("has_search_engine_id", p.engineID != ""))
	}
	return p
}

// Name returns the provider identifier.
func (p *GoogleProvider) Name() string { return googleProviderName }

// Configured reports whether both credentials are present.
func (p *GoogleProvider) Configured() bool {
	return p.apiKey != "" && p.engineID != ""
}

// Search returns the first image result for query.
func (p *GoogleProvider) Search(ctx context.Context, query string) (*ImageSearchResult, error) {
	reqID := uuid.New().String()[:8]

	if !p.Configured() {
		return nil, providerError(googleProviderName, KindNotConfigured, 0,
			errors.NewStd("api key or search engine id missing"), reqID)
	}

	log := p.log.WithContext(ctx).With(
		logger.String("request_id", reqID),
		logger.String("query", query))

	if err := waitLimiter(ctx, p.limiter, googleProviderName, reqID); err != nil {
		log.Debug("rate limiter wait aborted", logger.Error(err))
		return nil, err
	}

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.engineID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", "1")
	params.Set("safe", "medium")
	params.Set("imgSize", "medium")
	params.Set("imgType", "photo")

	start := time.Now()
	resp, err := p.client.Get(ctx, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		err = redactURLError(err)
		log.Debug("google request failed", logger.Error(err))
		return nil, providerError(googleProviderName, KindRequestFailed, 0, err, reqID)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Debug("failed to close response body", logger.Error(closeErr))
		}
	}()

	if err := checkStatus(resp, googleProviderName, reqID, p.apiKey, p.engineID); err != nil {
		log.Warn("google search rejected",
			logger.Int("status_code", resp.StatusCode),
			logger.Error(err))
		return nil, err
	}

	obj, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return nil, providerError(googleProviderName, KindMalformedResponse, resp.StatusCode, err, reqID)
	}

	// Google omits "items" entirely when nothing matched.
	items, err := obj.GetObjectArray("items")
	if err != nil || len(items) == 0 {
		log.Debug("google returned no images", logger.Duration("elapsed", time.Since(start)))
		return nil, nil
	}

	first := items[0]
	link, err := first.GetString("link")
	if err != nil {
		return nil, providerError(googleProviderName, KindMalformedResponse, resp.StatusCode, err, reqID)
	}
	if link == "" {
		return nil, nil
	}

	result := &ImageSearchResult{
		URL:    link,
		Source: googleSource,
	}
	if title, err := first.GetString("title"); err == nil {
		result.Title = cleanTitle(title)
	}
	if width, err := first.GetInt64("image", "width"); err == nil {
		result.Width = int(width)
	}
	if height, err := first.GetInt64("image", "height"); err == nil {
		result.Height = int(height)
	}

	log.Debug("google image found",
		logger.String("url", result.URL),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}

// checkStatus maps non-2xx responses onto provider error kinds. Occurrences
// of secrets in the response body are masked.
func checkStatus(resp *http.Response, provider, reqID string, secrets ...string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyPreview))
	preview := logger.RedactSensitiveData(string(body))
	for _, secret := range secrets {
		if secret != "" {
			preview = strings.ReplaceAll(preview, secret, "[REDACTED]")
		}
	}
	cause := errors.Newf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(preview)).
		Component("imageprovider").
		Category(errors.CategoryHTTP).
		Build()

	kind := KindRequestFailed
	if resp.StatusCode == http.StatusTooManyRequests {
		kind = KindRateLimited
	}
	return providerError(provider, kind, resp.StatusCode, cause, reqID)
}

// redactURLError masks credentials in the request URL carried by transport errors.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = logger.RedactSensitiveData(urlErr.URL)
	}
	return err
}

// cleanTitle strips markup such as <b> highlights from result titles.
func cleanTitle(title string) string {
	return strings.TrimSpace(html2text.HTML2Text(title))
}
