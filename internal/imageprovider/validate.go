package imageprovider

import (
	"context"
	"time"

	"github.com/precivox/precivox-images/internal/errors"
	"github.com/precivox/precivox-images/internal/httpclient"
)

// DefaultValidationTimeout bounds the reachability check of a found image.
const DefaultValidationTimeout = 5 * time.Second

// URLValidator checks that a resolved image URL is reachable.
type URLValidator interface {
	Validate(ctx context.Context, imageURL string) error
}

// HeadValidator issues a HEAD request and accepts any 2xx or 3xx answer.
type HeadValidator struct {
	client  *httpclient.Client
	timeout time.Duration
}

// NewHeadValidator creates a validator. A zero timeout uses DefaultValidationTimeout.
func NewHeadValidator(client *httpclient.Client, timeout time.Duration) *HeadValidator {
	if client == nil {
		client = httpclient.New(nil)
	}
	if timeout <= 0 {
		timeout = DefaultValidationTimeout
	}
	return &HeadValidator{client: client, timeout: timeout}
}

// Validate returns an error when the URL does not answer HEAD successfully.
func (v *HeadValidator) Validate(ctx context.Context, imageURL string) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	resp, err := v.client.Head(ctx, imageURL)
	if err != nil {
		return errors.NetworkError(err, imageURL, v.timeout)
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.Newf("image URL answered HEAD with status %d", resp.StatusCode).
			Component("imageprovider").
			Category(errors.CategoryImageFetch).
			Context("status_code", resp.StatusCode).
			Timing("head_check", time.Since(start)).
			Build()
	}
	return nil
}
