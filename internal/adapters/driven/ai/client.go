package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const defaultTimeout = 60 * time.Second

// Option configures an embedding client
type Option func(*options)

type options struct {
	client  *http.Client
	limiter *rate.Limiter
}

// WithHTTPClient sets the HTTP client used for provider calls
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithRateLimit caps provider calls per second. Zero or negative disables limiting.
func WithRateLimit(rps float64) Option {
	return func(o *options) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{client: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// postJSON sends body as JSON and decodes the response into out.
// It returns the HTTP status so callers can map provider errors.
func postJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, headers map[string]string, body, out any) (int, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return 0, fmt.Errorf("rate limit: %w", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, fmt.Errorf("provider returned status %d", resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.StatusCode, nil
}
