package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/researchmate/research-service/internal/domain"
)

// defaultUserAgent is sent with every upstream request unless overridden.
// Crossref in particular expects a polite User-Agent with a contact address.
const defaultUserAgent = "ResearchMate/2.0 (mailto:research@researchmate.dev)"

// HTTPClientConfig configures the shared upstream HTTP client.
type HTTPClientConfig struct {
	// Timeout is the per-request timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// RequestInterval is the minimum gap between requests to this source.
	// Zero disables throttling.
	RequestInterval time.Duration

	// MaxRetries is the number of retry attempts after a rate-limit or
	// server-error response. Zero means a single attempt with no retries.
	MaxRetries int

	// RetryDelay is the base delay between retries. The wait before retry
	// attempt n is n×RetryDelay (linear backoff), unless the response carries
	// a Retry-After header, which takes precedence.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// APIKey is an optional API key for authentication.
	APIKey string

	// APIKeyHeader is the header name for the API key (e.g. "x-api-key").
	APIKeyHeader string
}

// HTTPClient wraps http.Client with per-source rate limiting and bounded
// retries. It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig
}

// NewHTTPClient creates a new HTTP client gated by the source's rate limiter.
// The limiter wait happens before every attempt, including retries, so the
// minimum inter-request interval holds across the retry loop too.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RequestInterval),
		config:      cfg,
	}
}

// Do executes an HTTP request with rate limiting and retries. It waits for
// the rate limiter before each attempt, sets the User-Agent and optional API
// key headers, and retries on 429 (Too Many Requests) and 5xx server errors
// with linearly increasing backoff.
//
// The request body is not preserved across retries; callers must provide
// requests with GetBody set if the body needs to be resent on retry.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" && c.config.APIKeyHeader != "" {
		req.Header.Set(c.config.APIKeyHeader, c.config.APIKey)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if err := c.rateLimiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt < c.config.MaxRetries {
				if err := c.waitForRetry(req.Context(), c.retryDelay(attempt)); err != nil {
					return nil, err
				}
				if err := c.resetRequestBody(req); err != nil {
					return nil, fmt.Errorf("cannot retry request: %w", err)
				}
				continue
			}
			return nil, lastErr
		}

		if c.shouldRetry(resp.StatusCode) {
			retryDelay := c.getRetryDelay(resp, attempt)

			// Drain and close the body to free the connection before retry.
			if resp.Body != nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}

			if attempt < c.config.MaxRetries {
				lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
				if err := c.waitForRetry(req.Context(), retryDelay); err != nil {
					return nil, err
				}
				if err := c.resetRequestBody(req); err != nil {
					return nil, fmt.Errorf("cannot retry request: %w", err)
				}
				continue
			}

			msg := fmt.Sprintf("max retries exhausted after %d attempts", c.config.MaxRetries+1)
			return nil, domain.NewExternalAPIError(req.URL.Host, resp.StatusCode, msg, nil)
		}

		return resp, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

// shouldRetry returns true if the status code indicates we should retry.
func (c *HTTPClient) shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return statusCode >= 500 && statusCode < 600
}

// retryDelay computes the linear backoff before the retry that follows the
// given zero-based attempt: RetryDelay after the first attempt, 2×RetryDelay
// after the second, and so on.
func (c *HTTPClient) retryDelay(attempt int) time.Duration {
	return time.Duration(attempt+1) * c.config.RetryDelay
}

// getRetryDelay determines how long to wait before retrying. A Retry-After
// header on the response takes precedence over the computed backoff.
func (c *HTTPClient) getRetryDelay(resp *http.Response, attempt int) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.retryDelay(attempt)
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.retryDelay(attempt)
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return c.retryDelay(attempt)
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func (c *HTTPClient) waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resetRequestBody resets the request body for retry if possible.
func (c *HTTPClient) resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
