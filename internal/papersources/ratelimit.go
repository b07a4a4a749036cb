package papersources

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Minimum inter-request intervals per source. These honor each upstream's
// published or de-facto politeness policy (PubMed allows ~3 requests/sec
// without an API key; arXiv asks for a 3 second gap).
const (
	ArXivRequestInterval           = 3 * time.Second
	SemanticScholarRequestInterval = 5 * time.Second
	CrossrefRequestInterval        = 100 * time.Millisecond
	PubMedRequestInterval          = 340 * time.Millisecond
)

// RateLimiter enforces a minimum interval between requests to one source.
// Wait blocks the caller until the interval since the last request to that
// source has elapsed; the last-request state is updated atomically with the
// wait. It is safe for concurrent use because the underlying rate.Limiter is
// goroutine-safe for all operations.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter that allows one request per interval with
// no burst, which is exactly the minimum-interval gate each source adapter
// needs. A non-positive interval disables throttling.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	if interval <= 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until a request is allowed or the context is canceled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow returns true if a request is allowed without waiting, consuming the
// slot if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Interval returns the configured minimum interval between requests.
// Returns 0 when throttling is disabled.
func (r *RateLimiter) Interval() time.Duration {
	limit := r.limiter.Limit()
	if limit == rate.Inf || limit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(limit))
}
