package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Giới hạn số lượng request trong 1 giây
type RateLimiter struct {
	bucket *rate.Limiter
}

// NewRateLimiter allows requestsPerSecond requests per second with a burst
// of one. Zero or less means unlimited.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	if requestsPerSecond <= 0 {
		return &RateLimiter{bucket: rate.NewLimiter(rate.Inf, 1)}
	}
	return &RateLimiter{bucket: rate.NewLimiter(rate.Limit(requestsPerSecond), 1)}
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.bucket.Wait(ctx)
}
