package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Drive allows 10 requests per second per user; stay below it.
const (
	driveRequestsPerSecond = 8.0
	driveBurst             = 10
	defaultBackoff         = 60 * time.Second
)

// RateLimiter paces Drive requests with a token bucket and holds every
// caller back after the API reported an exhausted quota.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter with the Drive defaults.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithRate(driveRequestsPerSecond, driveBurst)
}

// NewRateLimiterWithRate creates a limiter with a custom rate.
func NewRateLimiterWithRate(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		now:     time.Now,
	}
}

// Wait blocks until a request may be sent.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := retryAt.Sub(r.now()); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// Backoff delays all following requests by d, or a minute when d <= 0.
func (r *RateLimiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = defaultBackoff
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := r.now().Add(d); until.After(r.retryAt) {
		r.retryAt = until
	}
}

// BackingOff reports whether a backoff period is active.
func (r *RateLimiter) BackingOff() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now().Before(r.retryAt)
}
