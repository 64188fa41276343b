package github

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// GitHubRateLimit is the authenticated rate limit (5000/hour).
	GitHubRateLimit = 5000

	// ProactiveRate keeps a sync below the hourly quota (~4320/hr).
	ProactiveRate = 1.2

	// MinBuffer is the minimum remaining requests before waiting for reset.
	MinBuffer = 100

	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRetryAfter    = "Retry-After"
)

// RateLimiter throttles requests proactively and pauses until the quota
// resets when the API reports it nearly exhausted.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int
	limit     int
	resetTime time.Time
	bucket    *rate.Limiter
	minBuffer int
	now       func() time.Time
}

// NewRateLimiter creates a limiter with the default proactive rate.
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithRate(ProactiveRate, 1)
}

// NewRateLimiterWithRate creates a limiter allowing rps requests per second.
func NewRateLimiterWithRate(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		remaining: GitHubRateLimit,
		limit:     GitHubRateLimit,
		bucket:    rate.NewLimiter(rate.Limit(rps), burst),
		minBuffer: MinBuffer,
		now:       time.Now,
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	remaining := r.remaining
	wait := r.resetTime.Sub(r.now())
	r.mu.Unlock()

	if remaining >= r.minBuffer || wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UpdateFromResponse updates the quota from response headers. A
// Retry-After header moves the reset time forward and empties the quota.
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if val, err := strconv.Atoi(resp.Header.Get(HeaderRateRemaining)); err == nil {
		r.remaining = val
	}
	if val, err := strconv.Atoi(resp.Header.Get(HeaderRateLimit)); err == nil {
		r.limit = val
	}
	if val, err := strconv.ParseInt(resp.Header.Get(HeaderRateReset), 10, 64); err == nil {
		r.resetTime = time.Unix(val, 0)
	}
	if seconds, err := strconv.Atoi(resp.Header.Get(HeaderRetryAfter)); err == nil && seconds > 0 {
		r.remaining = 0
		r.resetTime = r.now().Add(time.Duration(seconds) * time.Second)
	}
}

// Remaining returns the current remaining requests.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// Limit returns the rate limit.
func (r *RateLimiter) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.limit
}

// ResetTime returns the rate limit reset time.
func (r *RateLimiter) ResetTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetTime
}
