package services

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// DefaultRetryDelays are the waits between attempts of a destination call.
var DefaultRetryDelays = []time.Duration{time.Second, 5 * time.Second, 20 * time.Second}

// withRetry runs fn, retrying after each delay while the error wraps
// domain.ErrTransient. Other errors return immediately.
func withRetry[T any](ctx context.Context, delays []time.Duration, op string, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= len(delays); attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}
		if !errors.Is(lastErr, domain.ErrTransient) {
			return result, lastErr
		}
		if attempt == len(delays) {
			break
		}

		logger.Warn("%s failed (attempt %d), retrying in %s: %v", op, attempt+1, delays[attempt], lastErr)
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}
	return result, lastErr
}

// retryCall is withRetry for calls returning only an error.
func retryCall(ctx context.Context, delays []time.Duration, op string, fn func() error) error {
	_, err := withRetry(ctx, delays, op, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
