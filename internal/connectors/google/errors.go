package google

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	if errors.Is(err, domain.ErrUnauthorized) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized
	}
	return false
}

// IsRateLimited returns true if the error indicates rate limiting.
// Drive reports exhausted per-user quotas as 403 with a rate limit reason.
func IsRateLimited(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusTooManyRequests {
		return true
	}
	if gerr.Code == http.StatusForbidden {
		for _, item := range gerr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}

// WrapError maps a Google API error onto the domain errors, keeping the
// original message.
func WrapError(err error) error {
	if err == nil {
		return nil
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("google: %w: %w", domain.ErrTransient, err)
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return fmt.Errorf("google: %w: %s", domain.ErrUnauthorized, gerr.Message)
	case IsRateLimited(err):
		return fmt.Errorf("google: %w: %w: %s", domain.ErrRateLimited, domain.ErrTransient, gerr.Message)
	case gerr.Code == http.StatusForbidden:
		return fmt.Errorf("google: %w (forbidden): %s", domain.ErrUnauthorized, gerr.Message)
	case gerr.Code == http.StatusNotFound:
		return fmt.Errorf("google: %w: %s", domain.ErrNotFound, gerr.Message)
	case gerr.Code >= http.StatusInternalServerError:
		return fmt.Errorf("google: %w: %s", domain.ErrTransient, gerr.Message)
	default:
		return fmt.Errorf("google: %w", err)
	}
}
