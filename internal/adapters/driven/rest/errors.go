package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// HTTPError is a non-2xx answer.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, body)
}

// Is maps the status code onto the domain sentinels.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case domain.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case domain.ErrTransient:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	default:
		return false
	}
}

// NetworkError is a failure to get any answer.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports network failures as transient.
func (e *NetworkError) Is(target error) bool {
	return target == domain.ErrTransient
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
