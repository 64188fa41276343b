package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates the connector does not support the operation.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown connector name.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync cycle is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// Authentication Errors.

	// ErrUnauthorized indicates the source rejected the access credentials.
	// The orchestrator reacts to it by refreshing the token on the next cycle.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAuthRequired indicates the connector requires authentication but none is configured.
	ErrAuthRequired = errors.New("authentication required")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")

	// Connector Errors.

	// ErrConnectorValidation indicates connector parameters are incomplete or malformed.
	ErrConnectorValidation = errors.New("connector validation failed")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Delivery Errors.

	// ErrTransient marks a failure that may succeed when retried
	// (network error, 429, 5xx).
	ErrTransient = errors.New("transient failure")
)
