// Package rest is the HTTP client shared by the destination adapter, the
// web and extractor clients and the REST based connectors.
//
// Requests are rate-limited per client and failures are mapped onto the
// domain sentinels: 401 and 403 wrap domain.ErrUnauthorized, 404 wraps
// domain.ErrNotFound, 429 wraps domain.ErrRateLimited and
// domain.ErrTransient, 5xx and network failures wrap domain.ErrTransient.
package rest
