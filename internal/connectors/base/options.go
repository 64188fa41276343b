// Package base holds the construction options and listing helpers shared
// by the connector variants.
package base

import (
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// Options are the knobs every connector constructor accepts.
type Options struct {
	// BaseURL overrides the service API root.
	BaseURL string
	// Transport overrides the HTTP transport.
	Transport http.RoundTripper
	// Now overrides time.Now.
	Now func() time.Time
}

// Option configures Options.
type Option func(*Options)

// WithBaseURL points the connector at another API root.
func WithBaseURL(u string) Option {
	return func(o *Options) { o.BaseURL = strings.TrimSuffix(u, "/") }
}

// WithTransport sets the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Options) { o.Transport = rt }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// Apply builds Options from opts, defaulting BaseURL to defaultBaseURL.
func Apply(defaultBaseURL string, opts ...Option) Options {
	o := Options{BaseURL: defaultBaseURL, Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ParseSince parses a watermark. Unparseable values yield the zero time so
// everything counts as modified.
func ParseSince(since string) time.Time {
	t, ok := domain.ParseTimestamp(since)
	if !ok {
		return time.Time{}
	}
	return t
}

// ModifiedAfter reports whether the source timestamp ts is strictly after
// since. Missing or unparseable timestamps count as modified.
func ModifiedAfter(ts string, since time.Time) bool {
	t, ok := domain.ParseTimestamp(ts)
	if !ok {
		return true
	}
	return t.After(since)
}

// Observed collects the ids of items seen during a listing.
func Observed(items []domain.SyncItem) map[string]struct{} {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		seen[it.OriginalID] = struct{}{}
	}
	return seen
}

// Dedupe drops repeated ids, first occurrence wins.
func Dedupe(items []domain.SyncItem) []domain.SyncItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0:0]
	for _, it := range items {
		if _, ok := seen[it.OriginalID]; ok {
			continue
		}
		seen[it.OriginalID] = struct{}{}
		out = append(out, it)
	}
	return out
}
