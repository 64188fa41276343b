package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// WebClient fetches linked content for the upload pipeline.
type WebClient interface {
	// ContentType probes uri with a HEAD request and returns the media type
	// without parameters.
	ContentType(ctx context.Context, uri string, headers map[string]string) (string, error)

	// Fetch downloads uri.
	Fetch(ctx context.Context, uri string, headers map[string]string) (*domain.Blob, error)
}

// ExtractRequest asks the extraction service to render a page.
type ExtractRequest struct {
	URL           string            `json:"url"`
	CSSSelector   string            `json:"cssSelector,omitempty"`
	XPathSelector string            `json:"xpathSelector,omitempty"`
	Headers       map[string]string `json:"headers,omitempty"`
	Cookies       map[string]string `json:"cookies,omitempty"`
	LocalStorage  map[string]string `json:"localstorage,omitempty"`
}

// ExtractResult is the rendered page.
type ExtractResult struct {
	HTML  string `json:"html"`
	Title string `json:"title"`
	Error string `json:"error,omitempty"`
}

// Extractor renders pages locally before delivery.
type Extractor interface {
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error)
}
