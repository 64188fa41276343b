package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/rest"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor posts pages to the extraction service.
type Extractor struct {
	endpoint string
	http     *rest.Client
}

// NewExtractor creates an extractor client for endpoint
// (e.g. http://localhost:8091/extract). transport may be nil.
func NewExtractor(endpoint string, transport http.RoundTripper) *Extractor {
	if endpoint == "" {
		endpoint = domain.DefaultExtractorEndpoint
	}
	return &Extractor{
		endpoint: endpoint,
		http: rest.New(rest.Config{
			// Rendering a page runs a headless browser
			Timeout:   3 * time.Minute,
			RateLimit: 2,
			RateBurst: 1,
			Transport: transport,
		}),
	}
}

// Extract renders req.URL. Failures reported by the service come back in
// ExtractResult.Error.
func (e *Extractor) Extract(ctx context.Context, req driven.ExtractRequest) (*driven.ExtractResult, error) {
	var result driven.ExtractResult
	if err := e.http.Send(ctx, http.MethodPost, e.endpoint, req, &result); err != nil {
		if rest.StatusCode(err) != 0 {
			return nil, fmt.Errorf("extraction service: %w", err)
		}
		return nil, fmt.Errorf("extraction service unreachable: %w", err)
	}
	return &result, nil
}
