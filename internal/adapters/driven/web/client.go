package web

import (
	"context"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/rest"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.WebClient = (*Client)(nil)

// Client probes and downloads arbitrary URIs.
type Client struct {
	http *rest.Client
}

// NewClient creates a web client. transport may be nil.
func NewClient(transport http.RoundTripper) *Client {
	return &Client{http: rest.New(rest.Config{
		Timeout:   2 * time.Minute,
		RateLimit: 20,
		RateBurst: 10,
		Transport: transport,
	})}
}

// ContentType issues a HEAD request and returns the media type without
// parameters.
func (c *Client) ContentType(ctx context.Context, uri string, headers map[string]string) (string, error) {
	resp, err := c.http.Do(ctx, &rest.Request{Method: http.MethodHead, Path: uri, Headers: headers})
	if err != nil {
		return "", err
	}
	return mediaType(resp.Headers.Get("Content-Type")), nil
}

// Fetch downloads uri.
func (c *Client) Fetch(ctx context.Context, uri string, headers map[string]string) (*domain.Blob, error) {
	resp, err := c.http.Do(ctx, &rest.Request{Method: http.MethodGet, Path: uri, Headers: headers})
	if err != nil {
		return nil, err
	}
	return &domain.Blob{
		Data:     resp.Body,
		MimeType: mediaType(resp.Headers.Get("Content-Type")),
	}, nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.TrimSpace(strings.SplitN(header, ";", 2)[0])
	}
	return mt
}
