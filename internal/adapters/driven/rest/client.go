package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Defaults applied by New.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10.0
	DefaultRateBurst = 5
	DefaultUserAgent = "sercha-sync/1.0"
)

// Config configures a Client.
type Config struct {
	// BaseURL is prefixed to relative request paths.
	BaseURL string

	// Auth decorates every request. May be nil.
	Auth AuthFunc

	// Timeout for individual requests (default: 30s).
	Timeout time.Duration

	// RateLimit requests per second (default: 10).
	RateLimit float64

	// RateBurst maximum burst size (default: 5).
	RateBurst int

	// Headers added to every request.
	Headers map[string]string

	// UserAgent string (default: "sercha-sync/1.0").
	UserAgent string

	// Transport allows injecting a custom HTTP transport.
	Transport http.RoundTripper
}

// Client is a rate-limited HTTP client with domain error mapping.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a client, filling unset fields of cfg with defaults.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
	}
}

// Request is one HTTP call. Path may be relative to the base URL or an
// absolute URL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// JSON unmarshals the response body into target.
func (r *Response) JSON(target any) error {
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// URL resolves path and query against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	full := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		full = strings.TrimSuffix(c.config.BaseURL, "/")
		if path != "" {
			full += "/" + strings.TrimPrefix(path, "/")
		}
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + query.Encode()
	}
	return full
}

// Do executes req. Non-2xx answers return the response together with an
// *HTTPError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.URL(req.Path, req.Query)

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if c.config.Auth != nil {
		c.config.Auth(httpReq)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}
	if resp.StatusCode >= 400 {
		return response, &HTTPError{
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}
	return response, nil
}

// Get performs a GET request and decodes the JSON answer into target.
// target may be nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values, target any) error {
	resp, err := c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	if target == nil {
		return nil
	}
	return resp.JSON(target)
}

// Send performs a request with a JSON body and decodes the JSON answer into
// target. body and target may be nil.
func (c *Client) Send(ctx context.Context, method, path string, body, target any) error {
	req := &Request{Method: method, Path: path}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		req.Body = data
		req.Headers = map[string]string{"Content-Type": "application/json"}
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if target == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.JSON(target)
}
