// Package graph is a small Microsoft Graph client shared by the OneDrive
// and SharePoint connectors: bearer auth from the live OAuth parameters,
// @odata.nextLink paging and Graph error decoding.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/rest"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// DefaultBaseURL is the Graph v1.0 root.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// PageSize is requested with $top on collection calls.
const PageSize = 100

// codeInvalidToken is the Graph error code for rejected access tokens.
const codeInvalidToken = "InvalidAuthenticationToken"

// Client calls Graph with the token returned by token at request time.
type Client struct {
	rest *rest.Client
}

// NewClient creates a client. transport may be nil.
func NewClient(baseURL string, token func() string, transport http.RoundTripper) *Client {
	return &Client{rest: rest.New(rest.Config{
		BaseURL: baseURL,
		Auth: func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token())
		},
		Transport: transport,
	})}
}

// page is one collection answer.
type page[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// Collect reads every page of the collection at path. Values read before a
// failure are returned with the error.
func Collect[T any](ctx context.Context, c *Client, path string, query url.Values, headers map[string]string) ([]T, error) {
	var values []T
	req := &rest.Request{Path: path, Query: query, Headers: headers}
	for {
		var p page[T]
		if err := c.getJSON(ctx, req, &p); err != nil {
			return values, err
		}
		values = append(values, p.Value...)
		if p.NextLink == "" {
			return values, nil
		}
		// nextLink is absolute and already carries the query
		req = &rest.Request{Path: p.NextLink, Headers: headers}
	}
}

// Get decodes the JSON resource at path into target.
func (c *Client) Get(ctx context.Context, path string, query url.Values, target any) error {
	return c.getJSON(ctx, &rest.Request{Path: path, Query: query}, target)
}

// Download reads the raw body at target, a relative path or absolute URL.
func (c *Client) Download(ctx context.Context, target string) ([]byte, error) {
	resp, err := c.rest.Do(ctx, &rest.Request{Path: target})
	if err != nil {
		return nil, decode(resp, err)
	}
	return resp.Body, nil
}

// Probe reports false only when Graph rejects the access token.
func (c *Client) Probe(ctx context.Context, path string) bool {
	err := c.Get(ctx, path, url.Values{"$select": {"id"}}, nil)
	return !errors.Is(err, domain.ErrUnauthorized)
}

func (c *Client) getJSON(ctx context.Context, req *rest.Request, target any) error {
	resp, err := c.rest.Do(ctx, req)
	if err != nil {
		return decode(resp, err)
	}
	if target == nil {
		return nil
	}
	return resp.JSON(target)
}

// Error is a Graph error answer.
type Error struct {
	Status  int
	Code    string
	Message string
	err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("graph: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// Is treats a rejected token as unauthorized whatever the status.
func (e *Error) Is(target error) bool {
	return target == domain.ErrUnauthorized && e.Code == codeInvalidToken
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decode turns an HTTP failure with a Graph error body into *Error. The
// underlying rest error stays reachable for status mapping.
func decode(resp *rest.Response, err error) error {
	if resp == nil {
		return err
	}
	var body errorBody
	if json.Unmarshal(resp.Body, &body) != nil || body.Error.Code == "" {
		return err
	}
	return &Error{Status: resp.StatusCode, Code: body.Error.Code, Message: body.Error.Message, err: err}
}
