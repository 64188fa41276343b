package rest

import (
	"context"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

func TestClient_URL(t *testing.T) {
	c := New(Config{BaseURL: "https://api.example.com/v1/"})

	assert.Equal(t, "https://api.example.com/v1/items", c.URL("/items", nil))
	assert.Equal(t, "https://api.example.com/v1/items?q=a+b", c.URL("items", url.Values{"q": {"a b"}}))
	assert.Equal(t, "https://other.example.com/x?a=1&b=2", c.URL("https://other.example.com/x?a=1", url.Values{"b": {"2"}}))
	assert.Equal(t, "https://api.example.com/v1", c.URL("", nil))
}

func TestClient_GetDecodesJSONAndSendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/items", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("page"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Fixed"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "doc"})
	}))
	defer server.Close()

	c := New(Config{
		BaseURL: server.URL + "/v1",
		Auth:    Bearer("tok"),
		Headers: map[string]string{"X-Fixed": "yes"},
	})

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.Get(context.Background(), "items", url.Values{"page": {"7"}}, &out))
	assert.Equal(t, "doc", out.Name)
}

func TestClient_SendMarshalsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "me", user)
		assert.Equal(t, "secret", pass)

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "x", in["title"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := New(Config{BaseURL: server.URL, Auth: Basic("me", "secret")})
	var out map[string]any
	require.NoError(t, c.Send(context.Background(), http.MethodPatch, "/r", map[string]string{"title": "x"}, &out))
	assert.Nil(t, out)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		status       int
		unauthorized bool
		notFound     bool
		rateLimited  bool
		transient    bool
	}{
		{status: http.StatusUnauthorized, unauthorized: true},
		{status: http.StatusForbidden, unauthorized: true},
		{status: http.StatusNotFound, notFound: true},
		{status: http.StatusTooManyRequests, rateLimited: true, transient: true},
		{status: http.StatusBadGateway, transient: true},
		{status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			c := New(Config{BaseURL: server.URL})
			resp, err := c.Do(context.Background(), &Request{Path: "/"})
			require.Error(t, err)
			require.NotNil(t, resp)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Equal(t, tt.unauthorized, errors.Is(err, domain.ErrUnauthorized))
			assert.Equal(t, tt.notFound, errors.Is(err, domain.ErrNotFound))
			assert.Equal(t, tt.rateLimited, errors.Is(err, domain.ErrRateLimited))
			assert.Equal(t, tt.transient, errors.Is(err, domain.ErrTransient))
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestClient_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	c := New(Config{BaseURL: addr})
	_, err := c.Do(context.Background(), &Request{Path: "/"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Zero(t, StatusCode(err))
}

func TestClient_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := c.Do(ctx, &Request{Path: "/"})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrTransient)
}
