// Package oauth renews access tokens through a refresh endpoint and holds
// the credential handling shared by OAuth connectors.
//
// The refresh endpoint is called as GET {refresh_endpoint}?refresh_token=R
// and answers {"token": "..."} on success.
package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/rest"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Parameter keys.
const (
	KeyToken           = "token"
	KeyRefresh         = "refresh"
	KeyRefreshEndpoint = "refresh_endpoint"
)

// Valid reports whether params carry a complete OAuth credential set.
func Valid(params domain.Params) bool {
	if params.String(KeyToken) == "" || params.String(KeyRefresh) == "" {
		return false
	}
	u, err := url.Parse(params.String(KeyRefreshEndpoint))
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Refresher exchanges refresh tokens.
type Refresher struct {
	client *rest.Client
}

// NewRefresher creates a refresher. transport may be nil.
func NewRefresher(transport http.RoundTripper) *Refresher {
	return &Refresher{client: rest.New(rest.Config{
		Transport: transport,
		Headers:   map[string]string{"Origin": "http://localhost:4200/"},
	})}
}

type refreshResponse struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh,omitempty"`
}

// Refresh returns a copy of params carrying the new access token. On any
// failure both credentials are cleared in the returned copy and ok is
// false.
func (r *Refresher) Refresh(ctx context.Context, params domain.Params) (_ domain.Params, ok bool) {
	refresh := params.String(KeyRefresh)
	endpoint := params.String(KeyRefreshEndpoint)
	if refresh == "" || endpoint == "" {
		return cleared(params), false
	}

	var resp refreshResponse
	err := r.client.Get(ctx, endpoint, url.Values{"refresh_token": {refresh}}, &resp)
	if err != nil || resp.Token == "" {
		if err == nil {
			err = errors.New("no token in answer")
		}
		logger.Warn("Token refresh against %s failed: %v", redact(endpoint), err)
		return cleared(params), false
	}

	out := params.With(KeyToken, resp.Token)
	if resp.Refresh != "" {
		out[KeyRefresh] = resp.Refresh
	}
	return out, true
}

func cleared(params domain.Params) domain.Params {
	out := params.With(KeyToken, "")
	out[KeyRefresh] = ""
	return out
}

func redact(endpoint string) string {
	if i := strings.Index(endpoint, "?"); i >= 0 {
		return endpoint[:i]
	}
	return endpoint
}

// Base is embedded by OAuth connectors. It owns the current parameters and
// implements HasAuthData and RefreshAuthentication.
type Base struct {
	mu        sync.RWMutex
	params    domain.Params
	refresher *Refresher
}

// NewBase creates a Base over a copy of params. A nil refresher gets a
// default one.
func NewBase(params domain.Params, refresher *Refresher) *Base {
	if refresher == nil {
		refresher = NewRefresher(nil)
	}
	return &Base{params: params.Clone(), refresher: refresher}
}

// Params returns a copy of the current parameters.
func (b *Base) Params() domain.Params {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.params.Clone()
}

// AccessToken returns the current access token.
func (b *Base) AccessToken() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.params.String(KeyToken)
}

// HasAuthData reports whether an access token is present.
func (b *Base) HasAuthData() bool {
	return b.AccessToken() != ""
}

// RefreshAuthentication renews the access token and returns the parameters
// to persist.
func (b *Base) RefreshAuthentication(ctx context.Context) (domain.Params, bool) {
	params, ok := b.refresher.Refresh(ctx, b.Params())

	b.mu.Lock()
	b.params = params.Clone()
	b.mu.Unlock()
	return params, ok
}

// TokenSource exposes the current access token to oauth2 clients.
func (b *Base) TokenSource() oauth2.TokenSource {
	return tokenSource{b}
}

type tokenSource struct{ b *Base }

func (t tokenSource) Token() (*oauth2.Token, error) {
	token := t.b.AccessToken()
	if token == "" {
		return nil, domain.ErrAuthRequired
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
