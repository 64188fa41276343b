package dropbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// statusRecorder remembers the status of the last response it carried.
// The SDK errors do not expose it uniformly across routes. Requests are
// bound to ctx since the SDK takes none.
type statusRecorder struct {
	base http.RoundTripper
	ctx  context.Context

	mu   sync.Mutex
	code int
}

func (r *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	if r.ctx != nil {
		req = req.WithContext(r.ctx)
	}
	resp, err := r.base.RoundTrip(req)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.code = 0
		return nil, err
	}
	r.code = resp.StatusCode
	return resp, nil
}

func (r *statusRecorder) status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.code
}

// config builds an SDK configuration carrying the current access token.
// Every call gets its own recorder, bound to ctx.
func (c *Connector) config(ctx context.Context) (dropbox.Config, *statusRecorder) {
	transport := c.opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	rec := &statusRecorder{base: &oauth2.Transport{Source: c.TokenSource(), Base: transport}, ctx: ctx}

	cfg := dropbox.Config{
		Token:    c.AccessToken(),
		LogLevel: dropbox.LogOff,
		Client:   &http.Client{Transport: rec},
	}
	if c.opts.BaseURL != "" {
		root := c.opts.BaseURL
		cfg.URLGenerator = func(_, namespace, route string) string {
			return fmt.Sprintf("%s/2/%s/%s", root, namespace, route)
		}
	}
	return cfg, rec
}

// wrap maps a failed call onto the domain errors using the recorded status.
func wrap(rec *statusRecorder, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		return err
	}
	switch code := rec.status(); {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("dropbox: %w: %w", domain.ErrUnauthorized, err)
	case code == http.StatusConflict:
		return fmt.Errorf("dropbox: %w: %w", domain.ErrNotFound, err)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("dropbox: %w: %w: %w", domain.ErrRateLimited, domain.ErrTransient, err)
	case code == 0 || code >= http.StatusInternalServerError:
		return fmt.Errorf("dropbox: %w: %w", domain.ErrTransient, err)
	default:
		return fmt.Errorf("dropbox: %w", err)
	}
}
