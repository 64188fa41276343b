// Package nuclia delivers resources to a Nuclia knowledge box through its
// REST API.
package nuclia

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/rest"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure Destination implements the interface.
var _ driven.Destination = (*Destination)(nil)

// Request headers understood by the API.
const (
	headerServiceAccount  = "X-NUCLIA-SERVICEACCOUNT"
	headerFilename        = "X-FILENAME"
	headerMD5             = "X-MD5"
	headerExtractStrategy = "X-EXTRACT-STRATEGY"
)

// Config holds client settings shared by every knowledge box handle.
type Config struct {
	// RateLimit requests per second per knowledge box (default: 5).
	RateLimit float64

	// Transport allows injecting a custom HTTP transport.
	Transport http.RoundTripper
}

// Destination opens knowledge box handles, caching one client per
// (api, knowledge box, key) triple so limits are shared across cycles.
type Destination struct {
	config Config

	mu      sync.Mutex
	clients map[string]*knowledgeBox
}

// New creates a Nuclia destination.
func New(cfg Config) *Destination {
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 5
	}
	return &Destination{
		config:  cfg,
		clients: make(map[string]*knowledgeBox),
	}
}

// KnowledgeBox returns the handle for kb.
func (d *Destination) KnowledgeBox(kb domain.KnowledgeBox) driven.KnowledgeBox {
	base := APIBase(kb)
	key := base + "|" + kb.KnowledgeBox + "|" + kb.APIKey

	d.mu.Lock()
	defer d.mu.Unlock()

	if h, ok := d.clients[key]; ok {
		return h
	}

	cfg := rest.Config{
		BaseURL:   base + "/v1/kb/" + url.PathEscape(kb.KnowledgeBox),
		RateLimit: d.config.RateLimit,
		Transport: d.config.Transport,
	}
	if kb.APIKey != "" {
		cfg.Auth = rest.Header(headerServiceAccount, "Bearer "+kb.APIKey)
	}
	h := &knowledgeBox{id: kb.KnowledgeBox, client: rest.New(cfg)}
	d.clients[key] = h
	return h
}

// APIBase returns the regional API root for kb. A zone is inserted in front
// of the backend host unless the host already starts with it, so
// https://nuclia.cloud/api with zone europe-1 becomes
// https://europe-1.nuclia.cloud/api.
func APIBase(kb domain.KnowledgeBox) string {
	base := strings.TrimSuffix(kb.Backend, "/")
	if kb.Zone == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	if strings.HasPrefix(u.Host, kb.Zone+".") {
		return base
	}
	u.Host = kb.Zone + "." + u.Host
	return u.String()
}

// knowledgeBox implements driven.KnowledgeBox.
type knowledgeBox struct {
	id     string
	client *rest.Client
}

func (k *knowledgeBox) ID() string { return k.id }

func slugPath(slug string) string {
	return "/slug/" + url.PathEscape(slug)
}

func (k *knowledgeBox) GetResourceBySlug(ctx context.Context, slug string) (*driven.Resource, error) {
	query := url.Values{"show": {"basic", "origin", "security"}}
	var res driven.Resource
	if err := k.client.Get(ctx, slugPath(slug), query, &res); err != nil {
		return nil, wrap("get resource", err)
	}
	return &res, nil
}

func (k *knowledgeBox) HasResource(ctx context.Context, slug string) (bool, error) {
	_, err := k.client.Do(ctx, &rest.Request{Method: http.MethodGet, Path: slugPath(slug)})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrNotFound):
		return false, nil
	default:
		return false, wrap("has resource", err)
	}
}

func (k *knowledgeBox) CreateResource(ctx context.Context, res driven.Resource) error {
	return wrap("create resource", k.client.Send(ctx, http.MethodPost, "/resources", res, nil))
}

func (k *knowledgeBox) ModifyResource(ctx context.Context, slug string, res driven.Resource) error {
	res.Slug = ""
	return wrap("modify resource", k.client.Send(ctx, http.MethodPatch, slugPath(slug), res, nil))
}

func (k *knowledgeBox) Upload(ctx context.Context, slug, field string, data []byte, opts driven.UploadOptions) error {
	headers := map[string]string{
		"Content-Type": opts.ContentType,
	}
	if opts.ContentType == "" {
		headers["Content-Type"] = "application/octet-stream"
	}
	if opts.Filename != "" {
		headers[headerFilename] = base64.StdEncoding.EncodeToString([]byte(opts.Filename))
	}
	if opts.MD5 != "" {
		headers[headerMD5] = opts.MD5
	}
	if opts.ExtractStrategy != "" {
		headers[headerExtractStrategy] = opts.ExtractStrategy
	}

	_, err := k.client.Do(ctx, &rest.Request{
		Method:  http.MethodPost,
		Path:    slugPath(slug) + "/file/" + url.PathEscape(field) + "/upload",
		Headers: headers,
		Body:    data,
	})
	return wrap("upload", err)
}

func (k *knowledgeBox) SetTextField(ctx context.Context, slug, field string, text domain.Text) error {
	if text.Format == "" {
		text.Format = domain.TextPlain
	}
	path := slugPath(slug) + "/text/" + url.PathEscape(field)
	return wrap("set text field", k.client.Send(ctx, http.MethodPut, path, text, nil))
}

func (k *knowledgeBox) DeleteResource(ctx context.Context, slug string) error {
	_, err := k.client.Do(ctx, &rest.Request{Method: http.MethodDelete, Path: slugPath(slug)})
	return wrap("delete resource", err)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("nuclia %s: %w", op, err)
}
