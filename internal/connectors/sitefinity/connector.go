// Package sitefinity synchronises pages, media and content items of a
// Sitefinity CMS site through its REST services.
package sitefinity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/rest"
	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Name is the connector identifier stored in configurations.
const Name = "sitefinity"

// Parameter keys.
const (
	KeyURL               = "url"
	KeyAPIKey            = "apikey"
	KeySiteID            = "siteId"
	KeyExtraContentTypes = "extraContentTypes"
)

// Item kinds stored in the type metadata.
const (
	TypePage    = "PAGE"
	TypeFile    = "FILE"
	TypeContent = "CONTENT"
)

const (
	accessKeyHeader = "X-SF-Access-Key"
	metaData        = "data"
)

var mediaTypes = []string{"documents", "images", "videos"}

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Definition describes the connector in the catalogue.
var Definition = domain.ConnectorDefinition{
	Name:        Name,
	Title:       "Sitefinity",
	Description: "Synchronise pages, media and content items of a Sitefinity site",
	AuthMethod:  domain.AuthMethodToken,
	RootParam:   KeyURL,
	ConfigKeys: []domain.ConfigKey{
		{Key: KeyURL, Label: "Site URL", Required: true},
		{Key: KeyAPIKey, Label: "Access key", Required: true, Secret: true},
		{Key: KeySiteID, Label: "Site id"},
		{Key: KeyExtraContentTypes, Label: "Extra content types", Description: "Comma separated content type endpoints"},
	},
}

// Connector reads the default REST service of a site. Item ids are
// Sitefinity item ids.
type Connector struct {
	params  domain.Params
	siteURL string
	client  *rest.Client
}

// New creates a Sitefinity connector.
func New(params domain.Params, opts ...base.Option) (*Connector, error) {
	siteURL := strings.TrimSuffix(params.String(KeyURL), "/")
	o := base.Apply(siteURL, opts...)
	return &Connector{
		params:  params.Clone(),
		siteURL: siteURL,
		client: rest.New(rest.Config{
			BaseURL:   o.BaseURL,
			Auth:      rest.Header(accessKeyHeader, params.String(KeyAPIKey)),
			Transport: o.Transport,
		}),
	}, nil
}

// ValidateParameters requires the site URL and access key.
func (c *Connector) ValidateParameters(params domain.Params) bool {
	if params.String(KeyAPIKey) == "" {
		return false
	}
	u, err := url.Parse(params.String(KeyURL))
	return err == nil && u.Host != ""
}

// HasAuthData reports whether an access key is configured.
func (c *Connector) HasAuthData() bool { return c.params.String(KeyAPIKey) != "" }

// IsAccessTokenValid is always true; access keys do not expire.
func (c *Connector) IsAccessTokenValid(context.Context) bool { return true }

// RefreshAuthentication is a no-op.
func (c *Connector) RefreshAuthentication(context.Context) (domain.Params, bool) {
	return c.params.Clone(), true
}

// GetFolders is not supported.
func (c *Connector) GetFolders(context.Context, string) (domain.SearchResults, error) {
	return domain.SearchResults{}, fmt.Errorf("sitefinity connector: list folders: %w", domain.ErrNotImplemented)
}

// GetFilesFromFolders lists every page, media item and extra content item.
func (c *Connector) GetFilesFromFolders(ctx context.Context, _ []domain.SyncItem) (domain.SearchResults, error) {
	items, err := c.list(ctx, "")
	return domain.SearchResults{Items: items}, err
}

// GetLastModified lists items modified after since. The services only
// return live items, so deletions are not reported.
func (c *Connector) GetLastModified(ctx context.Context, since string, _ []domain.SyncItem, _ []string) (domain.SearchResults, error) {
	items, err := c.list(ctx, since)
	return domain.SearchResults{Items: items}, err
}

// Fetch renders pages to HTML, returns content items as JSON and downloads
// media files.
func (c *Connector) Fetch(ctx context.Context, item domain.SyncItem) (domain.Content, error) {
	switch item.Meta(domain.MetaType) {
	case TypePage:
		return c.fetchPage(ctx, item)
	case TypeContent:
		return &domain.Text{Body: item.Meta(metaData), Format: domain.TextJSON}, nil
	default:
		resp, err := c.client.Do(ctx, &rest.Request{Path: item.Meta(domain.MetaURI)})
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", item.OriginalID, err)
		}
		return &domain.Blob{Data: resp.Body}, nil
	}
}

func (c *Connector) fetchPage(ctx context.Context, item domain.SyncItem) (domain.Content, error) {
	query := url.Values{"@param": {"'" + item.Meta(domain.MetaPath) + "'"}}
	if site := c.params.String(KeySiteID); site != "" {
		query.Set("sf_site", site)
	}
	resp, err := c.client.Do(ctx, &rest.Request{
		Path:  "api/default/pages/Default.Model(url=@param)",
		Query: query,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", item.OriginalID, err)
	}

	var parts []string
	gjson.GetBytes(resp.Body, "ComponentContext.Components").ForEach(func(_, comp gjson.Result) bool {
		parts = componentContent(comp, parts)
		return true
	})
	return &domain.Text{Body: strings.Join(parts, "\n\n"), Format: domain.TextHTML}, nil
}

// componentContent appends the Content property of comp and of all its
// children, depth first.
func componentContent(comp gjson.Result, parts []string) []string {
	if content := comp.Get("Properties.Content").String(); content != "" {
		parts = append(parts, content)
	}
	for _, child := range comp.Get("Children").Array() {
		parts = componentContent(child, parts)
	}
	return parts
}

// list reads every content type concurrently. since filters on
// LastModified when set.
func (c *Connector) list(ctx context.Context, since string) ([]domain.SyncItem, error) {
	type source struct {
		endpoint string
		convert  func(gjson.Result) domain.SyncItem
	}
	sources := []source{{endpoint: "pages", convert: c.pageItem}}
	for _, t := range mediaTypes {
		sources = append(sources, source{endpoint: t, convert: c.fileItem})
	}
	for _, t := range strings.Split(c.params.String(KeyExtraContentTypes), ",") {
		if t = strings.TrimSpace(t); t != "" {
			sources = append(sources, source{endpoint: t, convert: contentItem})
		}
	}

	results := make([][]domain.SyncItem, len(sources))
	errs := make([]error, len(sources))
	var g errgroup.Group
	for i, s := range sources {
		g.Go(func() error {
			values, err := c.contents(ctx, s.endpoint, since)
			if err != nil {
				errs[i] = fmt.Errorf("list %s: %w", s.endpoint, err)
				return nil
			}
			for _, v := range values {
				results[i] = append(results[i], s.convert(v))
			}
			return nil
		})
	}
	_ = g.Wait()

	var items []domain.SyncItem
	for _, batch := range results {
		items = append(items, batch...)
	}
	return base.Dedupe(items), errors.Join(errs...)
}

func (c *Connector) contents(ctx context.Context, endpoint, since string) ([]gjson.Result, error) {
	query := url.Values{}
	if site := c.params.String(KeySiteID); site != "" {
		query.Set("sf_site", site)
	}
	if since != "" {
		query.Set("$filter", "LastModified gt "+since)
	}
	resp, err := c.client.Do(ctx, &rest.Request{Path: "api/default/" + endpoint, Query: query})
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(resp.Body) {
		return nil, fmt.Errorf("decode %s: invalid json", endpoint)
	}
	return gjson.GetBytes(resp.Body, "value").Array(), nil
}

func (c *Connector) pageItem(v gjson.Result) domain.SyncItem {
	path := v.Get("RelativeUrlPath").String()
	item := newItem(v, domain.MimeHTML, TypePage)
	item.Metadata[domain.MetaURI] = c.siteURL + path
	item.Metadata[domain.MetaPath] = path
	return item
}

func (c *Connector) fileItem(v gjson.Result) domain.SyncItem {
	mimeType := v.Get("MimeType").String()
	if mimeType == "" {
		mimeType = domain.MimeOctetStream
	}
	path := v.Get("Url").String()
	item := newItem(v, mimeType, TypeFile)
	item.Metadata[domain.MetaURI] = c.absolute(path)
	item.Metadata[domain.MetaPath] = path
	return item
}

func contentItem(v gjson.Result) domain.SyncItem {
	item := newItem(v, "application/json", TypeContent)
	item.Metadata[metaData] = v.Raw
	return item
}

func newItem(v gjson.Result, mimeType, kind string) domain.SyncItem {
	id := v.Get("Id").String()
	lastModified := v.Get("LastModified").String()
	item := domain.SyncItem{
		OriginalID: id,
		UUID:       id,
		Title:      v.Get("Title").String(),
		MimeType:   mimeType,
		Metadata: map[string]string{
			domain.MetaType:         kind,
			domain.MetaLastModified: lastModified,
		},
		Status: domain.StatusPending,
	}
	if t, ok := domain.ParseTimestamp(lastModified); ok {
		item.ModifiedGMT = domain.NowGMT(t)
	}
	return item
}

func (c *Connector) absolute(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.siteURL + path
}
