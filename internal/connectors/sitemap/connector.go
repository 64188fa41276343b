// Package sitemap turns the URLs of an XML sitemap into links resolved by
// the destination.
package sitemap

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/rest"
	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Name is the connector identifier stored in configurations.
const Name = "sitemap"

// Parameter keys.
const (
	KeySitemap     = "sitemap"
	KeyCSSSelector = "cssSelector"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Definition describes the connector in the catalogue.
var Definition = domain.ConnectorDefinition{
	Name:        Name,
	Title:       "Sitemap",
	Description: "Index every page listed in a sitemap",
	AuthMethod:  domain.AuthMethodNone,
	External:    true,
	RootParam:   KeySitemap,
	ConfigKeys: []domain.ConfigKey{
		{Key: KeySitemap, Label: "Sitemap URL", Required: true},
		{Key: KeyCSSSelector, Label: "CSS selector", Description: "Part of each page to index"},
	},
}

var scheme = regexp.MustCompile(`^https?://`)

// Connector reads one sitemap and the sitemaps it indexes. Item ids are
// the page URLs.
type Connector struct {
	params domain.Params
	reader *Reader
}

// New creates a sitemap connector.
func New(params domain.Params, opts ...base.Option) (*Connector, error) {
	o := base.Apply("", opts...)
	return &Connector{
		params: params.Clone(),
		reader: NewReader(rest.New(rest.Config{Transport: o.Transport})),
	}, nil
}

// ValidateParameters requires the sitemap URL.
func (c *Connector) ValidateParameters(params domain.Params) bool {
	u, err := url.Parse(strings.TrimSpace(params.String(KeySitemap)))
	return err == nil && u.Host != ""
}

// HasAuthData is always true.
func (c *Connector) HasAuthData() bool { return true }

// IsAccessTokenValid is always true.
func (c *Connector) IsAccessTokenValid(context.Context) bool { return true }

// RefreshAuthentication is a no-op.
func (c *Connector) RefreshAuthentication(context.Context) (domain.Params, bool) {
	return c.params.Clone(), true
}

// GetFolders is not supported.
func (c *Connector) GetFolders(context.Context, string) (domain.SearchResults, error) {
	return domain.SearchResults{}, fmt.Errorf("sitemap connector: list folders: %w", domain.ErrNotImplemented)
}

// GetFilesFromFolders returns every URL of the sitemap; folders are ignored.
func (c *Connector) GetFilesFromFolders(ctx context.Context, _ []domain.SyncItem) (domain.SearchResults, error) {
	items, err := c.items(ctx)
	return domain.SearchResults{Items: items}, err
}

// GetLastModified returns URLs without a lastmod or modified after since.
// URLs of existing no longer listed are reported deleted when every
// sitemap could be read.
func (c *Connector) GetLastModified(ctx context.Context, since string, _ []domain.SyncItem, existing []string) (domain.SearchResults, error) {
	items, err := c.items(ctx)
	cutoff := base.ParseSince(since)

	var changed []domain.SyncItem
	for _, item := range items {
		if base.ModifiedAfter(item.ModifiedGMT, cutoff) {
			changed = append(changed, item)
		}
	}
	if err != nil {
		return domain.SearchResults{Items: changed}, err
	}
	changed = append(changed, domain.DiffDeleted(existing, base.Observed(items))...)
	return domain.SearchResults{Items: changed}, nil
}

// Fetch returns the page link with the configured selector.
func (c *Connector) Fetch(_ context.Context, item domain.SyncItem) (domain.Content, error) {
	uri := item.Meta(domain.MetaURI)
	if uri == "" {
		uri = item.OriginalID
	}
	return &domain.Link{
		URI:          uri,
		CSSSelector:  c.params.String(KeyCSSSelector),
		ExtraHeaders: map[string]string{},
	}, nil
}

func (c *Connector) items(ctx context.Context) ([]domain.SyncItem, error) {
	urls, err := c.reader.Read(ctx, c.params.String(KeySitemap))

	items := make([]domain.SyncItem, 0, len(urls))
	for _, u := range urls {
		item := domain.SyncItem{
			OriginalID: u.Loc,
			UUID:       u.Loc,
			Title:      u.Loc,
			MimeType:   domain.MimeTypeToBeChecked,
			Metadata: map[string]string{
				domain.MetaURI:          u.Loc,
				domain.MetaPath:         scheme.ReplaceAllString(u.Loc, ""),
				domain.MetaLastModified: u.LastMod,
			},
			Status: domain.StatusPending,
		}
		if t, ok := domain.ParseTimestamp(u.LastMod); ok {
			item.ModifiedGMT = domain.NowGMT(t)
		}
		items = append(items, item)
	}
	return base.Dedupe(items), err
}
