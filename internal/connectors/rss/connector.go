// Package rss turns the items of an RSS or Atom feed into links resolved by
// the destination.
package rss

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/rest"
	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Name is the connector identifier stored in configurations.
const Name = "rss"

// Parameter keys.
const (
	KeyURL           = "url"
	KeyCSSSelector   = "cssSelector"
	KeyXPathSelector = "xpathSelector"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Definition describes the connector in the catalogue.
var Definition = domain.ConnectorDefinition{
	Name:        Name,
	Title:       "RSS feed",
	Description: "Index the pages linked from an RSS or Atom feed",
	AuthMethod:  domain.AuthMethodNone,
	External:    true,
	RootParam:   KeyURL,
	ConfigKeys: []domain.ConfigKey{
		{Key: KeyURL, Label: "Feed URL", Required: true},
		{Key: KeyCSSSelector, Label: "CSS selector", Description: "Part of each page to index"},
		{Key: KeyXPathSelector, Label: "XPath selector", Description: "Part of each page to index"},
	},
}

// Connector reads one feed. Item ids are the linked URLs.
type Connector struct {
	params domain.Params
	client *rest.Client
}

// New creates a feed connector.
func New(params domain.Params, opts ...base.Option) (*Connector, error) {
	o := base.Apply("", opts...)
	return &Connector{
		params: params.Clone(),
		client: rest.New(rest.Config{Transport: o.Transport}),
	}, nil
}

// ValidateParameters requires the feed URL.
func (c *Connector) ValidateParameters(params domain.Params) bool {
	u, err := url.Parse(strings.TrimSpace(params.String(KeyURL)))
	return err == nil && u.Host != ""
}

// HasAuthData is always true, feeds are public.
func (c *Connector) HasAuthData() bool { return true }

// IsAccessTokenValid is always true.
func (c *Connector) IsAccessTokenValid(context.Context) bool { return true }

// RefreshAuthentication is a no-op.
func (c *Connector) RefreshAuthentication(context.Context) (domain.Params, bool) {
	return c.params.Clone(), true
}

// GetFolders is not supported, a feed is flat.
func (c *Connector) GetFolders(context.Context, string) (domain.SearchResults, error) {
	return domain.SearchResults{}, fmt.Errorf("rss connector: list folders: %w", domain.ErrNotImplemented)
}

// GetFilesFromFolders returns every dated item of the feed; folders are
// ignored.
func (c *Connector) GetFilesFromFolders(ctx context.Context, _ []domain.SyncItem) (domain.SearchResults, error) {
	items, err := c.items(ctx)
	return domain.SearchResults{Items: items}, err
}

// GetLastModified returns items published after since. Feeds only carry
// recent entries, so absence is not a deletion.
func (c *Connector) GetLastModified(ctx context.Context, since string, _ []domain.SyncItem, _ []string) (domain.SearchResults, error) {
	items, err := c.items(ctx)
	if err != nil {
		return domain.SearchResults{}, err
	}
	cutoff := base.ParseSince(since)

	var changed []domain.SyncItem
	for _, item := range items {
		if base.ModifiedAfter(item.ModifiedGMT, cutoff) {
			changed = append(changed, item)
		}
	}
	return domain.SearchResults{Items: changed}, nil
}

// Fetch returns the link with the configured selectors.
func (c *Connector) Fetch(_ context.Context, item domain.SyncItem) (domain.Content, error) {
	uri := item.Meta(domain.MetaURI)
	if uri == "" {
		uri = item.OriginalID
	}
	return &domain.Link{
		URI:           uri,
		CSSSelector:   c.params.String(KeyCSSSelector),
		XPathSelector: c.params.String(KeyXPathSelector),
		ExtraHeaders:  map[string]string{},
	}, nil
}

func (c *Connector) items(ctx context.Context) ([]domain.SyncItem, error) {
	feedURL := c.params.String(KeyURL)
	resp, err := c.client.Do(ctx, &rest.Request{Path: feedURL})
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}
	entries, err := Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	items := make([]domain.SyncItem, 0, len(entries))
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.Link
		}
		items = append(items, domain.SyncItem{
			OriginalID:  e.Link,
			UUID:        e.Link,
			Title:       title,
			MimeType:    domain.MimeTypeToBeChecked,
			ModifiedGMT: domain.NowGMT(e.Published),
			Metadata:    map[string]string{domain.MetaURI: e.Link},
			Status:      domain.StatusPending,
		})
	}
	return base.Dedupe(items), nil
}
