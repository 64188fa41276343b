// Package sharepoint synchronises the documents of SharePoint lists
// through Microsoft Graph.
package sharepoint

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/connectors/graph"
	"github.com/custodia-labs/sercha-sync/internal/connectors/oauth"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Name is the connector identifier stored in configurations.
const Name = "sharepoint"

// KeySiteName is the parameter naming the site to search for.
const KeySiteName = "site_name"

const contentTypeDocument = "Document"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Definition describes the connector in the catalogue.
var Definition = domain.ConnectorDefinition{
	Name:        Name,
	Title:       "SharePoint",
	Description: "Synchronise the documents of selected SharePoint lists",
	AuthMethod:  domain.AuthMethodOAuth,
	HasFolders:  true,
	ConfigKeys: append([]domain.ConfigKey{
		{Key: KeySiteName, Label: "Site name", Description: "Site searched for with the Graph sites API", Required: true},
	}, domain.OAuthConfigKeys...),
}

// indexHeader lets Graph filter on non-indexed list columns.
var indexHeader = map[string]string{"Prefer": "HonorNonIndexedQueriesWarningMayFailRandomly"}

type site struct {
	ID string `json:"id"`
}

type list struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl"`
}

type listItem struct {
	ID                   string `json:"id"`
	WebURL               string `json:"webUrl"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
	Fields               struct {
		ContentType string `json:"ContentType"`
		FileLeafRef string `json:"FileLeafRef"`
	} `json:"fields"`
}

// Connector lists SharePoint list documents. Folder ids are list ids and
// item ids are document web URLs.
type Connector struct {
	*oauth.Base
	graph *graph.Client

	mu     sync.Mutex
	siteID string
}

// New creates a SharePoint connector.
func New(params domain.Params, opts ...base.Option) (*Connector, error) {
	o := base.Apply(graph.DefaultBaseURL, opts...)
	c := &Connector{Base: oauth.NewBase(params, oauth.NewRefresher(o.Transport))}
	c.graph = graph.NewClient(o.BaseURL, c.AccessToken, o.Transport)
	return c, nil
}

// ValidateParameters requires a site name and the OAuth credential set.
func (c *Connector) ValidateParameters(params domain.Params) bool {
	return strings.TrimSpace(params.String(KeySiteName)) != "" && oauth.Valid(params)
}

// IsAccessTokenValid lists sites.
func (c *Connector) IsAccessTokenValid(ctx context.Context) bool {
	return c.graph.Probe(ctx, "sites")
}

// GetFolders returns the lists of the site.
func (c *Connector) GetFolders(ctx context.Context, query string) (domain.SearchResults, error) {
	id, err := c.site(ctx)
	if err != nil {
		return domain.SearchResults{}, err
	}
	lists, err := graph.Collect[list](ctx, c.graph, "sites/"+id+"/lists", nil, nil)
	if err != nil {
		return domain.SearchResults{}, fmt.Errorf("list site lists: %w", err)
	}

	var items []domain.SyncItem
	for _, l := range lists {
		title := l.DisplayName
		if title == "" {
			title = l.Name
		}
		if query != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(query)) {
			continue
		}
		items = append(items, domain.SyncItem{
			OriginalID: l.ID,
			UUID:       l.ID,
			Title:      title,
			IsFolder:   true,
			Metadata:   map[string]string{domain.MetaURI: l.WebURL},
			Status:     domain.StatusPending,
		})
	}
	return domain.SearchResults{Items: items}, nil
}

// GetFilesFromFolders lists the documents of every list.
func (c *Connector) GetFilesFromFolders(ctx context.Context, folders []domain.SyncItem) (domain.SearchResults, error) {
	items, err := c.list(ctx, folders, "")
	return domain.SearchResults{Items: items}, err
}

// GetLastModified asks Graph for documents modified after since. The list
// API cannot report deletions, so existing is ignored.
func (c *Connector) GetLastModified(
	ctx context.Context,
	since string,
	folders []domain.SyncItem,
	_ []string,
) (domain.SearchResults, error) {
	items, err := c.list(ctx, folders, since)
	return domain.SearchResults{Items: items}, err
}

// Fetch downloads the document behind the list item.
func (c *Connector) Fetch(ctx context.Context, item domain.SyncItem) (domain.Content, error) {
	target := item.Meta(domain.MetaDownloadLink)
	if target == "" {
		return nil, fmt.Errorf("download %s: no download link: %w", item.OriginalID, domain.ErrInvalidInput)
	}
	data, err := c.graph.Download(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", item.OriginalID, err)
	}
	return &domain.Blob{Data: data}, nil
}

func (c *Connector) list(ctx context.Context, folders []domain.SyncItem, since string) ([]domain.SyncItem, error) {
	if len(folders) == 0 {
		return nil, nil
	}
	id, err := c.site(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{"expand": {"fields"}}
	if since != "" {
		q.Set("$filter", fmt.Sprintf("fields/Modified gt '%s'", since))
	}

	var items []domain.SyncItem
	var errs []error
	for _, folder := range folders {
		path := fmt.Sprintf("sites/%s/lists/%s/items", id, url.PathEscape(folder.OriginalID))
		found, err := graph.Collect[listItem](ctx, c.graph, path, q, indexHeader)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s: %w", folder.OriginalID, err))
		}
		for _, it := range found {
			if it.Fields.ContentType != contentTypeDocument {
				continue
			}
			items = append(items, documentItem(it, path))
		}
	}
	return base.Dedupe(items), errors.Join(errs...)
}

// site resolves and caches the id of the configured site.
func (c *Connector) site(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.siteID != "" {
		return c.siteID, nil
	}

	name := c.Params().String(KeySiteName)
	sites, err := graph.Collect[site](ctx, c.graph, "sites", url.Values{"search": {name}}, nil)
	if err != nil {
		return "", fmt.Errorf("find SharePoint site %q: %w", name, err)
	}
	if len(sites) == 0 || sites[0].ID == "" {
		return "", fmt.Errorf("find SharePoint site %q: %w", name, domain.ErrNotFound)
	}
	c.siteID = sites[0].ID
	return c.siteID, nil
}

func documentItem(it listItem, itemsPath string) domain.SyncItem {
	title := it.Fields.FileLeafRef
	if title == "" {
		title = it.WebURL
	}
	mimeType := domain.LookupMimeType(title)
	if mimeType == "" {
		mimeType = domain.MimeOctetStream
	}
	return domain.SyncItem{
		OriginalID:  it.WebURL,
		UUID:        it.WebURL,
		Title:       title,
		MimeType:    mimeType,
		ModifiedGMT: it.LastModifiedDateTime,
		Metadata: map[string]string{
			domain.MetaURI:          it.WebURL,
			domain.MetaDownloadLink: itemsPath + "/" + url.PathEscape(it.ID) + "/driveitem/content",
		},
		Status: domain.StatusPending,
	}
}
