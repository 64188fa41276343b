// Package onedrive synchronises files of OneDrive folders through
// Microsoft Graph.
package onedrive

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/connectors/graph"
	"github.com/custodia-labs/sercha-sync/internal/connectors/oauth"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Name is the connector identifier stored in configurations.
const Name = "onedrive"

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Definition describes the connector in the catalogue.
var Definition = domain.ConnectorDefinition{
	Name:        Name,
	Title:       "OneDrive",
	Description: "Synchronise the files of selected OneDrive folders",
	AuthMethod:  domain.AuthMethodOAuth,
	HasFolders:  true,
	ConfigKeys:  domain.OAuthConfigKeys,
}

type driveItem struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	LastModifiedDateTime string `json:"lastModifiedDateTime"`
	WebURL               string `json:"webUrl"`
	DownloadURL          string `json:"@microsoft.graph.downloadUrl"`
	File                 *struct {
		MimeType string `json:"mimeType"`
	} `json:"file"`
	Folder *struct {
		ChildCount int `json:"childCount"`
	} `json:"folder"`
	ParentReference *struct {
		Path string `json:"path"`
	} `json:"parentReference"`
}

// Connector lists and downloads OneDrive files. Ids are drive item ids.
type Connector struct {
	*oauth.Base
	graph *graph.Client
}

// New creates a OneDrive connector.
func New(params domain.Params, opts ...base.Option) (*Connector, error) {
	o := base.Apply(graph.DefaultBaseURL, opts...)
	c := &Connector{Base: oauth.NewBase(params, oauth.NewRefresher(o.Transport))}
	c.graph = graph.NewClient(o.BaseURL, c.AccessToken, o.Transport)
	return c, nil
}

// ValidateParameters requires the OAuth credential set.
func (c *Connector) ValidateParameters(params domain.Params) bool {
	return oauth.Valid(params)
}

// IsAccessTokenValid reads the user's drive.
func (c *Connector) IsAccessTokenValid(ctx context.Context) bool {
	return c.graph.Probe(ctx, "me/drive")
}

// GetFolders lists the root folders, or searches the drive for folders
// matching query.
func (c *Connector) GetFolders(ctx context.Context, query string) (domain.SearchResults, error) {
	path := "me/drive/root/children"
	q := url.Values{"$top": {fmt.Sprint(graph.PageSize)}}
	if query == "" {
		q.Set("$filter", "folder ne null")
	} else {
		path = fmt.Sprintf("me/drive/root/search(q='%s')", escape(query))
	}

	found, err := graph.Collect[driveItem](ctx, c.graph, path, q, nil)
	if err != nil {
		return domain.SearchResults{}, fmt.Errorf("list folders: %w", err)
	}

	var items []domain.SyncItem
	for _, it := range found {
		if it.Folder == nil {
			continue
		}
		items = append(items, domain.SyncItem{
			OriginalID: it.ID,
			UUID:       it.ID,
			Title:      it.Name,
			IsFolder:   true,
			Metadata:   map[string]string{domain.MetaPath: itemPath(it)},
			Status:     domain.StatusPending,
		})
	}
	return domain.SearchResults{Items: items}, nil
}

// GetFilesFromFolders lists the files directly inside every folder.
func (c *Connector) GetFilesFromFolders(ctx context.Context, folders []domain.SyncItem) (domain.SearchResults, error) {
	items, err := c.list(ctx, folders)
	return domain.SearchResults{Items: items}, err
}

// GetLastModified returns files modified after since plus deleted
// placeholders when every folder could be listed.
func (c *Connector) GetLastModified(
	ctx context.Context,
	since string,
	folders []domain.SyncItem,
	existing []string,
) (domain.SearchResults, error) {
	items, err := c.list(ctx, folders)
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

// Fetch downloads the file through its pre-authenticated download URL, or
// the content endpoint when the listing had none.
func (c *Connector) Fetch(ctx context.Context, item domain.SyncItem) (domain.Content, error) {
	target := item.Meta(domain.MetaDownloadLink)
	if target == "" {
		target = "me/drive/items/" + url.PathEscape(item.OriginalID) + "/content"
	}
	data, err := c.graph.Download(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", item.OriginalID, err)
	}
	return &domain.Blob{Data: data}, nil
}

func (c *Connector) list(ctx context.Context, folders []domain.SyncItem) ([]domain.SyncItem, error) {
	var items []domain.SyncItem
	var errs []error
	q := url.Values{"$top": {fmt.Sprint(graph.PageSize)}}
	for _, folder := range folders {
		path := "me/drive/items/" + url.PathEscape(folder.OriginalID) + "/children"
		found, err := graph.Collect[driveItem](ctx, c.graph, path, q, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("list folder %s: %w", folder.Title, err))
		}
		for _, it := range found {
			if it.File != nil {
				items = append(items, fileItem(it))
			}
		}
	}
	return base.Dedupe(items), errors.Join(errs...)
}

func fileItem(it driveItem) domain.SyncItem {
	meta := map[string]string{domain.MetaPath: itemPath(it)}
	if it.DownloadURL != "" {
		meta[domain.MetaDownloadLink] = it.DownloadURL
	}
	if it.WebURL != "" {
		meta[domain.MetaURI] = it.WebURL
	}
	mimeType := it.File.MimeType
	if mimeType == "" {
		mimeType = domain.LookupMimeType(it.Name)
	}
	return domain.SyncItem{
		OriginalID:  it.ID,
		UUID:        it.ID,
		Title:       it.Name,
		MimeType:    mimeType,
		ModifiedGMT: it.LastModifiedDateTime,
		Metadata:    meta,
		Status:      domain.StatusPending,
	}
}

// itemPath strips the "/drive/root:" prefix Graph puts on parent paths.
func itemPath(it driveItem) string {
	parent := ""
	if it.ParentReference != nil {
		parent = it.ParentReference.Path
		if i := strings.Index(parent, ":"); i >= 0 {
			parent = parent[i+1:]
		}
	}
	return strings.TrimPrefix(parent+"/"+it.Name, "/")
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
