// Package dropbox synchronises files below Dropbox folders.
package dropbox

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"

	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/connectors/oauth"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Name is the connector identifier stored in configurations.
const Name = "dropbox"

const listLimit = 100

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Definition describes the connector in the catalogue.
var Definition = domain.ConnectorDefinition{
	Name:        Name,
	Title:       "Dropbox",
	Description: "Synchronise files below selected Dropbox folders",
	AuthMethod:  domain.AuthMethodOAuth,
	HasFolders:  true,
	ConfigKeys:  domain.OAuthConfigKeys,
}

// Connector lists and downloads Dropbox files. Folder ids are lower-cased
// paths, file ids are Dropbox "id:" identifiers.
//
// The SDK takes no context, so calls are not cancelled mid-flight; ctx is
// checked between pages.
type Connector struct {
	*oauth.Base
	opts base.Options
}

// New creates a Dropbox connector. An empty base URL selects the public
// API hosts.
func New(params domain.Params, opts ...base.Option) (*Connector, error) {
	o := base.Apply("", opts...)
	return &Connector{
		Base: oauth.NewBase(params, oauth.NewRefresher(o.Transport)),
		opts: o,
	}, nil
}

// ValidateParameters requires the OAuth credential set.
func (c *Connector) ValidateParameters(params domain.Params) bool {
	return oauth.Valid(params)
}

// IsAccessTokenValid fetches the current account. Only an authentication
// failure reports false.
func (c *Connector) IsAccessTokenValid(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	cfg, rec := c.config(ctx)
	_, err := users.New(cfg).GetCurrentAccount()
	return !errors.Is(wrap(rec, err), domain.ErrUnauthorized)
}

// GetFolders lists every folder, or searches folders by name when query is
// set.
func (c *Connector) GetFolders(ctx context.Context, query string) (domain.SearchResults, error) {
	var entries []files.IsMetadata
	var err error
	if query == "" {
		entries, err = c.listFolder(ctx, "")
	} else {
		entries, err = c.search(ctx, query)
	}
	if err != nil {
		return domain.SearchResults{}, err
	}

	var items []domain.SyncItem
	for _, e := range entries {
		if f, ok := e.(*files.FolderMetadata); ok {
			items = append(items, folderItem(f))
		}
	}
	return domain.SearchResults{Items: items}, nil
}

// GetFilesFromFolders lists the files below every folder recursively.
// Failed folders are reported in the error while the files of the others
// are still returned.
func (c *Connector) GetFilesFromFolders(ctx context.Context, folders []domain.SyncItem) (domain.SearchResults, error) {
	items, err := c.list(ctx, folders)
	return domain.SearchResults{Items: items}, err
}

// GetLastModified returns files whose client modification time is after
// since, plus deleted placeholders when every folder could be listed.
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

// Fetch downloads the file.
func (c *Connector) Fetch(ctx context.Context, item domain.SyncItem) (domain.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg, rec := c.config(ctx)
	_, body, err := files.New(cfg).Download(files.NewDownloadArg(item.OriginalID))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", item.OriginalID, wrap(rec, err))
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", item.OriginalID, domain.ErrTransient, err)
	}
	return &domain.Blob{Data: data}, nil
}

func (c *Connector) list(ctx context.Context, folders []domain.SyncItem) ([]domain.SyncItem, error) {
	var items []domain.SyncItem
	var errs []error
	for _, folder := range folders {
		entries, err := c.listFolder(ctx, folder.OriginalID)
		if err != nil {
			errs = append(errs, fmt.Errorf("list folder %s: %w", folder.OriginalID, err))
		}
		for _, e := range entries {
			if f, ok := e.(*files.FileMetadata); ok {
				items = append(items, fileItem(f))
			}
		}
	}
	return base.Dedupe(items), errors.Join(errs...)
}

// listFolder pages through a recursive listing of path. Entries read
// before a failure are returned with the error.
func (c *Connector) listFolder(ctx context.Context, path string) ([]files.IsMetadata, error) {
	cfg, rec := c.config(ctx)
	client := files.New(cfg)

	arg := files.NewListFolderArg(path)
	arg.Recursive = true
	arg.Limit = listLimit

	res, err := client.ListFolder(arg)
	if err != nil {
		return nil, wrap(rec, err)
	}
	entries := res.Entries
	for res.HasMore {
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		res, err = client.ListFolderContinue(files.NewListFolderContinueArg(res.Cursor))
		if err != nil {
			return entries, wrap(rec, err)
		}
		entries = append(entries, res.Entries...)
	}
	return entries, nil
}

func (c *Connector) search(ctx context.Context, query string) ([]files.IsMetadata, error) {
	cfg, rec := c.config(ctx)
	client := files.New(cfg)

	res, err := client.SearchV2(files.NewSearchV2Arg(query))
	if err != nil {
		return nil, wrap(rec, err)
	}
	var entries []files.IsMetadata
	for {
		for _, m := range res.Matches {
			if m.Metadata != nil && m.Metadata.Metadata != nil {
				entries = append(entries, m.Metadata.Metadata)
			}
		}
		if !res.HasMore {
			return entries, nil
		}
		if err := ctx.Err(); err != nil {
			return entries, err
		}
		res, err = client.SearchContinueV2(files.NewSearchV2ContinueArg(res.Cursor))
		if err != nil {
			return entries, wrap(rec, err)
		}
	}
}

func folderItem(f *files.FolderMetadata) domain.SyncItem {
	return domain.SyncItem{
		OriginalID: f.PathLower,
		UUID:       f.Id,
		Title:      f.Name,
		IsFolder:   true,
		Metadata:   map[string]string{domain.MetaPath: f.PathDisplay},
		Status:     domain.StatusPending,
	}
}

func fileItem(f *files.FileMetadata) domain.SyncItem {
	mimeType := domain.LookupMimeType(f.Name)
	if mimeType == "" {
		mimeType = domain.MimeOctetStream
	}
	item := domain.SyncItem{
		OriginalID: f.Id,
		UUID:       f.Id,
		Title:      f.Name,
		MimeType:   mimeType,
		Metadata:   map[string]string{domain.MetaPath: f.PathDisplay},
		Status:     domain.StatusPending,
	}
	if !f.ClientModified.IsZero() {
		item.ModifiedGMT = domain.NowGMT(f.ClientModified)
	}
	return item
}
