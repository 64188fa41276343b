// Package drive synchronises files of Google Drive folders.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/connectors/google"
	"github.com/custodia-labs/sercha-sync/internal/connectors/oauth"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Ensure Connector implements the interfaces.
var (
	_ driven.Connector   = (*Connector)(nil)
	_ driven.GroupLister = (*Connector)(nil)
)

// listWorkers bounds the folders listed concurrently.
const listWorkers = 4

// Connector lists and downloads Drive files. Item ids are Drive file ids.
type Connector struct {
	*oauth.Base
	svc     *drive.Service
	limiter *google.RateLimiter
}

// New creates a Drive connector.
func New(params domain.Params, opts ...base.Option) (*Connector, error) {
	o := base.Apply(google.DefaultDriveEndpoint, opts...)
	b := oauth.NewBase(params, oauth.NewRefresher(o.Transport))

	svc, err := google.NewDriveService(context.Background(), b.TokenSource(), o.BaseURL, o.Transport)
	if err != nil {
		return nil, err
	}
	return &Connector{Base: b, svc: svc, limiter: google.NewRateLimiter()}, nil
}

// ValidateParameters requires the OAuth credential set.
func (c *Connector) ValidateParameters(params domain.Params) bool {
	return oauth.Valid(params)
}

// IsAccessTokenValid fetches the current user. Only an authentication
// failure reports false.
func (c *Connector) IsAccessTokenValid(ctx context.Context) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return true
	}
	_, err := c.svc.About.Get().Fields("user").Context(ctx).Do()
	return err == nil || !google.IsUnauthorized(err)
}

// GetFolders lists folders whose name contains query. Each folder carries
// its ancestor path in the path metadata.
func (c *Connector) GetFolders(ctx context.Context, query string) (domain.SearchResults, error) {
	all, err := c.folders(ctx, "")
	if err != nil {
		return domain.SearchResults{}, err
	}
	tree := newFolderTree(all)

	var matched []*drive.File
	if query == "" {
		matched = all
	} else {
		matched, err = c.folders(ctx, query)
		if err != nil {
			return domain.SearchResults{}, err
		}
	}

	items := make([]domain.SyncItem, 0, len(matched))
	for _, f := range matched {
		item := toItem(f)
		item.IsFolder = true
		item.MimeType = MimeTypeFolder
		item.Metadata[domain.MetaPath] = tree.path(f.Id)
		delete(item.Metadata, metaNeedsConversion)
		items = append(items, item)
	}
	return domain.SearchResults{Items: items}, nil
}

// GetFilesFromFolders lists the files of every folder and of all its
// subfolders.
func (c *Connector) GetFilesFromFolders(ctx context.Context, folders []domain.SyncItem) (domain.SearchResults, error) {
	items, err := c.list(ctx, folders)
	return domain.SearchResults{Items: items}, err
}

// GetLastModified returns files modified after since plus deleted
// placeholders for ids of existing no longer listed.
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
		// a partial listing cannot tell deletions from gaps
		return domain.SearchResults{Items: changed}, err
	}
	changed = append(changed, domain.DiffDeleted(existing, base.Observed(items))...)
	return domain.SearchResults{Items: changed}, nil
}

// Fetch downloads the file, exporting Google documents to PDF.
func (c *Connector) Fetch(ctx context.Context, item domain.SyncItem) (domain.Content, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp *http.Response
	var err error
	if item.Meta(metaNeedsConversion) == "yes" {
		resp, err = c.svc.Files.Export(item.OriginalID, domain.MimePDF).Context(ctx).Download()
	} else {
		resp, err = c.svc.Files.Get(item.OriginalID).SupportsAllDrives(true).Context(ctx).Download()
	}
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", item.OriginalID, c.wrap(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", item.OriginalID, domain.ErrTransient, err)
	}

	blob := &domain.Blob{Data: data}
	if item.Meta(metaNeedsConversion) == "yes" {
		blob.MimeType = domain.MimePDF
	}
	return blob, nil
}

// list resolves the subfolders of folders and lists their files
// concurrently. Failed folders are reported in the error while the files
// of the others are still returned.
func (c *Connector) list(ctx context.Context, folders []domain.SyncItem) ([]domain.SyncItem, error) {
	if len(folders) == 0 {
		return nil, nil
	}
	all, err := c.folders(ctx, "")
	if err != nil {
		return nil, err
	}
	tree := newFolderTree(all)

	var targets []string
	seen := make(map[string]bool)
	for _, f := range folders {
		for _, id := range tree.descendants(f.OriginalID) {
			if !seen[id] {
				seen[id] = true
				targets = append(targets, id)
			}
		}
	}

	results := make([][]domain.SyncItem, len(targets))
	errs := make([]error, len(targets))
	var g errgroup.Group
	g.SetLimit(listWorkers)
	for i, id := range targets {
		g.Go(func() error {
			results[i], errs[i] = c.files(ctx, id, tree.path(id))
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

// files lists the non-folder children of folderID.
func (c *Connector) files(ctx context.Context, folderID, folderPath string) ([]domain.SyncItem, error) {
	q := fmt.Sprintf("not mimeType = '%s' and '%s' in parents and trashed = false", MimeTypeFolder, escape(folderID))
	found, err := c.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, err)
	}

	items := make([]domain.SyncItem, 0, len(found))
	for _, f := range found {
		item := toItem(f)
		item.Metadata[domain.MetaPath] = strings.TrimPrefix(folderPath+"/"+f.Name, "/")
		items = append(items, item)
	}
	return items, nil
}

// folders lists every folder, or those whose name contains name.
func (c *Connector) folders(ctx context.Context, name string) ([]*drive.File, error) {
	q := fmt.Sprintf("mimeType = '%s' and trashed = false", MimeTypeFolder)
	if name != "" {
		q = fmt.Sprintf("name contains '%s' and %s", escape(name), q)
	}
	found, err := c.query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return found, nil
}

func (c *Connector) query(ctx context.Context, q string) ([]*drive.File, error) {
	var files []*drive.File
	pageToken := ""
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return files, err
		}
		call := c.svc.Files.List().
			Q(q).
			PageSize(pageSize).
			Fields(googleapi.Field(listFields)).
			Corpora("allDrives").
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return files, c.wrap(err)
		}
		files = append(files, page.Files...)
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

// wrap maps err and backs off on exhausted quotas.
func (c *Connector) wrap(err error) error {
	if google.IsRateLimited(err) {
		c.limiter.Backoff(0)
	}
	return google.WrapError(err)
}

func toItem(f *drive.File) domain.SyncItem {
	mimeType := f.MimeType
	convert := "no"
	if strings.HasPrefix(mimeType, mimeTypeWorkspace) {
		mimeType = domain.MimePDF
		convert = "yes"
	}
	return domain.SyncItem{
		OriginalID:  f.Id,
		UUID:        f.Id,
		Title:       f.Name,
		MimeType:    mimeType,
		ModifiedGMT: f.ModifiedTime,
		Parents:     f.Parents,
		Metadata:    map[string]string{metaNeedsConversion: convert},
		Status:      domain.StatusPending,
	}
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
