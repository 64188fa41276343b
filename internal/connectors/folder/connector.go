// Package folder synchronises files below local directories.
package folder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Name is the connector identifier stored in configurations.
const Name = "folder"

// Ensure Connector implements the interfaces.
var (
	_ driven.Connector = (*Connector)(nil)
	_ driven.Watcher   = (*Connector)(nil)
)

// ignored are file names never synchronised.
var ignored = map[string]bool{
	".DS_Store": true,
	"Thumbs.db": true,
}

// Definition describes the connector in the catalogue.
var Definition = domain.ConnectorDefinition{
	Name:        Name,
	Title:       "Local folder",
	Description: "Synchronise files below local directories",
	AuthMethod:  domain.AuthMethodNone,
	RootParam:   "path",
	ConfigKeys: []domain.ConfigKey{
		{Key: "path", Label: "Root path", Description: "Directory to synchronise, more can be added with select-folders", Required: true},
	},
}

// Connector lists files on the local filesystem. Folder ids are absolute
// directory paths and file ids are absolute file paths.
type Connector struct {
	params domain.Params
}

// New creates a folder connector.
func New(params domain.Params, _ ...base.Option) (*Connector, error) {
	return &Connector{params: params.Clone()}, nil
}

// ValidateParameters requires a root path.
func (c *Connector) ValidateParameters(params domain.Params) bool {
	return strings.TrimSpace(params.String("path")) != ""
}

// HasAuthData is always true, local files need no credentials.
func (c *Connector) HasAuthData() bool { return true }

// IsAccessTokenValid is always true.
func (c *Connector) IsAccessTokenValid(context.Context) bool { return true }

// RefreshAuthentication is a no-op.
func (c *Connector) RefreshAuthentication(context.Context) (domain.Params, bool) {
	return c.params.Clone(), true
}

// GetFolders is not supported, folders are picked by path.
func (c *Connector) GetFolders(context.Context, string) (domain.SearchResults, error) {
	return domain.SearchResults{}, fmt.Errorf("folder connector: list folders: %w", domain.ErrNotImplemented)
}

// GetFilesFromFolders walks every folder. Missing folders are reported in
// the error while the files of the others are still returned.
func (c *Connector) GetFilesFromFolders(ctx context.Context, folders []domain.SyncItem) (domain.SearchResults, error) {
	items, _, err := c.list(ctx, folders)
	return domain.SearchResults{Items: items}, err
}

// GetLastModified returns files changed after since plus deleted
// placeholders for ids of existing below the folders that are no longer on
// disk. Nothing is reported deleted when a folder could not be walked.
func (c *Connector) GetLastModified(
	ctx context.Context,
	since string,
	folders []domain.SyncItem,
	existing []string,
) (domain.SearchResults, error) {
	if len(folders) == 0 {
		return domain.SearchResults{}, nil
	}
	items, infos, err := c.list(ctx, folders)
	cutoff := base.ParseSince(since)

	var changed []domain.SyncItem
	for _, item := range items {
		if info, ok := infos[item.OriginalID]; ok && info.ModTime().After(cutoff) {
			changed = append(changed, item)
		}
	}
	if err != nil {
		// an unmounted folder cannot tell deletions from gaps
		return domain.SearchResults{Items: changed}, err
	}
	changed = append(changed, domain.DiffDeleted(below(existing, folders), base.Observed(items))...)
	return domain.SearchResults{Items: changed}, nil
}

// below returns the ids located under one of folders.
func below(ids []string, folders []domain.SyncItem) []string {
	var out []string
	for _, id := range ids {
		for _, f := range folders {
			root := filepath.Clean(f.OriginalID)
			if id == root || strings.HasPrefix(id, root+string(filepath.Separator)) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// Fetch reads the file.
func (c *Connector) Fetch(_ context.Context, item domain.SyncItem) (domain.Content, error) {
	data, err := os.ReadFile(item.OriginalID)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", item.OriginalID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", item.OriginalID, err)
	}
	return &domain.Blob{Data: data}, nil
}

func (c *Connector) list(ctx context.Context, folders []domain.SyncItem) ([]domain.SyncItem, map[string]fs.FileInfo, error) {
	var items []domain.SyncItem
	infos := make(map[string]fs.FileInfo)
	var problems []string

	for _, folder := range folders {
		root := folder.OriginalID
		if st, err := os.Stat(root); err != nil || !st.IsDir() {
			problems = append(problems, fmt.Sprintf("Folder %s does not exist.", root))
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ignored[d.Name()] || d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil //nolint:nilerr // file vanished during the walk
			}
			if _, dup := infos[path]; dup {
				return nil
			}
			infos[path] = info
			items = append(items, toItem(path))
			return nil
		})
		if err != nil {
			problems = append(problems, fmt.Sprintf("walk %s: %v", root, err))
		}
	}

	if len(problems) > 0 {
		return items, infos, errors.New(strings.Join(problems, ". "))
	}
	return items, infos, nil
}

func toItem(path string) domain.SyncItem {
	mimeType := domain.LookupMimeType(path)
	if mimeType == "" {
		mimeType = domain.MimeOctetStream
	}
	return domain.SyncItem{
		OriginalID: path,
		Title:      filepath.Base(path),
		MimeType:   mimeType,
		Metadata:   map[string]string{domain.MetaPath: filepath.ToSlash(path)},
		Status:     domain.StatusPending,
	}
}
