package driven

import (
	"context"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// Connector lists and fetches content from one external source.
// Each variant (folder, gdrive, confluence, rss, ...) implements this
// interface; pagination, auth and error mapping stay inside the variant.
type Connector interface {
	// ValidateParameters checks the parameters are structurally complete.
	// It never touches the network.
	ValidateParameters(params domain.Params) bool

	// HasAuthData is a cheap local check that credentials are present.
	HasAuthData() bool

	// IsAccessTokenValid probes the source once. Ambiguous or non-auth
	// failures report true so a flaky source does not trigger refreshes.
	IsAccessTokenValid(ctx context.Context) bool

	// RefreshAuthentication exchanges the refresh credential for a new
	// access credential. It returns the full parameter set to persist and
	// whether the refresh succeeded. On failure the returned parameters have
	// both credentials cleared. Connectors without OAuth return their
	// parameters and true.
	RefreshAuthentication(ctx context.Context) (domain.Params, bool)

	// GetFolders lists folder-like containers. Connectors without folders
	// return domain.ErrNotImplemented.
	GetFolders(ctx context.Context, query string) (domain.SearchResults, error)

	// GetFilesFromFolders enumerates every file below folders.
	GetFilesFromFolders(ctx context.Context, folders []domain.SyncItem) (domain.SearchResults, error)

	// GetLastModified returns the files below folders modified after since.
	// Ids of existing that are no longer observed are returned as deleted
	// placeholders when the connector can detect deletions.
	GetLastModified(ctx context.Context, since string, folders []domain.SyncItem, existing []string) (domain.SearchResults, error)

	// Fetch returns the content of item: *domain.Blob or *domain.Text for
	// downloadable sources, *domain.Link for referenced ones.
	Fetch(ctx context.Context, item domain.SyncItem) (domain.Content, error)
}

// GroupLister is implemented by connectors able to report the access
// groups of an item.
type GroupLister interface {
	GetGroups(ctx context.Context, item domain.SyncItem) ([]string, error)
}

// Watcher is implemented by connectors able to push change notifications.
// The returned channel is closed when ctx is cancelled.
type Watcher interface {
	Watch(ctx context.Context, folders []domain.SyncItem) (<-chan struct{}, error)
}
