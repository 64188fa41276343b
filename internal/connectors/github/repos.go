package github

import (
	"strings"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// FilterRepos drops disabled repositories, and archived ones and forks
// unless included.
func FilterRepos(repos []*gh.Repository, includeArchived, includeForks bool) []*gh.Repository {
	filtered := make([]*gh.Repository, 0, len(repos))
	for _, r := range repos {
		if r.GetArchived() && !includeArchived {
			continue
		}
		if r.GetFork() && !includeForks {
			continue
		}
		if r.GetDisabled() {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// repoItem represents a repository as a selectable folder.
func repoItem(r *gh.Repository) domain.SyncItem {
	item := domain.SyncItem{
		OriginalID: r.GetFullName(),
		UUID:       r.GetFullName(),
		Title:      r.GetFullName(),
		IsFolder:   true,
		Metadata: map[string]string{
			domain.MetaPath: r.GetFullName(),
			domain.MetaURI:  r.GetHTMLURL(),
			metaBranch:      r.GetDefaultBranch(),
		},
		Status: domain.StatusPending,
	}
	if pushed := r.GetPushedAt(); !pushed.IsZero() {
		item.ModifiedGMT = domain.NowGMT(pushed.Time)
	}
	return item
}

// parseRepo resolves a folder item into a repository reference. The
// branch is empty when the folder does not carry it.
func parseRepo(folder domain.SyncItem) (repoRef, bool) {
	owner, name, ok := strings.Cut(folder.OriginalID, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return repoRef{}, false
	}
	return repoRef{Owner: owner, Name: name, Branch: folder.Meta(metaBranch)}, true
}

// parseItemRepo extracts the repository of a file, issue or pull request
// item from its metadata.
func parseItemRepo(item domain.SyncItem) (repoRef, bool) {
	ref, ok := parseRepo(domain.SyncItem{OriginalID: item.Meta(metaRepo)})
	ref.Branch = item.Meta(metaBranch)
	return ref, ok
}
