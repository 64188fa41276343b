package github

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-sync/internal/connectors/base"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// repoWorkers bounds the repositories listed concurrently.
const repoWorkers = 4

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

// Connector synchronises GitHub repositories. Repositories are the
// folders; files, issues and pull requests of their default branch are the
// items.
type Connector struct {
	params domain.Params
	config *Config
	client *Client
}

// New creates a GitHub connector.
func New(params domain.Params, opts ...base.Option) (*Connector, error) {
	cfg, err := ParseConfig(params)
	if err != nil {
		return nil, err
	}

	baseURL := ""
	if u := params.String(KeyEnterpriseURL); u != "" {
		baseURL = enterpriseURL(u)
	}
	o := base.Apply(baseURL, opts...)

	client, err := NewClientWithToken(params.String(KeyToken), o.BaseURL, o.Transport)
	if err != nil {
		return nil, err
	}
	return &Connector{params: params.Clone(), config: cfg, client: client}, nil
}

// ValidateParameters requires a token and valid content settings.
func (c *Connector) ValidateParameters(params domain.Params) bool {
	if params.String(KeyToken) == "" {
		return false
	}
	_, err := ParseConfig(params)
	return err == nil
}

// HasAuthData reports whether a token is configured.
func (c *Connector) HasAuthData() bool { return c.params.String(KeyToken) != "" }

// IsAccessTokenValid fetches the authenticated user. Only a 401 reports
// false.
func (c *Connector) IsAccessTokenValid(ctx context.Context) bool {
	err := c.client.ValidateCredentials(ctx)
	return err == nil || !IsUnauthorized(err)
}

// RefreshAuthentication is a no-op; tokens are long lived.
func (c *Connector) RefreshAuthentication(context.Context) (domain.Params, bool) {
	return c.params.Clone(), true
}

// GetFolders lists the accessible repositories whose full name contains
// query.
func (c *Connector) GetFolders(ctx context.Context, query string) (domain.SearchResults, error) {
	repos, err := c.client.ListAllAccessibleRepos(ctx)
	if err != nil {
		return domain.SearchResults{}, err
	}
	repos = FilterRepos(repos, c.config.IncludeArchived, c.config.IncludeForks)

	query = strings.ToLower(query)
	var items []domain.SyncItem
	for _, r := range repos {
		if query == "" || strings.Contains(strings.ToLower(r.GetFullName()), query) {
			items = append(items, repoItem(r))
		}
	}
	return domain.SearchResults{Items: items}, nil
}

// GetFilesFromFolders lists every enabled content type of each repository.
func (c *Connector) GetFilesFromFolders(ctx context.Context, folders []domain.SyncItem) (domain.SearchResults, error) {
	results := c.each(ctx, folders, func(ctx context.Context, repo repoRef) repoListing {
		return c.listRepo(ctx, repo, time.Time{})
	})

	var items []domain.SyncItem
	var errs []error
	for _, r := range results {
		items = append(items, r.items...)
		errs = append(errs, r.err)
	}
	return domain.SearchResults{Items: base.Dedupe(items)}, errors.Join(errs...)
}

// GetLastModified returns files touched by commits after since, and issues
// and pull requests updated after since. Files of the listed repositories
// missing from their tree are reported deleted when every listing
// succeeded.
func (c *Connector) GetLastModified(
	ctx context.Context,
	since string,
	folders []domain.SyncItem,
	existing []string,
) (domain.SearchResults, error) {
	cutoff := base.ParseSince(since)
	results := c.each(ctx, folders, func(ctx context.Context, repo repoRef) repoListing {
		return c.listRepo(ctx, repo, cutoff)
	})

	var items []domain.SyncItem
	var errs []error
	listed := make(map[string]bool)
	observed := make(map[string]struct{})
	for _, r := range results {
		items = append(items, r.items...)
		errs = append(errs, r.err)
		if r.repo.Owner != "" {
			listed[r.repo.FullName()] = true
		}
		for id := range r.files {
			observed[id] = struct{}{}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return domain.SearchResults{Items: base.Dedupe(items)}, err
	}

	if c.config.HasContentType(ContentFiles) {
		var candidates []string
		for _, id := range existing {
			if repo, _, ok := strings.Cut(id, ":"); ok && listed[repo] {
				candidates = append(candidates, id)
			}
		}
		items = append(items, domain.DiffDeleted(candidates, observed)...)
	}
	return domain.SearchResults{Items: base.Dedupe(items)}, nil
}

// Fetch downloads a file blob or renders an issue or pull request.
func (c *Connector) Fetch(ctx context.Context, item domain.SyncItem) (domain.Content, error) {
	repo, ok := parseItemRepo(item)
	if !ok {
		return nil, fmt.Errorf("github item %s: %w: missing repository", item.OriginalID, domain.ErrInvalidInput)
	}

	switch kind := item.Meta(domain.MetaType); kind {
	case typeFile:
		data, err := c.client.GetBlob(ctx, repo.Owner, repo.Name, item.Meta(metaSHA))
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", item.OriginalID, err)
		}
		return &domain.Blob{Data: data}, nil
	case typeIssue, typePull:
		number, err := strconv.Atoi(item.Meta(metaNumber))
		if err != nil {
			return nil, fmt.Errorf("github item %s: %w: bad number", item.OriginalID, domain.ErrInvalidInput)
		}
		var text *domain.Text
		if kind == typeIssue {
			text, err = renderIssue(ctx, c.client, repo, number)
		} else {
			text, err = renderPullRequest(ctx, c.client, repo, number)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", item.OriginalID, err)
		}
		return text, nil
	default:
		return nil, fmt.Errorf("github item %s: %w: unknown type %q", item.OriginalID, domain.ErrInvalidInput, kind)
	}
}

// repoListing is what one repository contributed to a listing.
type repoListing struct {
	repo  repoRef
	items []domain.SyncItem
	files map[string]struct{}
	err   error
}

// each runs fn for every repository folder concurrently, resolving the
// default branch when the folder does not carry it.
func (c *Connector) each(
	ctx context.Context,
	folders []domain.SyncItem,
	fn func(context.Context, repoRef) repoListing,
) []repoListing {
	results := make([]repoListing, len(folders))

	var g errgroup.Group
	g.SetLimit(repoWorkers)
	for i, folder := range folders {
		g.Go(func() error {
			repo, ok := parseRepo(folder)
			if !ok {
				results[i].err = fmt.Errorf("folder %q: %w: not a repository", folder.OriginalID, domain.ErrInvalidInput)
				return nil
			}
			if repo.Branch == "" {
				r, err := c.client.GetRepository(ctx, repo.Owner, repo.Name)
				if err != nil {
					results[i].err = fmt.Errorf("repository %s: %w", repo.FullName(), err)
					return nil
				}
				repo.Branch = r.GetDefaultBranch()
			}
			results[i] = fn(ctx, repo)
			results[i].repo = repo
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// listRepo lists the enabled content of repo. With a non-zero since only
// files changed by later commits are kept, but every file is observed.
func (c *Connector) listRepo(ctx context.Context, repo repoRef, since time.Time) repoListing {
	var out repoListing
	var errs []error

	if c.config.HasContentType(ContentFiles) {
		files, err := listFiles(ctx, c.client, repo, c.config)
		if err != nil {
			errs = append(errs, err)
		} else {
			out.files = base.Observed(files)
			changed, err := c.filterChanged(ctx, repo, files, since)
			if err != nil {
				errs = append(errs, err)
			}
			out.items = append(out.items, changed...)
		}
	}
	if c.config.HasContentType(ContentIssues) {
		issues, err := listIssues(ctx, c.client, repo, since)
		out.items = append(out.items, issues...)
		errs = append(errs, err)
	}
	if c.config.HasContentType(ContentPRs) {
		prs, err := listPullRequests(ctx, c.client, repo, since)
		out.items = append(out.items, prs...)
		errs = append(errs, err)
	}

	out.err = errors.Join(errs...)
	return out
}

func (c *Connector) filterChanged(ctx context.Context, repo repoRef, files []domain.SyncItem, since time.Time) ([]domain.SyncItem, error) {
	if since.IsZero() {
		return files, nil
	}
	paths, err := changedPaths(ctx, c.client, repo, since)
	if err != nil {
		return nil, err
	}

	var changed []domain.SyncItem
	for _, f := range files {
		if date, ok := paths[f.Meta(metaFilePath)]; ok {
			f.ModifiedGMT = domain.NowGMT(date)
			changed = append(changed, f)
		}
	}
	return changed, nil
}
