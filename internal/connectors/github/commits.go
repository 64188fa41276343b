package github

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// commitWorkers bounds the commits fetched concurrently.
const commitWorkers = 4

// changedPaths returns the paths added or modified on the branch after
// since, with the date of their latest change.
func changedPaths(ctx context.Context, client *Client, repo repoRef, since time.Time) (map[string]time.Time, error) {
	commits, err := client.ListCommits(ctx, repo.Owner, repo.Name, repo.Branch, since)
	if err != nil {
		return nil, fmt.Errorf("list commits of %s: %w", repo.FullName(), err)
	}

	var mu sync.Mutex
	paths := make(map[string]time.Time)
	errs := make([]error, len(commits))

	var g errgroup.Group
	g.SetLimit(commitWorkers)
	for i, commit := range commits {
		g.Go(func() error {
			full, err := client.GetCommit(ctx, repo.Owner, repo.Name, commit.GetSHA())
			if err != nil {
				errs[i] = fmt.Errorf("commit %s of %s: %w", commit.GetSHA(), repo.FullName(), err)
				return nil
			}
			date := full.GetCommit().GetCommitter().GetDate().Time

			mu.Lock()
			defer mu.Unlock()
			for _, f := range full.Files {
				if f.GetStatus() == "removed" {
					continue
				}
				if date.After(paths[f.GetFilename()]) {
					paths[f.GetFilename()] = date
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return paths, errors.Join(errs...)
}
