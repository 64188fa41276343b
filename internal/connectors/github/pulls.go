package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// listPullRequests returns the pull requests updated after since.
func listPullRequests(ctx context.Context, client *Client, repo repoRef, since time.Time) ([]domain.SyncItem, error) {
	prs, err := client.ListPullRequests(ctx, repo.Owner, repo.Name, since)

	items := make([]domain.SyncItem, 0, len(prs))
	for _, pr := range prs {
		items = append(items, threadItem(repo, typePull, pr.GetNumber(), pr.GetTitle(),
			pr.GetHTMLURL(), pr.GetUpdatedAt().Time))
	}
	if err != nil {
		return items, fmt.Errorf("list pull requests of %s: %w", repo.FullName(), err)
	}
	return items, nil
}

// renderPullRequest fetches a pull request with its conversation as
// markdown.
func renderPullRequest(ctx context.Context, client *Client, repo repoRef, number int) (*domain.Text, error) {
	pr, err := client.GetPullRequest(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return nil, err
	}
	comments, err := client.ListComments(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return nil, err
	}

	state := pr.GetState()
	if pr.GetMerged() {
		state = "merged"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", pr.GetTitle())
	fmt.Fprintf(&b, "Pull request #%d by @%s, %s: %s into %s\n",
		number, pr.GetUser().GetLogin(), state, pr.GetHead().GetRef(), pr.GetBase().GetRef())
	if labels := labelNames(pr.Labels); len(labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(labels, ", "))
	}
	writeThread(&b, pr.GetBody(), comments)
	return &domain.Text{Body: b.String(), Format: domain.TextMarkdown}, nil
}
