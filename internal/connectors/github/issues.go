package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// issueID identifies an issue or pull request; both share a number space.
func issueID(repo repoRef, number int) string {
	return fmt.Sprintf("%s#%d", repo.FullName(), number)
}

// listIssues returns the issues, excluding pull requests, updated after
// since. A zero since lists all of them.
func listIssues(ctx context.Context, client *Client, repo repoRef, since time.Time) ([]domain.SyncItem, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "asc",
		Since:       since,
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	issues, err := client.ListIssues(ctx, repo.Owner, repo.Name, opts)

	var items []domain.SyncItem
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		items = append(items, threadItem(repo, typeIssue, issue.GetNumber(), issue.GetTitle(),
			issue.GetHTMLURL(), issue.GetUpdatedAt().Time))
	}
	if err != nil {
		return items, fmt.Errorf("list issues of %s: %w", repo.FullName(), err)
	}
	return items, nil
}

func threadItem(repo repoRef, kind string, number int, title, htmlURL string, updated time.Time) domain.SyncItem {
	item := domain.SyncItem{
		OriginalID: issueID(repo, number),
		UUID:       issueID(repo, number),
		Title:      title,
		MimeType:   "text/markdown",
		Metadata: map[string]string{
			domain.MetaType: kind,
			domain.MetaPath: fmt.Sprintf("%s/%s/%d", repo.FullName(), kind, number),
			domain.MetaURI:  htmlURL,
			metaRepo:        repo.FullName(),
			metaNumber:      strconv.Itoa(number),
		},
		Status: domain.StatusPending,
	}
	if !updated.IsZero() {
		item.ModifiedGMT = domain.NowGMT(updated)
	}
	return item
}

// renderIssue fetches an issue with its comments as markdown.
func renderIssue(ctx context.Context, client *Client, repo repoRef, number int) (*domain.Text, error) {
	issue, err := client.GetIssue(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return nil, err
	}
	comments, err := client.ListComments(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", issue.GetTitle())
	fmt.Fprintf(&b, "Issue #%d opened by @%s, %s\n", number, issue.GetUser().GetLogin(), issue.GetState())
	if labels := labelNames(issue.Labels); len(labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(labels, ", "))
	}
	writeThread(&b, issue.GetBody(), comments)
	return &domain.Text{Body: b.String(), Format: domain.TextMarkdown}, nil
}

func writeThread(b *strings.Builder, body string, comments []*gh.IssueComment) {
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	for _, c := range comments {
		fmt.Fprintf(b, "\n---\n\n@%s, %s:\n\n%s\n",
			c.GetUser().GetLogin(), c.GetCreatedAt().Format(time.RFC3339), c.GetBody())
	}
}

func labelNames(labels []*gh.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.GetName())
	}
	return names
}
