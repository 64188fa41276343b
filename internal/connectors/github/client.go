package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	perPage = 100
)

// Client wraps the go-github client with rate limiting and error mapping.
type Client struct {
	gh          *gh.Client
	rateLimiter *RateLimiter
}

// NewClient creates a client authenticating with ts. A non-empty baseURL
// selects a GitHub Enterprise Server or a test server.
func NewClient(ts oauth2.TokenSource, baseURL string, transport http.RoundTripper) (*Client, error) {
	if transport == nil {
		transport = http.DefaultTransport
	}
	httpClient := &http.Client{
		Timeout:   DefaultTimeout,
		Transport: &oauth2.Transport{Source: ts, Base: transport},
	}

	client := gh.NewClient(httpClient)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github url: %w", err)
		}
		client.BaseURL = u
		client.UploadURL = u
	}
	return &Client{gh: client, rateLimiter: NewRateLimiter()}, nil
}

// NewClientWithToken creates a client for a static access token.
func NewClientWithToken(token, baseURL string, transport http.RoundTripper) (*Client, error) {
	return NewClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), baseURL, transport)
}

// enterpriseURL returns the REST root of a GitHub Enterprise Server.
func enterpriseURL(host string) string {
	host = strings.TrimSuffix(host, "/")
	if strings.HasSuffix(host, "/api/v3") {
		return host
	}
	return host + "/api/v3"
}

// ListAllAccessibleRepos returns every repository the authenticated user
// can access: owned, collaborator and organization member repositories.
func (c *Client) ListAllAccessibleRepos(ctx context.Context) ([]*gh.Repository, error) {
	var allRepos []*gh.Repository

	opts := &gh.RepositoryListByAuthenticatedUserOptions{
		Visibility:  "all",
		Affiliation: "owner,collaborator,organization_member",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return allRepos, fmt.Errorf("rate limit wait: %w", err)
		}

		repos, resp, err := c.gh.Repositories.ListByAuthenticatedUser(ctx, opts)
		c.update(resp)
		if err != nil {
			return allRepos, c.wrapError(err, "list repos")
		}
		allRepos = append(allRepos, repos...)

		if resp.NextPage == 0 {
			return allRepos, nil
		}
		opts.Page = resp.NextPage
	}
}

// GetRepository fetches a single repository.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*gh.Repository, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	repository, resp, err := c.gh.Repositories.Get(ctx, owner, repo)
	c.update(resp)
	if err != nil {
		return nil, c.wrapError(err, "get repo")
	}
	return repository, nil
}

// GetTree fetches the entire tree for a repository recursively. An empty
// repository has no tree and yields nil.
func (c *Client) GetTree(ctx context.Context, owner, repo, sha string) (*gh.Tree, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	tree, resp, err := c.gh.Git.GetTree(ctx, owner, repo, sha, true)
	c.update(resp)
	if err != nil {
		err = c.wrapError(err, "get tree")
		if statusCode(err) == http.StatusConflict {
			return nil, nil
		}
		return nil, err
	}
	return tree, nil
}

// GetBlob fetches the raw content of a blob by its SHA.
func (c *Client) GetBlob(ctx context.Context, owner, repo, sha string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	data, resp, err := c.gh.Git.GetBlobRaw(ctx, owner, repo, sha)
	c.update(resp)
	if err != nil {
		return nil, c.wrapError(err, "get blob")
	}
	return data, nil
}

// ListCommits lists the commits of branch made after since.
func (c *Client) ListCommits(ctx context.Context, owner, repo, branch string, since time.Time) ([]*gh.RepositoryCommit, error) {
	var all []*gh.RepositoryCommit

	opts := &gh.CommitsListOptions{
		SHA:         branch,
		Since:       since,
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return all, fmt.Errorf("rate limit wait: %w", err)
		}

		commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, repo, opts)
		c.update(resp)
		if err != nil {
			return all, c.wrapError(err, "list commits")
		}
		all = append(all, commits...)

		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// GetCommit fetches a commit with its changed files.
func (c *Client) GetCommit(ctx context.Context, owner, repo, sha string) (*gh.RepositoryCommit, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	commit, resp, err := c.gh.Repositories.GetCommit(ctx, owner, repo, sha, &gh.ListOptions{PerPage: perPage})
	c.update(resp)
	if err != nil {
		return nil, c.wrapError(err, "get commit")
	}
	return commit, nil
}

// ListIssues lists issues for a repository. Pull requests are included,
// as the API returns them on the same endpoint.
func (c *Client) ListIssues(ctx context.Context, owner, repo string, opts *gh.IssueListByRepoOptions) ([]*gh.Issue, error) {
	var allIssues []*gh.Issue

	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return allIssues, fmt.Errorf("rate limit wait: %w", err)
		}

		issues, resp, err := c.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		c.update(resp)
		if err != nil {
			return allIssues, c.wrapError(err, "list issues")
		}
		allIssues = append(allIssues, issues...)

		if resp.NextPage == 0 {
			return allIssues, nil
		}
		opts.ListOptions.Page = resp.NextPage
	}
}

// GetIssue fetches one issue.
func (c *Client) GetIssue(ctx context.Context, owner, repo string, number int) (*gh.Issue, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	issue, resp, err := c.gh.Issues.Get(ctx, owner, repo, number)
	c.update(resp)
	if err != nil {
		return nil, c.wrapError(err, "get issue")
	}
	return issue, nil
}

// ListComments lists the conversation comments of an issue or pull request.
func (c *Client) ListComments(ctx context.Context, owner, repo string, number int) ([]*gh.IssueComment, error) {
	var all []*gh.IssueComment

	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return all, fmt.Errorf("rate limit wait: %w", err)
		}

		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		c.update(resp)
		if err != nil {
			return all, c.wrapError(err, "list comments")
		}
		all = append(all, comments...)

		if resp.NextPage == 0 {
			return all, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListPullRequests lists pull requests, most recently updated first, and
// stops at the first one not updated after since.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo string, since time.Time) ([]*gh.PullRequest, error) {
	var allPRs []*gh.PullRequest

	opts := &gh.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	for {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return allPRs, fmt.Errorf("rate limit wait: %w", err)
		}

		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		c.update(resp)
		if err != nil {
			return allPRs, c.wrapError(err, "list pull requests")
		}
		for _, pr := range prs {
			if !since.IsZero() && !pr.GetUpdatedAt().After(since) {
				return allPRs, nil
			}
			allPRs = append(allPRs, pr)
		}

		if resp.NextPage == 0 {
			return allPRs, nil
		}
		opts.Page = resp.NextPage
	}
}

// GetPullRequest fetches one pull request.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*gh.PullRequest, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	c.update(resp)
	if err != nil {
		return nil, c.wrapError(err, "get pull request")
	}
	return pr, nil
}

// ValidateCredentials checks the token by fetching the authenticated user.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	_, resp, err := c.gh.Users.Get(ctx, "")
	c.update(resp)
	if err != nil {
		return c.wrapError(err, "validate credentials")
	}
	return nil
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

func (c *Client) update(resp *gh.Response) {
	if resp == nil || resp.Response == nil {
		return
	}
	c.rateLimiter.UpdateFromResponse(resp.Response)
}
