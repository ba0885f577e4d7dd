package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v66/github"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com/"

// IssuesService is the subset of go-github's IssuesService the bot calls.
type IssuesService interface {
	Get(ctx context.Context, owner, repo string, number int) (*gh.Issue, *gh.Response, error)
	GetComment(ctx context.Context, owner, repo string, commentID int64) (*gh.IssueComment, *gh.Response, error)
	AddLabelsToIssue(ctx context.Context, owner, repo string, number int, labels []string) ([]*gh.Label, *gh.Response, error)
	RemoveLabelForIssue(ctx context.Context, owner, repo string, number int, label string) (*gh.Response, error)
	Lock(ctx context.Context, owner, repo string, number int, opts *gh.LockIssueOptions) (*gh.Response, error)
	Unlock(ctx context.Context, owner, repo string, number int) (*gh.Response, error)
	AddAssignees(ctx context.Context, owner, repo string, number int, assignees []string) (*gh.Issue, *gh.Response, error)
	RemoveAssignees(ctx context.Context, owner, repo string, number int, assignees []string) (*gh.Issue, *gh.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *gh.IssueComment) (*gh.IssueComment, *gh.Response, error)
}

// ReactionsService is the subset of go-github's ReactionsService the bot calls.
type ReactionsService interface {
	CreateIssueCommentReaction(ctx context.Context, owner, repo string, id int64, content string) (*gh.Reaction, *gh.Response, error)
}

// PullRequestsService is the subset of go-github's PullRequestsService the bot calls.
type PullRequestsService interface {
	UpdateBranch(ctx context.Context, owner, repo string, number int, opts *gh.PullRequestBranchUpdateOptions) (*gh.PullRequestBranchUpdateResponse, *gh.Response, error)
}

// Client bundles the REST services a run needs. It is pre-authenticated.
type Client struct {
	Issues       IssuesService
	Reactions    ReactionsService
	PullRequests PullRequestsService
}

// NewClient wraps a go-github client.
func NewClient(c *gh.Client) *Client {
	return &Client{
		Issues:       c.Issues,
		Reactions:    c.Reactions,
		PullRequests: c.PullRequests,
	}
}

// NewTokenClient creates a go-github client authenticated with token against apiURL.
// An empty apiURL selects the public GitHub API.
func NewTokenClient(httpClient *http.Client, token, apiURL string) (*gh.Client, error) {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	if apiURL = strings.TrimSpace(apiURL); apiURL != "" && apiURL != DefaultAPIURL {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		base, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
		}
		client.BaseURL = base
	}
	return client, nil
}
