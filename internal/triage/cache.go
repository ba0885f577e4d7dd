package triage

import (
	"context"
	"sync"

	gh "github.com/google/go-github/v66/github"

	"github.com/cexll/triagebot/internal/github"
)

// Cache memoizes the issue and comment of a single run. The first caller of
// Issue or Comment performs the remote read; concurrent callers block on the
// same in-flight read and receive its result. Results, including errors, are
// never refreshed, so a mutation made later in the run is not reflected.
type Cache struct {
	issues github.IssuesService
	event  *github.Context

	issueOnce sync.Once
	issue     *gh.Issue
	issueErr  error

	commentOnce sync.Once
	comment     *gh.IssueComment
	commentErr  error
}

// NewCache creates an empty cache for one run.
func NewCache(issues github.IssuesService, event *github.Context) *Cache {
	return &Cache{issues: issues, event: event}
}

// Issue returns the issue or pull request the event refers to.
func (c *Cache) Issue(ctx context.Context) (*gh.Issue, error) {
	c.issueOnce.Do(func() {
		c.issue, c.issueErr = c.fetchIssue(ctx)
	})
	return c.issue, c.issueErr
}

// Comment returns the comment the event refers to.
func (c *Cache) Comment(ctx context.Context) (*gh.IssueComment, error) {
	c.commentOnce.Do(func() {
		c.comment, c.commentErr = c.fetchComment(ctx)
	})
	return c.comment, c.commentErr
}

func (c *Cache) fetchIssue(ctx context.Context) (*gh.Issue, error) {
	number := c.event.IssueNumber
	if number == 0 {
		return nil, ErrNoIssue
	}
	issue, resp, err := c.issues.Get(ctx, c.event.Repository.Owner, c.event.Repository.Name, number)
	if err := Classify("get issue", resp, err); err != nil {
		return nil, &FetchError{Entity: "issue", ID: int64(number), Err: err}
	}
	if issue == nil {
		return nil, &FetchError{Entity: "issue", ID: int64(number), Err: ErrNoIssue}
	}
	return issue, nil
}

func (c *Cache) fetchComment(ctx context.Context) (*gh.IssueComment, error) {
	if c.event.TriggerComment == nil || c.event.TriggerComment.ID == 0 {
		return nil, ErrNoComment
	}
	id := c.event.TriggerComment.ID
	comment, resp, err := c.issues.GetComment(ctx, c.event.Repository.Owner, c.event.Repository.Name, id)
	if err := Classify("get comment", resp, err); err != nil {
		return nil, &FetchError{Entity: "comment", ID: id, Err: err}
	}
	if comment == nil {
		return nil, &FetchError{Entity: "comment", ID: id, Err: ErrNoComment}
	}
	return comment, nil
}
