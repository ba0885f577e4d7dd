package bot

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cexll/triagebot/internal/github"
	"github.com/cexll/triagebot/internal/github/comment"
	ghtesting "github.com/cexll/triagebot/internal/github/testing"
	"github.com/cexll/triagebot/internal/triage"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func fakeClients(srv *ghtesting.Server) ClientFactory {
	return func(ctx context.Context, repo string) (*github.Client, error) {
		return github.NewClient(srv.GitHubClient()), nil
	}
}

func newBot(srv *ghtesting.Server, team ...string) *Bot {
	settings := triage.DefaultSettings()
	settings.Team = team
	return New(settings, fakeClients(srv), quietLogger())
}

func TestRun_DispatchesDelivery(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()
	srv.AddIssue(ghtesting.Issue{Number: 3})

	payload := []byte(`{
		"action": "opened",
		"issue": {"number": 3, "state": "open"},
		"repository": {"name": "r", "full_name": "o/r", "owner": {"login": "o"}},
		"sender": {"login": "reporter"}
	}`)
	event, err := github.ParseWebhookEvent("issues", payload)
	require.NoError(t, err)
	event.DeliveryID = "d-1"

	result, err := newBot(srv).Run(context.Background(), event)
	require.NoError(t, err)
	assert.False(t, result.Failed())

	got := srv.Issue(3)
	assert.True(t, got.Locked)
	assert.Equal(t, []string{"pending-triage", "max-assignees-1"}, got.Labels)
}

func TestRun_ReportsHandlerFailure(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()
	srv.AddIssue(ghtesting.Issue{Number: 3})
	srv.Fail(http.MethodPut, "/repos/o/r/issues/3/lock", http.StatusForbidden)

	event := &github.Context{
		EventName:   github.EventIssues,
		EventAction: github.ActionOpened,
		Repository:  github.Repository{Owner: "o", Name: "r", FullName: "o/r"},
		IssueNumber: 3,
	}
	result, err := newBot(srv).Run(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, []string{"bootstrap"}, result.FailedHandlers())
}

func TestRun_ClientFailure(t *testing.T) {
	b := New(triage.DefaultSettings(), func(ctx context.Context, repo string) (*github.Client, error) {
		return nil, errors.New("no installation")
	}, quietLogger())

	_, err := b.Run(context.Background(), &github.Context{Repository: github.Repository{FullName: "o/r"}})
	assert.ErrorContains(t, err, "no installation")

	_, err = b.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()
	srv.AddIssue(ghtesting.Issue{Number: 8, Locked: true, Labels: []string{"pending-triage", "max-assignees-3"}, Assignees: []string{"a"}})

	status, err := newBot(srv).Status(context.Background(), "o/r", 8)
	require.NoError(t, err)
	assert.Equal(t, triage.Status{
		Number:         8,
		State:          "open",
		Locked:         true,
		PendingTriage:  true,
		Labels:         []string{"pending-triage", "max-assignees-3"},
		Assignees:      []string{"a"},
		MaxAssignees:   3,
		RemainingSlots: 2,
	}, status)
	assert.Empty(t, srv.Writes())

	_, err = newBot(srv).Status(context.Background(), "o/r", 404)
	var fetchErr *triage.FetchError
	assert.True(t, errors.As(err, &fetchErr))

	_, err = newBot(srv).Status(context.Background(), "not-a-repo", 1)
	assert.Error(t, err)
}

func TestCommand_PostsAndDispatches(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()
	srv.AddIssue(ghtesting.Issue{Number: 2, Labels: []string{"max-assignees-2"}})

	res, err := newBot(srv, "lead").Command(context.Background(), CommandRequest{
		Repo:   "o/r",
		Number: 2,
		Actor:  "lead",
		Body:   "/assign @a @b @c",
	})
	require.NoError(t, err)
	require.NoError(t, res.Result.Err())

	assert.Equal(t, int64(9001), res.CommentID)
	assert.Equal(t, []string{"a", "b"}, srv.Issue(2).Assignees)
	assert.Len(t, srv.CallsTo(http.MethodPost, "/repos/o/r/issues/comments/9001/reactions"), 1)
}

func TestCommand_EchoIsNotRunAgain(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()
	srv.AddIssue(ghtesting.Issue{Number: 2, Labels: []string{"max-assignees-2"}})
	b := newBot(srv)

	res, err := b.Command(context.Background(), CommandRequest{Repo: "o/r", Number: 2, Actor: "alice", Body: "/assign"})
	require.NoError(t, err)
	require.NoError(t, res.Result.Err())
	assert.Equal(t, []string{"alice"}, srv.Issue(2).Assignees)

	posted := srv.CallsTo(http.MethodPost, "/repos/o/r/issues/2/comments")
	require.Len(t, posted, 1)
	body, _ := posted[0].Body["body"].(string)
	assert.True(t, comment.IsRelayed(body), "posted body %q", body)
	writes := len(srv.Writes())

	// With a personal token the comment comes back authored by the token
	// owner, a plain User account, while a slot is still free.
	echo, err := github.ParseWebhookEvent("issue_comment", []byte(`{
		"action": "created",
		"issue": {"number": 2, "state": "open"},
		"comment": {"id": 9001, "body": `+strconv.Quote(body)+`, "user": {"login": "token-owner", "type": "User"}},
		"repository": {"name": "r", "full_name": "o/r", "owner": {"login": "o"}},
		"sender": {"login": "token-owner"}
	}`))
	require.NoError(t, err)

	result, err := b.Run(context.Background(), echo)
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Len(t, srv.Writes(), writes, "echo must not trigger any write")
	assert.Equal(t, []string{"alice"}, srv.Issue(2).Assignees)
}

func TestCommand_RejectsBadRequests(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()
	b := newBot(srv)

	for _, req := range []CommandRequest{
		{Repo: "o", Number: 1, Actor: "a", Body: "/assign"},
		{Repo: "o/r", Number: 0, Actor: "a", Body: "/assign"},
		{Repo: "o/r", Number: 1, Actor: "", Body: "/assign"},
		{Repo: "o/r", Number: 1, Actor: "a", Body: "assign me"},
	} {
		_, err := b.Command(context.Background(), req)
		assert.Error(t, err, "%+v", req)
	}
	assert.Empty(t, srv.Calls())
}

func TestTokenClients(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"number": 1, "state": "open"}`))
	}))
	defer srv.Close()

	clients := TokenClients(github.StaticToken("ghp_abc"), srv.URL, srv.Client())
	client, err := clients(context.Background(), "o/r")
	require.NoError(t, err)

	issue, _, err := client.Issues.Get(context.Background(), "o", "r", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, issue.GetNumber())
	assert.Equal(t, "Bearer ghp_abc", auth)

	_, err = TokenClients(github.StaticToken(""), srv.URL, nil)(context.Background(), "o/r")
	assert.Error(t, err)
}
