package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"github.com/sirupsen/logrus"

	"github.com/cexll/triagebot/internal/dispatcher"
	"github.com/cexll/triagebot/internal/github"
	"github.com/cexll/triagebot/internal/github/comment"
	"github.com/cexll/triagebot/internal/handlers"
	"github.com/cexll/triagebot/internal/triage"
)

// ClientFactory returns an authenticated REST client for repo ("owner/name").
type ClientFactory func(ctx context.Context, repo string) (*github.Client, error)

// TokenClients builds clients from a token provider. Installation tokens are
// per repository, so a client is created for every call.
func TokenClients(tokens github.TokenProvider, apiURL string, httpClient *http.Client) ClientFactory {
	return func(ctx context.Context, repo string) (*github.Client, error) {
		token, err := tokens.Token(ctx, repo)
		if err != nil {
			return nil, fmt.Errorf("failed to get token for %s: %w", repo, err)
		}
		client, err := github.NewTokenClient(httpClient, token, apiURL)
		if err != nil {
			return nil, err
		}
		return github.NewClient(client), nil
	}
}

// Bot turns deliveries into runs and dispatches them.
type Bot struct {
	settings   triage.Settings
	clients    ClientFactory
	dispatcher *dispatcher.Dispatcher
	logger     logrus.FieldLogger
}

// New creates a bot with the default handler set.
func New(settings triage.Settings, clients ClientFactory, logger logrus.FieldLogger) *Bot {
	return NewWithDispatcher(settings, clients, dispatcher.New(handlers.Default()), logger)
}

// NewWithDispatcher creates a bot around an existing dispatcher.
func NewWithDispatcher(settings triage.Settings, clients ClientFactory, d *dispatcher.Dispatcher, logger logrus.FieldLogger) *Bot {
	return &Bot{
		settings:   settings,
		clients:    clients,
		dispatcher: d,
		logger:     logger,
	}
}

// Run processes one delivery with a fresh entity cache. The returned error is
// non-nil only when the run could not start; handler failures are reported
// through the Result.
func (b *Bot) Run(ctx context.Context, event *github.Context) (*dispatcher.Result, error) {
	if event == nil {
		return nil, errors.New("bot run: event is nil")
	}
	client, err := b.clients(ctx, event.GetRepositoryFullName())
	if err != nil {
		return nil, err
	}

	run := triage.NewRun(event, client, b.settings, b.logger)
	if event.DeliveryID != "" {
		run.Log = run.Log.WithField("delivery", event.DeliveryID)
	}
	run.Log.Info("Processing event")

	return b.dispatcher.Dispatch(ctx, run), nil
}

// Status reads an issue and summarises its triage state without changing it.
func (b *Bot) Status(ctx context.Context, repo string, number int) (triage.Status, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return triage.Status{}, err
	}
	client, err := b.clients(ctx, repo)
	if err != nil {
		return triage.Status{}, err
	}

	issue, resp, err := client.Issues.Get(ctx, owner, name, number)
	if err := triage.Classify("get issue", resp, err); err != nil {
		return triage.Status{}, &triage.FetchError{Entity: "issue", ID: int64(number), Err: err}
	}
	return triage.Describe(issue, b.settings.Labels), nil
}

// CommandRequest describes a slash-command issued on behalf of actor.
type CommandRequest struct {
	Repo   string
	Number int
	Actor  string
	Body   string
}

// CommandResult reports the posted comment and the run it triggered.
type CommandResult struct {
	CommentID int64
	Result    *dispatcher.Result
}

// Command posts req.Body as a comment and dispatches it as if actor had
// written it. The comment gives reactions a target and leaves an audit trail.
// It is tagged with comment.RelayMarker so its webhook echo is ignored.
func (b *Bot) Command(ctx context.Context, req CommandRequest) (*CommandResult, error) {
	owner, name, err := splitRepo(req.Repo)
	if err != nil {
		return nil, err
	}
	if req.Number <= 0 {
		return nil, fmt.Errorf("invalid issue number: %d", req.Number)
	}
	if strings.TrimSpace(req.Actor) == "" {
		return nil, errors.New("actor is required")
	}
	body := strings.TrimSpace(req.Body)
	if !strings.HasPrefix(body, "/") {
		return nil, fmt.Errorf("not a slash-command: %q", req.Body)
	}

	client, err := b.clients(ctx, req.Repo)
	if err != nil {
		return nil, err
	}

	issue, resp, err := client.Issues.Get(ctx, owner, name, req.Number)
	if err := triage.Classify("get issue", resp, err); err != nil {
		return nil, &triage.FetchError{Entity: "issue", ID: int64(req.Number), Err: err}
	}
	posted, resp, err := client.Issues.CreateComment(ctx, owner, name, req.Number, &gh.IssueComment{Body: gh.String(comment.TagRelayed(body))})
	if err := triage.Classify("create comment", resp, err); err != nil {
		return nil, err
	}

	event := &github.Context{
		EventName:   github.EventIssueComment,
		EventAction: github.ActionCreated,
		Repository:  github.Repository{Owner: owner, Name: name, FullName: owner + "/" + name},
		Actor:       req.Actor,
		IsPR:        issue.IsPullRequest(),
		IssueNumber: req.Number,
		IssueState:  issue.GetState(),
		TriggerComment: &github.Comment{
			ID:       posted.GetID(),
			Body:     body,
			User:     req.Actor,
			UserType: "User",
		},
	}

	run := triage.NewRun(event, client, b.settings, b.logger)
	run.Log.WithField("comment", posted.GetID()).Info("Dispatching command")
	return &CommandResult{CommentID: posted.GetID(), Result: b.dispatcher.Dispatch(ctx, run)}, nil
}

func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q, want owner/name", repo)
	}
	return owner, name, nil
}
