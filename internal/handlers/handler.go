package handlers

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v66/github"

	"github.com/cexll/triagebot/internal/github"
	"github.com/cexll/triagebot/internal/github/validation"
	"github.com/cexll/triagebot/internal/triage"
)

// Handler reacts to one kind of event. Handle must be a no-op, returning nil,
// when the run does not match its preconditions. A non-nil error means a
// remote call failed and the run is marked failed.
type Handler interface {
	// Name identifies the handler in logs and results.
	Name() string

	// Handle checks preconditions against run and performs the handler's
	// remote mutations.
	Handle(ctx context.Context, run *triage.Run) error
}

// Reaction contents used on command comments.
const (
	ReactionApproved = "+1"
	ReactionRejected = "-1"
)

// Registry holds handlers in registration order.
type Registry struct {
	handlers []Handler
	byName   map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Handler)}
}

// Default returns a registry with every built-in handler.
func Default() *Registry {
	removal := &TriageRemoval{}

	r := NewRegistry()
	r.Register(&Bootstrap{})
	r.Register(&Approve{Removal: removal})
	r.Register(removal)
	r.Register(&Update{})
	r.Register(&Assign{})
	r.Register(&Unassign{})
	return r
}

// Register adds h, replacing any handler with the same name.
func (r *Registry) Register(h Handler) {
	if _, exists := r.byName[h.Name()]; exists {
		for i, existing := range r.handlers {
			if existing.Name() == h.Name() {
				r.handlers[i] = h
			}
		}
	} else {
		r.handlers = append(r.handlers, h)
	}
	r.byName[h.Name()] = h
}

// Get returns the handler registered under name.
func (r *Registry) Get(name string) (Handler, error) {
	h, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("handler not found: %s", name)
	}
	return h, nil
}

// All returns the handlers in registration order.
func (r *Registry) All() []Handler {
	out := make([]Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// matchComment performs the checks every comment-driven handler shares. The
// payload is checked first so that non-matching deliveries cost no remote
// read; the fetched comment then has the final say. A nil comment with a nil
// error means the handler does not apply.
func matchComment(ctx context.Context, run *triage.Run, match func(triage.Command) bool) (*gh.IssueComment, triage.Command, error) {
	ev := run.Event
	if !ev.Is(github.EventIssueComment, github.ActionCreated) {
		return nil, triage.Command{}, nil
	}
	if validation.ShouldIgnoreComment(ev.TriggerComment) {
		return nil, triage.Command{}, nil
	}
	if !match(run.Command()) {
		return nil, triage.Command{}, nil
	}

	comment, err := run.Cache.Comment(ctx)
	if err != nil {
		return nil, triage.Command{}, err
	}
	cmd := triage.ParseCommand(comment.GetBody())
	if !match(cmd) {
		run.Log.Debug("Comment no longer carries the command, no action needed")
		return nil, triage.Command{}, nil
	}
	return comment, cmd, nil
}

// openIssue fetches the run's issue and reports whether it is still open.
func openIssue(ctx context.Context, run *triage.Run) (*gh.Issue, bool, error) {
	issue, err := run.Cache.Issue(ctx)
	if err != nil {
		return nil, false, err
	}
	if triage.IsClosed(issue) {
		run.Log.Info("Issue is closed, no action needed")
		return issue, false, nil
	}
	return issue, true, nil
}

func react(ctx context.Context, run *triage.Run, commentID int64, content string) error {
	_, resp, err := run.Client.Reactions.CreateIssueCommentReaction(ctx, run.Owner(), run.Repo(), commentID, content)
	return triage.Classify("create reaction", resp, err)
}
