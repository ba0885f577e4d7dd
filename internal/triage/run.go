package triage

import (
	gh "github.com/google/go-github/v66/github"
	"github.com/sirupsen/logrus"

	"github.com/cexll/triagebot/internal/github"
)

// DefaultLockReason is the reason given when locking new issues.
const DefaultLockReason = "spam"

// Settings is the per-deployment configuration a run needs.
type Settings struct {
	Team       Team
	Labels     Labels
	LockReason string
}

// DefaultSettings returns the stock label scheme with an empty triage team.
func DefaultSettings() Settings {
	return Settings{Labels: DefaultLabels(), LockReason: DefaultLockReason}
}

// Run is everything handlers share while processing one delivery. A Run is
// never reused: each delivery gets a new one with an empty Cache.
type Run struct {
	Event    *github.Context
	Client   *github.Client
	Cache    *Cache
	Settings Settings
	Log      *logrus.Entry
}

// NewRun wires a run for event.
func NewRun(event *github.Context, client *github.Client, settings Settings, logger logrus.FieldLogger) *Run {
	if settings.LockReason == "" {
		settings.LockReason = DefaultLockReason
	}
	return &Run{
		Event:    event,
		Client:   client,
		Cache:    NewCache(client.Issues, event),
		Settings: settings,
		Log: logger.WithFields(logrus.Fields{
			"event":  event.GetEventName(),
			"action": event.GetEventAction(),
			"repo":   event.GetRepositoryFullName(),
			"issue":  event.GetIssueNumber(),
		}),
	}
}

// Owner returns the repository owner login.
func (r *Run) Owner() string { return r.Event.Repository.Owner }

// Repo returns the repository name.
func (r *Run) Repo() string { return r.Event.Repository.Name }

// Number returns the issue number.
func (r *Run) Number() int { return r.Event.IssueNumber }

// Command returns the slash-command carried by the event's comment payload.
// Handlers use it to match before any fetch; the fetched comment remains the
// source of truth for the final decision.
func (r *Run) Command() Command {
	return ParseCommand(r.Event.GetTriggerCommentBody())
}

// IsTriageMember reports whether the run's actor is on the triage team.
func (r *Run) IsTriageMember() bool {
	return r.Settings.Team.Contains(r.Event.Actor)
}

// Status is a read-only summary of an issue's triage state.
type Status struct {
	Number         int      `json:"number"`
	State          string   `json:"state"`
	Locked         bool     `json:"locked"`
	PullRequest    bool     `json:"pull_request"`
	PendingTriage  bool     `json:"pending_triage"`
	Labels         []string `json:"labels"`
	Assignees      []string `json:"assignees"`
	MaxAssignees   int      `json:"max_assignees"`
	RemainingSlots int      `json:"remaining_slots"`
}

// Describe summarises issue under the given label scheme.
func Describe(issue *gh.Issue, labels Labels) Status {
	names := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		names = append(names, l.GetName())
	}
	return Status{
		Number:         issue.GetNumber(),
		State:          issue.GetState(),
		Locked:         IsLocked(issue),
		PullRequest:    IsPullRequest(issue),
		PendingTriage:  HasLabel(issue, labels.PendingTriage),
		Labels:         names,
		Assignees:      Assignees(issue),
		MaxAssignees:   labels.MaxAssignees(issue),
		RemainingSlots: labels.RemainingSlots(issue),
	}
}
