package handlers

import (
	"context"
	"errors"
	"slices"
	"strings"

	gh "github.com/google/go-github/v66/github"
	"github.com/sirupsen/logrus"

	"github.com/cexll/triagebot/internal/triage"
)

// Assign handles "/assign" (self-assign) and "/assign @a @b" (triage members
// assigning others) within the issue's max-assignees quota.
type Assign struct{}

func (*Assign) Name() string { return "assign" }

func (*Assign) Handle(ctx context.Context, run *triage.Run) error {
	c, cmd, err := matchComment(ctx, run, func(cmd triage.Command) bool { return cmd.Has(triage.CmdAssign) })
	if err != nil || c == nil {
		return err
	}
	issue, open, err := openIssue(ctx, run)
	if err != nil || !open {
		return err
	}

	labels := run.Settings.Labels
	remaining := labels.RemainingSlots(issue)
	if remaining < 1 {
		run.Log.WithField("max_assignees", labels.MaxAssignees(issue)).Info("max-assignees reached, can't assign more")
		return nil
	}

	want, ok := targets(run, cmd, triage.CmdAssign)
	if !ok {
		return nil
	}
	if len(want) > remaining {
		run.Log.WithField("dropped", want[remaining:]).Info("Quota reached, dropping extra assignees")
		want = want[:remaining]
	}

	updated, resp, err := run.Client.Issues.AddAssignees(ctx, run.Owner(), run.Repo(), run.Number(), want)
	if err := triage.Classify("add assignees", resp, err); err != nil {
		run.Log.WithError(err).WithField("assignees", want).Error("Failed to assign")
		return errors.Join(err, reactLogged(ctx, run, c, ReactionRejected))
	}

	before := triage.Assignees(issue)
	after := assigneesOf(updated)
	var added, skipped []string
	for _, login := range want {
		switch {
		case containsFold(before, login):
			// already assigned
		case containsFold(after, login):
			added = append(added, login)
		default:
			skipped = append(skipped, login)
		}
	}
	entry := run.Log.WithField("assignees", added)
	if len(skipped) > 0 {
		entry = entry.WithField("not_assignable", skipped)
	}
	entry.Info("Assigned to the issue")

	return reactLogged(ctx, run, c, ReactionApproved)
}

// targets resolves who a command acts on: the actor for the bare form, or
// the mentioned users when a triage member names them.
func targets(run *triage.Run, cmd triage.Command, name string) ([]string, bool) {
	if cmd.Is(name) {
		if run.Event.Actor == "" {
			run.Log.Warn("Event has no actor, cannot act on self")
			return nil, false
		}
		return []string{run.Event.Actor}, true
	}
	if !run.IsTriageMember() {
		run.Log.WithField("actor", run.Event.Actor).Info("Only triage team members can name other users")
		return nil, false
	}
	mentions := cmd.Mentions(name)
	if len(mentions) == 0 {
		run.Log.Info("Command names no users, no action needed")
		return nil, false
	}
	return mentions, true
}

func reactLogged(ctx context.Context, run *triage.Run, c *gh.IssueComment, content string) error {
	if err := react(ctx, run, c.GetID(), content); err != nil {
		run.Log.WithError(err).WithFields(logrus.Fields{"comment": c.GetID(), "reaction": content}).Error("Failed to react to comment")
		return err
	}
	return nil
}

func assigneesOf(issue *gh.Issue) []string {
	if issue == nil {
		return nil
	}
	return triage.Assignees(issue)
}

func containsFold(list []string, login string) bool {
	return slices.ContainsFunc(list, func(s string) bool { return strings.EqualFold(s, login) })
}
