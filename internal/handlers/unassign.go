package handlers

import (
	"context"
	"errors"

	"github.com/cexll/triagebot/internal/triage"
)

// Unassign handles "/unassign" (self) and "/unassign @a" (triage members).
type Unassign struct{}

func (*Unassign) Name() string { return "unassign" }

func (*Unassign) Handle(ctx context.Context, run *triage.Run) error {
	c, cmd, err := matchComment(ctx, run, func(cmd triage.Command) bool { return cmd.Has(triage.CmdUnassign) })
	if err != nil || c == nil {
		return err
	}
	if _, open, err := openIssue(ctx, run); err != nil || !open {
		return err
	}

	want, ok := targets(run, cmd, triage.CmdUnassign)
	if !ok {
		return nil
	}

	updated, resp, err := run.Client.Issues.RemoveAssignees(ctx, run.Owner(), run.Repo(), run.Number(), want)
	if err := triage.Classify("remove assignees", resp, err); err != nil {
		run.Log.WithError(err).WithField("assignees", want).Error("Failed to unassign")
		return errors.Join(err, reactLogged(ctx, run, c, ReactionRejected))
	}

	after := assigneesOf(updated)
	var removed []string
	for _, login := range want {
		if !containsFold(after, login) {
			removed = append(removed, login)
		}
	}
	run.Log.WithField("assignees", removed).Info("Unassigned from the issue")

	return reactLogged(ctx, run, c, ReactionApproved)
}
