package handlers

import (
	"context"

	"github.com/cexll/triagebot/internal/triage"
)

// Approve lets a triage member take an issue out of triage with "/approve".
// The pending-triage label is removed and the issue is released right away
// instead of waiting for the unlabeled delivery.
type Approve struct {
	Removal *TriageRemoval
}

func (*Approve) Name() string { return "approve" }

func (a *Approve) Handle(ctx context.Context, run *triage.Run) error {
	isApprove := func(c triage.Command) bool { return c.Is(triage.CmdApprove) }
	if !run.Command().Is(triage.CmdApprove) {
		return nil
	}
	if !run.IsTriageMember() {
		run.Log.WithField("actor", run.Event.Actor).Info("Not a member of triage team, no action needed")
		return nil
	}

	c, _, err := matchComment(ctx, run, isApprove)
	if err != nil || c == nil {
		return err
	}
	issue, open, err := openIssue(ctx, run)
	if err != nil || !open {
		return err
	}

	pending := run.Settings.Labels.PendingTriage
	if triage.HasLabel(issue, pending) {
		run.Log.WithField("label", pending).Info("Removing pending-triage label")
		resp, err := run.Client.Issues.RemoveLabelForIssue(ctx, run.Owner(), run.Repo(), run.Number(), pending)
		if err := triage.Classify("remove label", resp, err); err != nil {
			run.Log.WithError(err).Error("Failed to remove label")
			return err
		}
		run.Log.Info("Label removed successfully")
	}

	removal := a.Removal
	if removal == nil {
		removal = &TriageRemoval{}
	}
	return removal.release(ctx, run, issue)
}
