package handlers

import (
	"context"

	"github.com/cexll/triagebot/internal/triage"
)

// Update brings a pull request branch up to date with its base on "/update".
type Update struct{}

func (*Update) Name() string { return "update" }

func (*Update) Handle(ctx context.Context, run *triage.Run) error {
	if !run.Event.IsPR {
		return nil
	}
	c, _, err := matchComment(ctx, run, func(cmd triage.Command) bool { return cmd.Is(triage.CmdUpdate) })
	if err != nil || c == nil {
		return err
	}

	issue, open, err := openIssue(ctx, run)
	if err != nil || !open {
		return err
	}
	if !triage.IsPullRequest(issue) {
		return nil
	}

	run.Log.Info("Updating PR")
	// GitHub answers 202 and merges in the background; Classify treats that as success.
	_, resp, err := run.Client.PullRequests.UpdateBranch(ctx, run.Owner(), run.Repo(), run.Number(), nil)
	if err := triage.Classify("update branch", resp, err); err != nil {
		run.Log.WithError(err).Error("Failed to update PR")
		return err
	}
	run.Log.Info("PR update requested")

	if err := react(ctx, run, c.GetID(), ReactionApproved); err != nil {
		run.Log.WithError(err).Error("Failed to add thumbs up")
		return err
	}
	return nil
}
