package handlers

import (
	"context"

	gh "github.com/google/go-github/v66/github"

	"github.com/cexll/triagebot/internal/github"
	"github.com/cexll/triagebot/internal/triage"
)

// Bootstrap puts newly opened issues into triage: it adds the pending-triage
// label and a default quota label, then locks the conversation until a
// triage member approves it.
type Bootstrap struct{}

func (*Bootstrap) Name() string { return "bootstrap" }

func (*Bootstrap) Handle(ctx context.Context, run *triage.Run) error {
	if !run.Event.Is(github.EventIssues, github.ActionOpened) || run.Event.IsPR {
		return nil
	}

	issue, err := run.Cache.Issue(ctx)
	if err != nil {
		return err
	}
	if triage.IsPullRequest(issue) {
		return nil
	}

	labels := run.Settings.Labels
	if !triage.HasLabel(issue, labels.PendingTriage) {
		if err := addLabel(ctx, run, labels.PendingTriage); err != nil {
			return err
		}
	}
	if !labels.HasQuotaLabel(issue) {
		if err := addLabel(ctx, run, labels.QuotaLabel(triage.DefaultMaxAssignees)); err != nil {
			return err
		}
	}

	if triage.IsLocked(issue) {
		run.Log.Info("Issue is already locked")
		return nil
	}
	resp, err := run.Client.Issues.Lock(ctx, run.Owner(), run.Repo(), run.Number(), &gh.LockIssueOptions{
		LockReason: run.Settings.LockReason,
	})
	if err := triage.Classify("lock issue", resp, err); err != nil {
		run.Log.WithError(err).Error("Failed to lock issue")
		return err
	}
	run.Log.WithField("lock_reason", run.Settings.LockReason).Info("Issue locked successfully")
	return nil
}

func addLabel(ctx context.Context, run *triage.Run, name string) error {
	_, resp, err := run.Client.Issues.AddLabelsToIssue(ctx, run.Owner(), run.Repo(), run.Number(), []string{name})
	if err := triage.Classify("add label", resp, err); err != nil {
		run.Log.WithError(err).WithField("label", name).Error("Failed to add label")
		return err
	}
	run.Log.WithField("label", name).Info("Label added")
	return nil
}
