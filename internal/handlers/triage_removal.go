package handlers

import (
	"context"

	gh "github.com/google/go-github/v66/github"

	"github.com/cexll/triagebot/internal/github"
	"github.com/cexll/triagebot/internal/github/comment"
	"github.com/cexll/triagebot/internal/triage"
)

// TriageRemoval unlocks an issue once its pending-triage label is removed and
// tells contributors it is open for work.
type TriageRemoval struct{}

func (*TriageRemoval) Name() string { return "triage-removal" }

func (t *TriageRemoval) Handle(ctx context.Context, run *triage.Run) error {
	if !run.Event.Is(github.EventIssues, github.ActionUnlabeled) {
		return nil
	}
	if run.Event.GetLabelName() != run.Settings.Labels.PendingTriage {
		return nil
	}

	issue, open, err := openIssue(ctx, run)
	if err != nil || !open {
		return err
	}
	return t.release(ctx, run, issue)
}

// release unlocks issue and posts the unlock comment. issue is the state read
// at the start of the run; when it is not locked there is nothing to do.
func (t *TriageRemoval) release(ctx context.Context, run *triage.Run, issue *gh.Issue) error {
	if !triage.IsLocked(issue) {
		run.Log.Info("Issue is not locked, no action needed")
		return nil
	}

	run.Log.Info("Issue is locked, unlocking")
	resp, err := run.Client.Issues.Unlock(ctx, run.Owner(), run.Repo(), run.Number())
	if err := triage.Classify("unlock issue", resp, err); err != nil {
		run.Log.WithError(err).Error("Issue unlocking failed")
		return err
	}
	run.Log.Info("Issue unlocked successfully")

	body := comment.FormatUnlocked(triage.Assignees(issue))
	_, resp, err = run.Client.Issues.CreateComment(ctx, run.Owner(), run.Repo(), run.Number(), &gh.IssueComment{Body: gh.String(body)})
	if err := triage.Classify("create comment", resp, err); err != nil {
		run.Log.WithError(err).Error("Comment adding failed")
		return err
	}
	run.Log.Info("Commented successfully")
	return nil
}
