package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/cexll/triagebot/internal/bot"
	"github.com/cexll/triagebot/internal/github"
	ghtesting "github.com/cexll/triagebot/internal/github/testing"
	"github.com/cexll/triagebot/internal/triage"
)

func newTools(t *testing.T, srv *ghtesting.Server, team ...string) *tools {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	settings := triage.DefaultSettings()
	settings.Team = team
	clients := func(ctx context.Context, repo string) (*github.Client, error) {
		return github.NewClient(srv.GitHubClient()), nil
	}
	return &tools{bot: bot.New(settings, clients, logger), log: logger}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("expected one content item, got %+v", res)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestHandleStatus(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()
	srv.AddIssue(ghtesting.Issue{Number: 5, Locked: true, Labels: []string{"pending-triage"}})

	res, _, err := newTools(t, srv).HandleStatus(context.Background(), nil, StatusParams{Repo: "o/r", Number: 5})
	if err != nil {
		t.Fatalf("HandleStatus returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var status triage.Status
	if err := json.Unmarshal([]byte(resultText(t, res)), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Locked || !status.PendingTriage || status.MaxAssignees != 1 || status.RemainingSlots != 1 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestHandleStatus_DefaultRepo(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "o/r")
	srv := ghtesting.NewServer()
	defer srv.Close()
	srv.AddIssue(ghtesting.Issue{Number: 6})

	res, _, err := newTools(t, srv).HandleStatus(context.Background(), nil, StatusParams{Number: 6})
	if err != nil || res.IsError {
		t.Fatalf("HandleStatus: err=%v result=%+v", err, res)
	}
}

func TestHandleStatus_Errors(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()
	tl := newTools(t, srv)

	tests := []struct {
		name   string
		params StatusParams
		want   string
	}{
		{"invalid number", StatusParams{Repo: "o/r", Number: 0}, "invalid issue number"},
		{"missing issue", StatusParams{Repo: "o/r", Number: 404}, "Failed to read issue"},
		{"bad repo", StatusParams{Repo: "nope", Number: 1}, "Failed to read issue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := tl.HandleStatus(context.Background(), nil, tt.params)
			if err != nil {
				t.Fatalf("tool errors are reported in the result, got %v", err)
			}
			if !res.IsError || !strings.Contains(resultText(t, res), tt.want) {
				t.Fatalf("result = %+v, want error containing %q", res, tt.want)
			}
		})
	}
}

func TestHandleCommand_Assigns(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()
	srv.AddIssue(ghtesting.Issue{Number: 7})

	res, _, err := newTools(t, srv).HandleCommand(context.Background(), nil, CommandParams{
		Repo:    "o/r",
		Number:  7,
		Actor:   "alice",
		Command: "/assign",
	})
	if err != nil {
		t.Fatalf("HandleCommand returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var summary commandSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.CommentID == 0 || summary.Failed {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := srv.Issue(7).Assignees; len(got) != 1 || got[0] != "alice" {
		t.Fatalf("assignees = %v, want [alice]", got)
	}
}

func TestHandleCommand_ReportsHandlerFailure(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()
	srv.AddIssue(ghtesting.Issue{Number: 7})
	srv.Fail(http.MethodPost, "/repos/o/r/issues/7/assignees", http.StatusForbidden)

	res, _, err := newTools(t, srv).HandleCommand(context.Background(), nil, CommandParams{
		Repo:    "o/r",
		Number:  7,
		Actor:   "alice",
		Command: "/assign",
	})
	if err != nil {
		t.Fatalf("HandleCommand returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected a failed run to be reported as a tool error")
	}

	var summary commandSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if !summary.Failed || summary.Errors["assign"] == "" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestHandleCommand_RejectsNonCommand(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()

	res, _, err := newTools(t, srv).HandleCommand(context.Background(), nil, CommandParams{
		Repo:    "o/r",
		Number:  7,
		Actor:   "alice",
		Command: "please assign me",
	})
	if err != nil {
		t.Fatalf("HandleCommand returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for a non-command")
	}
	if len(srv.Calls()) != 0 {
		t.Fatalf("unexpected calls: %+v", srv.Calls())
	}
}

func TestNewServer(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()

	logger, hook := logtest.NewNullLogger()
	tl := newTools(t, srv)
	tl.log = logger

	if newServer(tl) == nil {
		t.Fatal("expected server")
	}
	if entry := hook.LastEntry(); entry == nil || !strings.HasPrefix(entry.Message, "[Triage MCP] Registered tools") {
		t.Fatalf("unexpected log entry: %+v", entry)
	}
}

func TestHandlers_LogThroughLogrus(t *testing.T) {
	srv := ghtesting.NewServer()
	defer srv.Close()

	logger, hook := logtest.NewNullLogger()
	tl := newTools(t, srv)
	tl.log = logger

	_, _, _ = tl.HandleStatus(context.Background(), nil, StatusParams{Repo: "o/r", Number: 404})
	_, _, _ = tl.HandleCommand(context.Background(), nil, CommandParams{Repo: "o/r", Number: 1, Actor: "a", Command: "hello"})

	entries := hook.AllEntries()
	if len(entries) != 4 {
		t.Fatalf("expected 4 log entries, got %d", len(entries))
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Message, "[Triage MCP] ") {
			t.Fatalf("message %q lacks the [Triage MCP] prefix", e.Message)
		}
	}
	if entries[1].Level != logrus.WarnLevel || entries[1].Data[logrus.ErrorKey] == nil {
		t.Fatalf("status failure should be a warning with an error field: %+v", entries[1])
	}
}
