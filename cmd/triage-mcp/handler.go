package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/cexll/triagebot/internal/bot"
)

// StatusParams defines the parameters for issue_triage_status
type StatusParams struct {
	Repo   string `json:"repo,omitempty" jsonschema:"Repository as owner/name, defaults to GITHUB_REPOSITORY"`
	Number int    `json:"number" jsonschema:"Issue or pull request number"`
}

// CommandParams defines the parameters for run_triage_command
type CommandParams struct {
	Repo    string `json:"repo,omitempty" jsonschema:"Repository as owner/name, defaults to GITHUB_REPOSITORY"`
	Number  int    `json:"number" jsonschema:"Issue or pull request number"`
	Actor   string `json:"actor" jsonschema:"GitHub login the command is issued for"`
	Command string `json:"command" jsonschema:"Slash-command such as /approve, /update or /assign @user"`
}

type commandSummary struct {
	CommentID int64             `json:"comment_id"`
	Failed    bool              `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// tools serves the MCP tools on top of a bot.
type tools struct {
	bot *bot.Bot
	log logrus.FieldLogger
}

// HandleStatus reports the triage state of an issue without changing it.
func (t *tools) HandleStatus(ctx context.Context, req *mcp.CallToolRequest, params StatusParams) (*mcp.CallToolResult, any, error) {
	if params.Number <= 0 {
		return errorResult(fmt.Sprintf("invalid issue number: %d", params.Number)), nil, nil
	}
	repo := repoOrDefault(params.Repo)
	t.log.Infof("[Triage MCP] Reading triage status of %s#%d", repo, params.Number)

	status, err := t.bot.Status(ctx, repo, params.Number)
	if err != nil {
		t.log.WithError(err).Warn("[Triage MCP] Status failed")
		return errorResult(fmt.Sprintf("Failed to read issue: %v", err)), nil, nil
	}
	return jsonResult(status)
}

// HandleCommand posts a slash-command and dispatches it for the given actor.
func (t *tools) HandleCommand(ctx context.Context, req *mcp.CallToolRequest, params CommandParams) (*mcp.CallToolResult, any, error) {
	repo := repoOrDefault(params.Repo)
	t.log.Infof("[Triage MCP] Running %q on %s#%d as %s", params.Command, repo, params.Number, params.Actor)

	res, err := t.bot.Command(ctx, bot.CommandRequest{
		Repo:   repo,
		Number: params.Number,
		Actor:  params.Actor,
		Body:   params.Command,
	})
	if err != nil {
		t.log.WithError(err).Warn("[Triage MCP] Command failed")
		return errorResult(fmt.Sprintf("Failed to run command: %v", err)), nil, nil
	}

	summary := commandSummary{CommentID: res.CommentID, Failed: res.Result.Failed()}
	for _, o := range res.Result.Outcomes {
		if o.Err != nil {
			if summary.Errors == nil {
				summary.Errors = make(map[string]string)
			}
			summary.Errors[o.Handler] = o.Err.Error()
		}
	}

	result, _, err := jsonResult(summary)
	if err != nil {
		return nil, nil, err
	}
	result.IsError = summary.Failed
	return result, nil, nil
}

func repoOrDefault(repo string) string {
	if repo != "" {
		return repo
	}
	return os.Getenv("GITHUB_REPOSITORY")
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
