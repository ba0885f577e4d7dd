package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/cexll/triagebot/internal/bot"
	"github.com/cexll/triagebot/internal/config"
	"github.com/cexll/triagebot/internal/logging"
)

const version = "v1.0.0"

func main() {
	// 1. Load configuration (stdout is the transport, so logs go to stderr)
	logrus.SetOutput(os.Stderr)
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("[Triage MCP] Failed to load configuration: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		logrus.Fatalf("[Triage MCP] %v", err)
	}

	logger.Infof("[Triage MCP] Starting triage MCP server %s", version)
	logger.Infof("[Triage MCP] Triage team: %v", cfg.TriageTeam)

	// 2. Create MCP server
	server := newServer(&tools{
		bot: bot.New(cfg.Settings(), bot.TokenClients(cfg.TokenProvider(), cfg.GitHubAPIURL, nil), logger),
		log: logger,
	})

	// 3. Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("[Triage MCP] Received shutdown signal")
		cancel()
	}()

	// 4. Start server with stdio transport
	logger.Info("[Triage MCP] Starting on stdio transport...")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		logger.Fatalf("[Triage MCP] Server error: %v", err)
	}
	logger.Info("[Triage MCP] Server stopped gracefully")
}

func newServer(t *tools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "issue-triage-server",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "issue_triage_status",
		Description: "Show whether an issue is pending triage, locked, and how many assignee slots remain",
	}, t.HandleStatus)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_triage_command",
		Description: "Post a triage slash-command (/approve, /update, /assign, /unassign) on an issue and run the bot on it",
	}, t.HandleCommand)
	t.log.Info("[Triage MCP] Registered tools: issue_triage_status, run_triage_command")
	return server
}
