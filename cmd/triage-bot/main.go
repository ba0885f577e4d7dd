package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cexll/triagebot/internal/bot"
	"github.com/cexll/triagebot/internal/config"
	"github.com/cexll/triagebot/internal/github"
	"github.com/cexll/triagebot/internal/logging"
	"github.com/cexll/triagebot/internal/webhook"
)

var (
	loadDotEnv                   = godotenv.Load
	loadConfig                   = config.LoadFrom
	newClients                   = defaultClients
	defaultListenServe           = http.ListenAndServe
	logOutput          io.Writer = os.Stderr
)

func defaultClients(cfg *config.Config) bot.ClientFactory {
	return bot.TokenClients(cfg.TokenProvider(), cfg.GitHubAPIURL, nil)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(defaultListenServe).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[Triage Bot] %v\n", err)
		os.Exit(1)
	}
}

type globalOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand(serve func(string, http.Handler) error) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "triage-bot",
		Short:         "Moderate GitHub issues with triage labels and slash-commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default $CONFIG_FILE)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level, overrides LOG_LEVEL")

	root.AddCommand(newRunCommand(opts), newServeCommand(opts, serve))
	return root
}

// setup loads configuration and builds the logger and bot shared by all commands.
func setup(opts *globalOptions) (*config.Config, *logrus.Logger, *bot.Bot, error) {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	path := opts.configPath
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, logOutput)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, bot.New(cfg.Settings(), newClients(cfg), logger), nil
}

func newRunCommand(opts *globalOptions) *cobra.Command {
	var eventName, eventPath, actor string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process the single event of a GitHub Actions job",
		Long: `Run reads the delivery GitHub Actions provides through GITHUB_EVENT_NAME,
GITHUB_EVENT_PATH and GITHUB_ACTOR, dispatches it to every handler and exits
non-zero when any handler failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, b, err := setup(opts)
			if err != nil {
				return err
			}

			event, err := github.LoadActionsEvent(orEnv(eventName, "GITHUB_EVENT_NAME"), orEnv(eventPath, "GITHUB_EVENT_PATH"), orEnv(actor, "GITHUB_ACTOR"))
			if errors.Is(err, github.ErrUnsupportedEvent) {
				logger.WithError(err).Info("[Triage Bot] Event ignored")
				return nil
			}
			if err != nil {
				return err
			}

			result, err := b.Run(cmd.Context(), event)
			if err != nil {
				return err
			}
			if result.Failed() {
				return fmt.Errorf("run failed: %w", result.Err())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eventName, "event-name", "", "event name (default $GITHUB_EVENT_NAME)")
	cmd.Flags().StringVar(&eventPath, "event-path", "", "delivery JSON file (default $GITHUB_EVENT_PATH)")
	cmd.Flags().StringVar(&actor, "actor", "", "acting user (default $GITHUB_ACTOR)")
	return cmd
}

func newServeCommand(opts *globalOptions, serve func(string, http.Handler) error) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve GitHub webhooks, one run per delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, b, err := setup(opts)
			if err != nil {
				return err
			}

			handler := webhook.NewHandler(b, cfg.DeliveryTTL, logger)
			router := webhook.NewRouter(handler)

			addr := fmt.Sprintf(":%d", cfg.Port)
			logger.Infof("[Triage Bot] Server listening on %s", addr)
			logger.Infof("[Triage Bot] Webhook endpoint: http://localhost%s/webhook", addr)
			logger.Infof("[Triage Bot] Triage team: %v", cfg.TriageTeam)
			if cfg.ConfigFile != "" {
				logger.Infof("[Triage Bot] Config file: %s", cfg.ConfigFile)
			}

			if err := serve(addr, router); err != nil {
				return fmt.Errorf("server failed to start: %w", err)
			}
			return nil
		},
	}
}

func orEnv(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}
