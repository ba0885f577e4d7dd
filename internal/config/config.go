package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cexll/triagebot/internal/github"
	"github.com/cexll/triagebot/internal/triage"
)

// Config holds all configuration for the triage bot
type Config struct {
	// Server settings
	Port        int
	DeliveryTTL time.Duration

	// GitHub credentials: either a token or GitHub App settings
	GitHubToken      string
	GitHubAppID      string
	GitHubPrivateKey string
	GitHubAPIURL     string

	// Triage settings
	TriageTeam         triage.Team
	PendingTriageLabel string
	MaxAssigneesPrefix string
	LockReason         string

	// Logging
	LogLevel  string
	LogFormat string

	// ConfigFile is the YAML file the values were merged from, if any
	ConfigFile string
}

// File is the optional YAML configuration. Secrets are read from the
// environment only.
type File struct {
	Port               int      `yaml:"port"`
	DeliveryTTLMinutes int      `yaml:"delivery_ttl_minutes"`
	GitHubAPIURL       string   `yaml:"github_api_url"`
	TriageTeam         []string `yaml:"triage_team"`
	Labels             struct {
		PendingTriage      string `yaml:"pending_triage"`
		MaxAssigneesPrefix string `yaml:"max_assignees_prefix"`
	} `yaml:"labels"`
	LockReason string `yaml:"lock_reason"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
}

// lockReasons are the values the GitHub lock endpoint accepts.
var lockReasons = []string{"off-topic", "too heated", "resolved", "spam"}

// Load loads configuration from CONFIG_FILE (if set) and the environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv("CONFIG_FILE"))
}

// LoadFrom loads configuration from the YAML file at path, then applies
// environment overrides. An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	file := &File{}
	if path != "" {
		var err error
		if file, err = ReadFile(path); err != nil {
			return nil, err
		}
	}

	team := getEnvFirst([]string{"TRIAGE_TEAM_USERNAMES", "INPUT_TRIAGE-TEAM-USERNAMES"}, "")
	teamList := triage.ParseTeam(team)
	if team == "" {
		teamList = triage.ParseTeam(strings.Join(file.TriageTeam, ","))
	}

	cfg := &Config{
		Port:               getEnvInt("PORT", orInt(file.Port, 8000)),
		DeliveryTTL:        time.Duration(getEnvInt("DELIVERY_TTL_MINUTES", orInt(file.DeliveryTTLMinutes, 10))) * time.Minute,
		GitHubToken:        getEnvFirst([]string{"GITHUB_TOKEN", "INPUT_TOKEN"}, ""),
		GitHubAppID:        os.Getenv("GITHUB_APP_ID"),
		GitHubPrivateKey:   normalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY")),
		GitHubAPIURL:       getEnv("GITHUB_API_URL", orString(file.GitHubAPIURL, github.DefaultAPIURL)),
		TriageTeam:         teamList,
		PendingTriageLabel: getEnv("PENDING_TRIAGE_LABEL", orString(file.Labels.PendingTriage, triage.DefaultPendingTriageLabel)),
		MaxAssigneesPrefix: getEnv("MAX_ASSIGNEES_LABEL_PREFIX", orString(file.Labels.MaxAssigneesPrefix, triage.DefaultMaxAssigneesPrefix)),
		LockReason:         getEnv("LOCK_REASON", orString(file.LockReason, triage.DefaultLockReason)),
		LogLevel:           getEnv("LOG_LEVEL", orString(file.LogLevel, "info")),
		LogFormat:          getEnv("LOG_FORMAT", orString(file.LogFormat, "text")),
		ConfigFile:         path,
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ReadFile parses a YAML configuration file.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	file := &File{}
	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return file, nil
}

// Labels returns the label scheme.
func (c *Config) Labels() triage.Labels {
	return triage.Labels{
		PendingTriage:      c.PendingTriageLabel,
		MaxAssigneesPrefix: c.MaxAssigneesPrefix,
	}
}

// Settings returns the per-run triage settings.
func (c *Config) Settings() triage.Settings {
	return triage.Settings{
		Team:       c.TriageTeam,
		Labels:     c.Labels(),
		LockReason: c.LockReason,
	}
}

// TokenProvider returns the credentials the REST client authenticates with.
// A token takes precedence over GitHub App settings.
func (c *Config) TokenProvider() github.TokenProvider {
	if c.GitHubToken != "" {
		return github.StaticToken(c.GitHubToken)
	}
	return &github.AppAuth{
		AppID:      c.GitHubAppID,
		PrivateKey: c.GitHubPrivateKey,
		BaseURL:    c.GitHubAPIURL,
	}
}

func normalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		trimmed = strings.TrimPrefix(trimmed, "\"")
		trimmed = strings.TrimSuffix(trimmed, "\"")
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		trimmed = strings.TrimPrefix(trimmed, "'")
		trimmed = strings.TrimSuffix(trimmed, "'")
	}

	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	trimmed = strings.ReplaceAll(trimmed, "\r", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\r", "")
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}

	return trimmed
}

// validate checks that all required configuration is present
func (c *Config) validate() error {
	if err := c.validateGitHubCredentials(); err != nil {
		return err
	}
	if err := c.Labels().Validate(); err != nil {
		return err
	}
	if !slices.Contains(lockReasons, c.LockReason) {
		return fmt.Errorf("invalid lock reason: %s (must be one of %s)", c.LockReason, strings.Join(lockReasons, ", "))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.LogFormat)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if c.DeliveryTTL <= 0 {
		return fmt.Errorf("DELIVERY_TTL_MINUTES must be greater than 0")
	}
	return nil
}

func (c *Config) validateGitHubCredentials() error {
	if c.GitHubToken != "" {
		return nil
	}
	if c.GitHubAppID == "" {
		return fmt.Errorf("GITHUB_TOKEN or GITHUB_APP_ID is required")
	}
	if c.GitHubPrivateKey == "" {
		return fmt.Errorf("GITHUB_PRIVATE_KEY is required with GITHUB_APP_ID")
	}
	return nil
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first non-empty variable among keys
func getEnvFirst(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func orString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}
