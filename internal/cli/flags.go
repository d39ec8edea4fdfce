package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/leofalp/stageflow/internal/config"
)

// globalFlags are the persistent flags. They override every other
// configuration layer, but only when set on the command line.
type globalFlags struct {
	configPath     string
	envFile        string
	model          string
	baseURL        string
	minAgents      int
	maxAgents      int
	contextLimit   int
	maxConcurrency int
	agentTimeout   time.Duration
	maxRetries     int
	noSummary      bool
	databaseURL    string
	logLevel       string
	logFormat      string
}

func (f *globalFlags) register(cmd *cobra.Command) {
	defaults := config.Default()
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "YAML config file (default $"+config.EnvConfig+")")
	pf.StringVar(&f.envFile, "env-file", "", "dotenv file (default ./.env when present)")
	pf.StringVar(&f.model, "model", defaults.Model, "model used for every call")
	pf.StringVar(&f.baseURL, "base-url", defaults.BaseURL, "chat completions API root")
	pf.IntVar(&f.minAgents, "min-agents", defaults.MinAgents, "smallest plan accepted from the architect")
	pf.IntVar(&f.maxAgents, "max-agents", defaults.MaxAgents, "largest plan accepted from the architect")
	pf.IntVar(&f.contextLimit, "context-limit", defaults.ContextLimit, "characters of accumulated output shown to each stage")
	pf.IntVar(&f.maxConcurrency, "concurrency", defaults.MaxConcurrency, "agents running at once within a stage (0 = all)")
	pf.DurationVar(&f.agentTimeout, "agent-timeout", defaults.AgentTimeout, "bound on each agent call (0 = none)")
	pf.IntVar(&f.maxRetries, "max-retries", defaults.MaxRetries, "retries of a rate-limited or failing call (0 = none)")
	pf.BoolVar(&f.noSummary, "no-summary", false, "skip the conclusion call after a run")
	pf.StringVar(&f.databaseURL, "database-url", "", "postgres:// URL, sqlite:// path or \"memory\" for saved plans")
	pf.StringVar(&f.logLevel, "log-level", "", "trace, debug, info, warn or error")
	pf.StringVar(&f.logFormat, "log-format", "", "compact, pretty or json")
}

func (f *globalFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("model") {
		cfg.Model = f.model
	}
	if changed("base-url") {
		cfg.BaseURL = f.baseURL
	}
	if changed("min-agents") {
		cfg.MinAgents = f.minAgents
	}
	if changed("max-agents") {
		cfg.MaxAgents = f.maxAgents
	}
	if changed("context-limit") {
		cfg.ContextLimit = f.contextLimit
	}
	if changed("concurrency") {
		cfg.MaxConcurrency = f.maxConcurrency
	}
	if changed("agent-timeout") {
		cfg.AgentTimeout = f.agentTimeout
	}
	if changed("max-retries") {
		cfg.MaxRetries = f.maxRetries
	}
	if changed("no-summary") {
		cfg.Summarize = !f.noSummary
	}
	if changed("database-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
	return cfg.Validate()
}
