// Package config resolves stageflow settings from defaults, a YAML file, a
// .env file and the process environment, in increasing precedence.
// Command-line flags are layered on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/patterns/staged"
	"github.com/leofalp/stageflow/providers/ai/openai"
)

// ErrInvalid wraps every validation and parse failure.
var ErrInvalid = errors.New("stageflow: invalid configuration")

// Environment variable names.
const (
	EnvConfig         = "STAGEFLOW_CONFIG"
	EnvAPIKey         = "STAGEFLOW_API_KEY"
	EnvBaseURL        = "STAGEFLOW_BASE_URL"
	EnvModel          = "STAGEFLOW_MODEL"
	EnvMinAgents      = "STAGEFLOW_MIN_AGENTS"
	EnvMaxAgents      = "STAGEFLOW_MAX_AGENTS"
	EnvContextLimit   = "STAGEFLOW_CONTEXT_LIMIT"
	EnvMaxConcurrency = "STAGEFLOW_MAX_CONCURRENCY"
	EnvAgentTimeout   = "STAGEFLOW_AGENT_TIMEOUT"
	EnvMaxRetries     = "STAGEFLOW_MAX_RETRIES"
	EnvSummarize      = "STAGEFLOW_SUMMARIZE"
	EnvDatabaseURL    = "STAGEFLOW_DATABASE_URL"
	EnvLogFormat      = "STAGEFLOW_LOG_FORMAT"
	EnvLogLevel       = "STAGEFLOW_LOG_LEVEL"

	// The provider's own variables are honored as fallbacks.
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
)

// DefaultMaxRetries is how often a rate-limited or failing call to open a
// stream is retried.
const DefaultMaxRetries = 2

// DefaultEnvFile is read when present; a missing file is not an error.
const DefaultEnvFile = ".env"

// Config is the resolved configuration.
type Config struct {
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseUrl"`
	Model          string        `yaml:"model"`
	MinAgents      int           `yaml:"minAgents"`
	MaxAgents      int           `yaml:"maxAgents"`
	ContextLimit   int           `yaml:"contextLimit"`
	MaxConcurrency int           `yaml:"maxConcurrency"`
	AgentTimeout   time.Duration `yaml:"agentTimeout"`
	MaxRetries     int           `yaml:"maxRetries"`
	Summarize      bool          `yaml:"summarize"`
	DatabaseURL    string        `yaml:"databaseUrl"`
	LogFormat      string        `yaml:"logFormat"`
	LogLevel       string        `yaml:"logLevel"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:      openai.DefaultBaseURL,
		Model:        openai.DefaultModel,
		MinAgents:    plan.DefaultMinAgents,
		MaxAgents:    plan.DefaultMaxAgents,
		ContextLimit: staged.DefaultContextLimit,
		MaxRetries:   DefaultMaxRetries,
		Summarize:    true,
	}
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// ConfigPath is the YAML file. Empty falls back to STAGEFLOW_CONFIG;
	// when both are empty no file is read.
	ConfigPath string
	// EnvFile is the dotenv file. Empty means DefaultEnvFile, which may be
	// absent; an explicit file must exist.
	EnvFile string
	// LookupEnv reads the process environment. Nil means os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Load resolves the configuration and validates it.
func Load(opts LoadOptions) (Config, error) {
	lookupEnv := opts.LookupEnv
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	cfg := Default()

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath, _ = lookupEnv(EnvConfig)
	}
	if configPath != "" {
		if err := cfg.mergeFile(configPath); err != nil {
			return Config{}, err
		}
	}

	dotenv, err := readEnvFile(opts.EnvFile)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if value, ok := lookupEnv(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}
	if err := cfg.mergeEnv(lookup); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return nil
}

func readEnvFile(path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}
	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read env file: %w", err)
	}
	return values, nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	first := func(keys ...string) (string, bool) {
		for _, key := range keys {
			if value, ok := lookup(key); ok && value != "" {
				return value, true
			}
		}
		return "", false
	}

	if value, ok := first(EnvAPIKey, EnvOpenAIAPIKey); ok {
		c.APIKey = value
	}
	if value, ok := first(EnvBaseURL, EnvOpenAIBaseURL); ok {
		c.BaseURL = value
	}
	if value, ok := first(EnvModel); ok {
		c.Model = value
	}
	if value, ok := first(EnvDatabaseURL); ok {
		c.DatabaseURL = value
	}
	if value, ok := first(EnvLogFormat); ok {
		c.LogFormat = value
	}
	if value, ok := first(EnvLogLevel); ok {
		c.LogLevel = value
	}

	ints := []struct {
		key    string
		target *int
	}{
		{EnvMinAgents, &c.MinAgents},
		{EnvMaxAgents, &c.MaxAgents},
		{EnvContextLimit, &c.ContextLimit},
		{EnvMaxConcurrency, &c.MaxConcurrency},
		{EnvMaxRetries, &c.MaxRetries},
	}
	for _, field := range ints {
		value, ok := first(field.key)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, field.key, value)
		}
		*field.target = parsed
	}

	if value, ok := first(EnvAgentTimeout); ok {
		timeout, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a duration", ErrInvalid, EnvAgentTimeout, value)
		}
		c.AgentTimeout = timeout
	}
	if value, ok := first(EnvSummarize); ok {
		summarize, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, EnvSummarize, value)
		}
		c.Summarize = summarize
	}
	return nil
}

// Validate checks bounds and the base URL. Every error wraps ErrInvalid.
func (c Config) Validate() error {
	var problems []string
	if c.MinAgents < 1 {
		problems = append(problems, "minAgents must be at least 1")
	}
	if c.MaxAgents < c.MinAgents {
		problems = append(problems, "maxAgents must not be below minAgents")
	}
	if c.ContextLimit < 0 {
		problems = append(problems, "contextLimit must not be negative")
	}
	if c.MaxConcurrency < 0 {
		problems = append(problems, "maxConcurrency must not be negative")
	}
	if c.MaxRetries < 0 {
		problems = append(problems, "maxRetries must not be negative")
	}
	if c.AgentTimeout < 0 {
		problems = append(problems, "agentTimeout must not be negative")
	}
	if strings.TrimSpace(c.Model) == "" {
		problems = append(problems, "model must not be empty")
	}
	if parsed, err := url.Parse(c.BaseURL); err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		problems = append(problems, fmt.Sprintf("baseUrl %q must be an absolute http(s) URL", c.BaseURL))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Redacted returns a copy safe to print: the API key keeps only its last
// four characters and the database URL loses its password.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		visible := c.APIKey
		if len(visible) > 4 {
			visible = visible[len(visible)-4:]
		}
		c.APIKey = "****" + visible
	}
	if parsed, err := url.Parse(c.DatabaseURL); err == nil && parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "****")
			c.DatabaseURL = parsed.String()
		}
	}
	return c
}
