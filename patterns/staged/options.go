package staged

import (
	"time"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/providers/observability"
)

// DefaultContextLimit caps the rolling context quoted in each agent prompt.
const DefaultContextLimit = 1000

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	model          string
	contextLimit   int
	dataLimit      int
	maxConcurrency int
	agentTimeout   time.Duration
	listener       Listener
	observer       observability.Provider
}

func defaultConfig() engineConfig {
	return engineConfig{
		contextLimit: DefaultContextLimit,
		dataLimit:    dataset.DefaultContentLimit,
	}
}

// WithModel sets the model requested for every agent call. Empty leaves the
// choice to the provider.
func WithModel(model string) Option {
	return func(config *engineConfig) {
		config.model = model
	}
}

// WithContextLimit caps, in runes, the rolling context handed to each agent.
// The most recent text is kept. Values below one are ignored.
func WithContextLimit(limit int) Option {
	return func(config *engineConfig) {
		if limit > 0 {
			config.contextLimit = limit
		}
	}
}

// WithDataLimit caps each data entry's content in the Input Data block.
func WithDataLimit(limit int) Option {
	return func(config *engineConfig) {
		if limit > 0 {
			config.dataLimit = limit
		}
	}
}

// WithMaxConcurrency limits how many agents of one phase stream at once.
// Zero, the default, runs a whole phase at once.
//
// Example:
//
//	staged.NewEngine(provider,
//	    staged.WithMaxConcurrency(2), // at most 2 agents streaming at once
//	)
func WithMaxConcurrency(limit int) Option {
	return func(config *engineConfig) {
		config.maxConcurrency = limit
	}
}

// WithAgentTimeout bounds each agent call. Zero means no timeout.
func WithAgentTimeout(timeout time.Duration) Option {
	return func(config *engineConfig) {
		config.agentTimeout = timeout
	}
}

// WithListener registers a progress listener.
func WithListener(listener Listener) Option {
	return func(config *engineConfig) {
		config.listener = listener
	}
}

// WithObserver attaches an observability provider. Without one the engine
// falls back to the provider stored in the run context, if any.
func WithObserver(provider observability.Provider) Option {
	return func(config *engineConfig) {
		config.observer = provider
	}
}
