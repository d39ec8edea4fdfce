package orchestrator

import (
	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/patterns/staged"
	"github.com/leofalp/stageflow/providers/observability"
)

// Option configures an Orchestrator.
type Option func(*config)

type config struct {
	minAgents     int
	maxAgents     int
	summarize     bool
	model         string
	listener      staged.Listener
	observer      observability.Provider
	engineOptions []staged.Option
}

func defaultConfig() config {
	return config{
		minAgents: plan.DefaultMinAgents,
		maxAgents: plan.DefaultMaxAgents,
		summarize: true,
	}
}

// WithAgentBounds sets how many agents a normalized plan holds.
func WithAgentBounds(minAgents, maxAgents int) Option {
	return func(c *config) {
		c.minAgents = minAgents
		c.maxAgents = maxAgents
	}
}

// WithSummary turns the conclusion call on or off. It is on by default.
func WithSummary(enabled bool) Option {
	return func(c *config) {
		c.summarize = enabled
	}
}

// WithModel sets the model of every call the orchestrator makes.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithListener receives engine events plus the conclusion events.
func WithListener(listener staged.Listener) Option {
	return func(c *config) {
		c.listener = listener
	}
}

// WithObserver attaches an observability provider to the orchestrator and
// its engine.
func WithObserver(provider observability.Provider) Option {
	return func(c *config) {
		c.observer = provider
	}
}

// WithEngineOptions forwards options to the staged engine, e.g.
// staged.WithMaxConcurrency or staged.WithAgentTimeout.
func WithEngineOptions(opts ...staged.Option) Option {
	return func(c *config) {
		c.engineOptions = append(c.engineOptions, opts...)
	}
}
