// Package cli is the stageflow command-line front end.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/leofalp/stageflow/internal/config"
	"github.com/leofalp/stageflow/providers/ai"
	"github.com/leofalp/stageflow/providers/ai/openai"
	"github.com/leofalp/stageflow/providers/ai/retry"
	"github.com/leofalp/stageflow/providers/observability/slogobs"
	"github.com/leofalp/stageflow/providers/store"
)

// App holds what the commands share. The factories are swapped in tests.
type App struct {
	Out io.Writer
	Err io.Writer

	// LookupEnv reads the process environment; nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// NewProvider builds the model client from the resolved configuration.
	NewProvider func(cfg config.Config) ai.StreamProvider
	// OpenStore opens the saved-plan store. The returned func releases it.
	OpenStore func(ctx context.Context, cfg config.Config) (store.Store, func(), error)

	cfg      config.Config
	observer *slogobs.Observer
}

// NewApp returns an App wired to the real provider, store and terminal.
func NewApp() *App {
	return &App{
		Out:         os.Stdout,
		Err:         os.Stderr,
		NewProvider: newOpenAIProvider,
		OpenStore:   openStore,
	}
}

func newOpenAIProvider(cfg config.Config) ai.StreamProvider {
	provider := openai.New().
		WithAPIKey(cfg.APIKey).
		WithBaseURL(cfg.BaseURL).
		WithModel(cfg.Model)
	if cfg.MaxRetries == 0 {
		return provider
	}
	return retry.Wrap(provider, retry.Config{MaxRetries: cfg.MaxRetries})
}

// Execute runs the root command with ctx, which the caller cancels on
// SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return NewRootCmd(NewApp()).ExecuteContext(ctx)
}

// NewRootCmd builds the command tree.
func NewRootCmd(app *App) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "stageflow",
		Short: "Plan and run staged multi-agent workflows",
		Long: `stageflow asks an architect model to decompose a problem into a small
team of agents arranged in stages, then runs the stages in order. Agents of
one stage run concurrently and each stage sees the condensed output of the
stages before it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.configure(cmd, flags)
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	flags.register(root)

	root.AddCommand(
		newPlanCmd(app),
		newRunCmd(app),
		newGraphCmd(app),
		newSavedCmd(app),
		newConfigCmd(app),
	)
	return root
}

func (a *App) configure(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: flags.configPath,
		EnvFile:    flags.envFile,
		LookupEnv:  a.LookupEnv,
	})
	if err != nil {
		return err
	}
	if err := flags.apply(cmd, &cfg); err != nil {
		return err
	}
	a.cfg = cfg

	opts := []slogobs.Option{slogobs.WithOutput(a.Err)}
	if cfg.LogFormat != "" {
		opts = append(opts, slogobs.WithFormat(slogobs.ParseFormat(cfg.LogFormat)))
	}
	if cfg.LogLevel != "" {
		opts = append(opts, slogobs.WithLevel(slogobs.ParseLogLevel(cfg.LogLevel)))
	}
	a.observer = slogobs.New(opts...)
	return nil
}
