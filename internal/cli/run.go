package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leofalp/stageflow/core/dataset"
	"github.com/leofalp/stageflow/core/orchestrator"
	"github.com/leofalp/stageflow/providers/store"
)

// maxParallelFetches bounds concurrent --url downloads.
const maxParallelFetches = 4

type runFlags struct {
	problem  string
	planFile string
	savedID  string
	files    []string
	urls     []string
	asJSON   bool
}

func newRunCmd(app *App) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a plan stage by stage",
		Long: `Run a plan on the given data. The plan comes from --plan, --saved or, when
neither is set, from a fresh architect call for --problem. Without --data or
--url the inputs suggested by the architect are used.

Agent output is streamed to stdout as it arrives. Interrupting the command
cancels the agents still running.`,
		Example: `  stageflow run --problem "Why did churn rise in Q3?" --data churn.csv
  stageflow run --saved 0b6f... --data notes.md --url https://example.com/report.html`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.run(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.problem, "problem", "p", "", "problem statement (overrides the one stored with the plan)")
	cmd.Flags().StringVar(&flags.planFile, "plan", "", "plan file written by \"stageflow plan --out\"")
	cmd.Flags().StringVar(&flags.savedID, "saved", "", "id of a saved plan")
	cmd.Flags().StringSliceVarP(&flags.files, "data", "d", nil, "data file (repeatable; .html is converted to markdown)")
	cmd.Flags().StringSliceVar(&flags.urls, "url", nil, "data URL to download (repeatable)")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "print the final run state as JSON instead of streaming text")
	cmd.MarkFlagsMutuallyExclusive("plan", "saved")
	return cmd
}

func (a *App) run(cmd *cobra.Command, flags *runFlags) error {
	ctx := cmd.Context()
	printer := &streamPrinter{w: cmd.OutOrStdout(), quiet: flags.asJSON}
	orch := a.newOrchestrator(printer.listen)

	if err := a.installPlan(ctx, orch, flags); err != nil {
		return err
	}

	data, err := loadData(ctx, flags.files, flags.urls)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		data = orch.Inputs()
	}
	if err := orch.SelectData(data); err != nil {
		return err
	}

	runErr := orch.Run(ctx)
	if flags.asJSON {
		if err := writeJSON(cmd.OutOrStdout(), orch.Snapshot()); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func (a *App) installPlan(ctx context.Context, orch *orchestrator.Orchestrator, flags *runFlags) error {
	switch {
	case flags.planFile != "":
		_, err := loadPlanFile(orch, flags.planFile, flags.problem)
		return err

	case flags.savedID != "":
		return a.withStore(ctx, func(s store.Store) error {
			saved, err := s.Get(ctx, flags.savedID)
			if err != nil {
				return fmt.Errorf("load saved plan %s: %w", flags.savedID, err)
			}
			problem := saved.Problem
			if flags.problem != "" {
				problem = flags.problem
			}
			return orch.LoadPlan(problem, saved.Plan, saved.Inputs)
		})

	default:
		if flags.problem == "" {
			return errors.New("one of --problem, --plan or --saved is required")
		}
		_, err := orch.Plan(ctx, flags.problem)
		return err
	}
}

// loadData reads files in order, then downloads urls concurrently. The
// result keeps the order given on the command line.
func loadData(ctx context.Context, files, urls []string) ([]dataset.Entry, error) {
	entries := make([]dataset.Entry, 0, len(files)+len(urls))
	for _, path := range files {
		entry, err := dataset.FromFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	fetched := make([]dataset.Entry, len(urls))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxParallelFetches)
	client := &http.Client{}
	for i, rawURL := range urls {
		group.Go(func() error {
			entry, err := dataset.FromURL(groupCtx, client, rawURL)
			if err != nil {
				return fmt.Errorf("%s: %w", rawURL, err)
			}
			fetched[i] = entry
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return append(entries, fetched...), nil
}
