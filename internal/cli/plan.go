package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leofalp/stageflow/providers/store"
)

func newPlanCmd(app *App) *cobra.Command {
	var (
		problem string
		out     string
		title   string
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Ask the architect model for a staged plan",
		Long: `Ask the architect model to design a team of agents for the problem and
print the normalized plan, the suggested inputs and the derived graph as JSON.`,
		Example: `  stageflow plan --problem "Why did churn rise in Q3?"
  stageflow plan --problem "..." --out plan.json --save --title "Churn Q3"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch := app.newOrchestrator(nil)
			result, err := orch.Plan(cmd.Context(), problem)
			if err != nil {
				return err
			}

			snapshot := orch.Snapshot()
			doc := documentOf(snapshot.Problem, result.Plan, result.Inputs)
			if save {
				saved := &store.SavedPlan{
					Title:   title,
					Problem: doc.Problem,
					Plan:    doc.Plan,
					Inputs:  doc.Inputs,
				}
				err := app.withStore(cmd.Context(), func(s store.Store) error {
					return s.Save(cmd.Context(), saved)
				})
				if err != nil {
					return fmt.Errorf("save plan: %w", err)
				}
				doc.ID, doc.Title = saved.ID, saved.Title
				fmt.Fprintf(cmd.ErrOrStderr(), "saved plan %s\n", saved.ID)
			}

			if out == "" {
				return writeJSON(cmd.OutOrStdout(), doc)
			}
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			return errors.Join(writeJSON(file, doc), file.Close())
		},
	}

	cmd.Flags().StringVarP(&problem, "problem", "p", "", "problem statement")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the plan to this file instead of stdout")
	cmd.Flags().BoolVar(&save, "save", false, "store the plan for later runs")
	cmd.Flags().StringVar(&title, "title", "", "title of the saved plan (default: derived from the problem)")
	_ = cmd.MarkFlagRequired("problem")
	return cmd
}
