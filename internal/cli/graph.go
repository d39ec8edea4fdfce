package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leofalp/stageflow/core/plan"
	"github.com/leofalp/stageflow/patterns/graph"
	"github.com/leofalp/stageflow/providers/store"
)

func newGraphCmd(app *App) *cobra.Command {
	var (
		planFile string
		savedID  string
		asText   bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the agent graph of a plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var g graph.Graph
			switch {
			case planFile != "":
				orch := app.newOrchestrator(nil)
				if _, err := loadPlanFile(orch, planFile, ""); err != nil {
					return err
				}
				g = orch.Graph()
			case savedID != "":
				err := app.withStore(cmd.Context(), func(s store.Store) error {
					saved, err := s.Get(cmd.Context(), savedID)
					if err != nil {
						return fmt.Errorf("load saved plan %s: %w", savedID, err)
					}
					g = graph.Build(saved.Plan)
					return nil
				})
				if err != nil {
					return err
				}
			default:
				return errors.New("one of --plan or --saved is required")
			}

			if asText {
				return writeGraphText(cmd.OutOrStdout(), g)
			}
			return writeJSON(cmd.OutOrStdout(), g)
		},
	}

	cmd.Flags().StringVar(&planFile, "plan", "", "plan file")
	cmd.Flags().StringVar(&savedID, "saved", "", "id of a saved plan")
	cmd.Flags().BoolVar(&asText, "text", false, "print one line per node instead of JSON")
	cmd.MarkFlagsMutuallyExclusive("plan", "saved")
	return cmd
}

// writeGraphText prints "stage N  id (kind) -> targets" lines in plan order.
func writeGraphText(w io.Writer, g graph.Graph) error {
	for _, node := range g.Nodes {
		line := fmt.Sprintf("stage %-4s %s (%s)", plan.FormatPhase(node.Phase), node.ID, node.Kind)
		if targets := g.Successors(node.ID); len(targets) > 0 {
			line += " -> " + strings.Join(targets, ", ")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
