package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/leofalp/stageflow/providers/store"
)

func newSavedCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved plans",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved plans, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.withStore(cmd.Context(), func(s store.Store) error {
					plans, err := s.List(cmd.Context())
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tTITLE\tAGENTS\tCREATED")
					for _, p := range plans {
						fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", p.ID, p.Title, len(p.Plan), p.CreatedAt.Local().Format(time.DateTime))
					}
					return w.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print a saved plan as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withStore(cmd.Context(), func(s store.Store) error {
					saved, err := s.Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					return writeJSON(cmd.OutOrStdout(), documentFromSaved(saved))
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id>...",
			Short: "Delete saved plans",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.withStore(cmd.Context(), func(s store.Store) error {
					for _, id := range args {
						if err := s.Delete(cmd.Context(), id); err != nil {
							return fmt.Errorf("delete %s: %w", id, err)
						}
						fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
					}
					return nil
				})
			},
		},
	)
	return cmd
}
