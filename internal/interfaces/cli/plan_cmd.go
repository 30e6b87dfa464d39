package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"screenplay-ai-api/internal/application/plansync"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Work with the adaptation plan",
	}
	cmd.AddCommand(newPlanSyncCmd(app))
	return cmd
}

func newPlanSyncCmd(app *App) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Rebuild the outline and plot matrix from the adaptation plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(projectID)
			if err != nil {
				return err
			}
			p, err := plansync.SyncProject(cmd.Context(), app.Store, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d section(s), %d event(s)\n", len(p.Outline), len(p.PlotEvents))
			return nil
		},
	}
	projectFlag(cmd, &projectID)
	return cmd
}
