package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"screenplay-ai-api/internal/domain/entity"
)

func newScriptCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Work with the script",
	}
	cmd.AddCommand(newScriptExportCmd(app))
	return cmd
}

func newScriptExportCmd(app *App) *cobra.Command {
	var (
		projectID string
		output    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the script as plain text",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(projectID)
			if err != nil {
				return err
			}
			p, err := app.Store.Get(id)
			if err != nil {
				return err
			}
			text := entity.ScriptText(p.Script)

			if output == "" || output == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			if err := os.WriteFile(output, []byte(text), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}
	projectFlag(cmd, &projectID)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	return cmd
}
