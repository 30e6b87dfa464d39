package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create, inspect and switch projects",
	}

	cmd.AddCommand(
		newProjectListCmd(app),
		newProjectCreateCmd(app),
		newProjectShowCmd(app),
		newProjectUseCmd(app),
		newProjectDeleteCmd(app),
	)

	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects, most recently modified first",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := app.Store.List()
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
				return nil
			}

			active := app.Store.ActiveID()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "\tID\tTITLE\tUPDATED")
			for _, p := range list {
				mark := ""
				if p.ID == active {
					mark = "*"
				}
				updated := time.UnixMilli(p.UpdatedAt).Format(time.DateTime)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", mark, p.ID, p.Title, updated)
			}
			return w.Flush()
		},
	}
}

func newProjectCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create [TITLE]",
		Short: "Create a project and make it active",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := ""
			if len(args) == 1 {
				title = args[0]
			}
			p := app.Store.Create(cmd.Context(), title)
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.Title, p.ID)
			return nil
		},
	}
}

func newProjectShowCmd(app *App) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the project document as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(projectID)
			if err != nil {
				return err
			}
			p, err := app.Store.Get(id)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(p)
		},
	}
	projectFlag(cmd, &projectID)
	return cmd
}

func newProjectUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use ID",
		Short: "Switch the active project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Store.SetActive(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active project: %s\n", args[0])
			return nil
		},
	}
}

func newProjectDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	}
}
