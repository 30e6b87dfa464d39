package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"screenplay-ai-api/internal/application/novel"
)

func newNovelCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "novel",
		Short: "Manage the source novel",
	}

	cmd.AddCommand(
		newNovelUploadCmd(app),
		newNovelClearCmd(app),
	)

	return cmd
}

func newNovelUploadCmd(app *App) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "upload FILE...",
		Short: "Append UTF-8 text files to the source novel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(projectID)
			if err != nil {
				return err
			}

			docs := make([]novel.Document, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("reading %s: %w", path, err)
				}
				if !utf8.Valid(data) {
					return fmt.Errorf("%s is not valid UTF-8", path)
				}
				name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				docs = append(docs, novel.Document{Name: name, Content: string(data)})
			}

			res, err := app.Novels.UploadDocuments(cmd.Context(), id, docs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %d chunk(s), %d total\n", res.Added, len(res.Project.NovelUploadChunks))
			for _, s := range res.Skipped {
				fmt.Fprintf(out, "  skipped %s: %s\n", s.Name, s.Reason)
			}
			return nil
		},
	}
	projectFlag(cmd, &projectID)
	return cmd
}

func newNovelClearCmd(app *App) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every uploaded chunk",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := app.resolve(projectID)
			if err != nil {
				return err
			}
			if _, err := app.Novels.ClearChunks(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Source novel cleared")
			return nil
		},
	}
	projectFlag(cmd, &projectID)
	return cmd
}
