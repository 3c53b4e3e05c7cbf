package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shellac/internal/config"
	"shellac/internal/library"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show vetted-folder history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				entries, err := store.History(cmd.Context(), limit)
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd, entries)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No folders vetted yet")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.FolderPath,
						formatTimestamp(entry.VettedAt),
						fmt.Sprintf("%d", entry.Certain),
						fmt.Sprintf("%d", entry.Uncertain),
						fmt.Sprintf("%d", entry.NewFiles),
						fmt.Sprintf("%d", entry.Failures),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Folder", "Vetted", "Certain", "Uncertain", "New", "Failed"},
					rows,
					2, 3, 4, 5,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit history as JSON")
	return cmd
}
