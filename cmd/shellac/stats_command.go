package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"shellac/internal/config"
	"shellac/internal/library"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				stats, err := store.Statistics(cmd.Context())
				if err != nil {
					return err
				}

				if asJSON {
					return writeJSON(cmd, stats)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Active", "Inactive", "Artists", "Size", "Last Indexed"},
					[][]string{{
						fmt.Sprintf("%d", stats.TotalActive),
						fmt.Sprintf("%d", stats.TotalInactive),
						fmt.Sprintf("%d", stats.DistinctArtists),
						formatBytes(stats.TotalBytes),
						formatTimestamp(stats.LastIndexedAt),
					}},
					0, 1, 2, 3,
				))

				if len(stats.Formats) > 0 {
					formats := make([]string, 0, len(stats.Formats))
					for format := range stats.Formats {
						formats = append(formats, format)
					}
					sort.Strings(formats)

					rows := make([][]string, 0, len(formats))
					for _, format := range formats {
						rows = append(rows, []string{format, fmt.Sprintf("%d", stats.Formats[format])})
					}
					fmt.Fprintln(out, renderTable([]string{"Format", "Files"}, rows, 1))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit statistics as JSON")
	return cmd
}
