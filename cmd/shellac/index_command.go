package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shellac/internal/config"
	"shellac/internal/indexer"
	"shellac/internal/library"
	"shellac/internal/services"
	"shellac/internal/tags"
)

func newIndexCommand(ctx *commandContext) *cobra.Command {
	var full, resume, asJSON bool

	cmd := &cobra.Command{
		Use:   "index [root]",
		Short: "Index an audio tree into the library",
		Long:  "Walks the root (default: the configured library root), extracts tags, fingerprints every supported file, and writes records in batches. Interrupted runs can continue with --resume.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				root := cfg.Paths.LibraryRoot
				if len(args) == 1 {
					expanded, err := config.ExpandPath(args[0])
					if err != nil {
						return err
					}
					root = expanded
				}

				ix := indexer.New(cfg, store, tags.NewTagLibExtractor(), logger)
				summary, runErr := ix.Run(cmd.Context(), root, indexer.Options{Full: full, Resume: resume})
				if summary != nil {
					if asJSON {
						if err := writeJSON(cmd, summary); err != nil {
							return err
						}
					} else {
						printSummary(cmd, summary)
					}
				}
				if errors.Is(runErr, services.ErrInterrupted) {
					fmt.Fprintln(cmd.OutOrStdout(), "Interrupted; run again with --resume to continue this run.")
				}
				return runErr
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Recompute every file, ignoring stored mtimes")
	cmd.Flags().BoolVar(&resume, "resume", false, "Continue the most recent interrupted run for this root")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the summary as JSON")
	return cmd
}

func printSummary(cmd *cobra.Command, summary *indexer.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexed %s (%s) in %s\n", summary.Root, summary.Mode, formatElapsed(summary.Elapsed))
	fmt.Fprintln(out, renderTable(
		[]string{"Added", "Updated", "Skipped", "Failed"},
		[][]string{{
			fmt.Sprintf("%d", summary.Added),
			fmt.Sprintf("%d", summary.Updated),
			fmt.Sprintf("%d", summary.Skipped),
			fmt.Sprintf("%d", summary.Failed),
		}},
		0, 1, 2, 3,
	))
	for _, failure := range summary.Failures {
		fmt.Fprintf(out, "failed: %s: %s\n", failure.Path, failure.Err)
	}
}
