package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shellac/internal/config"
	"shellac/internal/library"
	"shellac/internal/tags"
	"shellac/internal/vetting"
)

func newVetCommand(ctx *commandContext) *cobra.Command {
	var (
		asJSON    bool
		record    bool
		force     bool
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "vet <folder>",
		Short: "Vet an import folder against the library",
		Long:  "Scans the folder, matches every supported file against indexed records, and reports each file as a certain duplicate, an uncertain match, or new. Nothing is written to the index.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				folder, err := config.ExpandPath(args[0])
				if err != nil {
					return err
				}

				vetter := vetting.New(cfg, store, tags.NewTagLibExtractor(), logger)
				report, err := vetter.Vet(cmd.Context(), folder, vetting.Options{
					Force:     force,
					Record:    record,
					Threshold: threshold,
				})
				if err != nil {
					return err
				}

				if asJSON {
					return report.WriteJSON(cmd.OutOrStdout())
				}
				printReport(cmd, report)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the report as JSON")
	cmd.Flags().BoolVar(&record, "record", false, "Remember this folder so it is not re-vetted by default")
	cmd.Flags().BoolVar(&force, "force", false, "Vet even if the folder was vetted before")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Override the fuzzy match threshold for this run")
	return cmd
}

func printReport(cmd *cobra.Command, report *vetting.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Vetted %s in %s\n", report.Folder, formatElapsed(report.Elapsed))

	rows := make([][]string, 0, len(report.Results))
	for _, result := range report.Results {
		confidence := ""
		if result.MatchType != "none" {
			confidence = fmt.Sprintf("%.2f", result.Confidence)
		}
		rows = append(rows, []string{
			result.Path,
			string(result.Category),
			string(result.MatchType),
			confidence,
			result.MatchedPath,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Category", "Match", "Confidence", "Matched Record"},
		rows,
		3,
	))

	fmt.Fprintf(out, "certain: %d  uncertain: %d  new: %d  failed: %d\n",
		report.Certain, report.Uncertain, report.New, len(report.Failures))
	for _, failure := range report.Failures {
		fmt.Fprintf(out, "failed: %s: %s\n", failure.Path, failure.Err)
	}
}
