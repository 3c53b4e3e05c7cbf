package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shellac/internal/config"
	"shellac/internal/hashing"
	"shellac/internal/library"
	"shellac/internal/matching"
	"shellac/internal/tags"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var threshold float64

	cmd := &cobra.Command{
		Use:   "match <file>",
		Short: "Match a single file against the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				path, err := config.ExpandPath(args[0])
				if err != nil {
					return err
				}

				fuzzy, err := matching.ResolveThreshold(cfg.Matching.FuzzyThreshold, threshold)
				if err != nil {
					return err
				}

				extractor := tags.NewTagLibExtractor()
				fields, err := extractor.Extract(path)
				if err != nil {
					return err
				}

				computer := hashing.NewComputer(cfg.Hashing.ChunkKiB)
				contentHash, hashErr := computer.ContentHash(path)
				if hashErr != nil {
					logger.Warn("content hash failed", "component", "cli", "path", path, "error", hashErr.Error())
				}

				matcher := matching.New(store, fuzzy, logger)
				match, err := matcher.MatchOne(cmd.Context(), matching.Candidate{
					Path:         path,
					Artist:       fields.Artist,
					Title:        fields.Title,
					MetadataHash: computer.MetadataHash(fields.Artist, fields.Title, fields.Album, fields.Year),
					ContentHash:  contentHash,
				})
				if err != nil {
					return err
				}

				if asJSON {
					payload := map[string]any{
						"path":       path,
						"match_type": match.Type,
						"confidence": match.Confidence,
					}
					if match.Record != nil {
						payload["matched_path"] = match.Record.FilePath
						payload["matched_artist"] = match.Record.Artist
						payload["matched_title"] = match.Record.Title
					}
					return writeJSON(cmd, payload)
				}

				out := cmd.OutOrStdout()
				if match.Type == matching.MatchNone {
					fmt.Fprintf(out, "%s: no match\n", path)
					return nil
				}
				fmt.Fprintf(out, "%s: %s (confidence %.2f)\n", path, match.Type, match.Confidence)
				if match.Record != nil {
					fmt.Fprintf(out, "  matches %s (%s / %s)\n", match.Record.FilePath, match.Record.Artist, match.Record.Title)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the result as JSON")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Override the fuzzy match threshold")
	return cmd
}
