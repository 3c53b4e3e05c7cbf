package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shellac/internal/config"
	"shellac/internal/library"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Library maintenance",
	}

	libraryCmd.AddCommand(newLibraryDeactivateCommand(ctx))
	libraryCmd.AddCommand(newLibraryPurgeCommand(ctx))
	libraryCmd.AddCommand(newLibraryVerifyCommand(ctx))

	return libraryCmd
}

func newLibraryDeactivateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <path>...",
		Short: "Soft-delete records by path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				paths := make([]string, 0, len(args))
				for _, arg := range args {
					path, err := config.ExpandPath(arg)
					if err != nil {
						return err
					}
					paths = append(paths, path)
				}

				count, err := store.DeactivateBatch(cmd.Context(), paths)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deactivated %d of %d records\n", count, len(paths))
				return nil
			})
		},
	}
}

func newLibraryPurgeCommand(ctx *commandContext) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently delete soft-deleted records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("purge permanently deletes inactive records; re-run with --yes to confirm")
			}
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				removed, err := store.PurgeInactive(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d inactive records\n", removed)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm permanent deletion")
	return cmd
}

// newLibraryVerifyCommand walks every active record and reconciles it with
// the filesystem: missing files are deactivated, present ones get a fresh
// verification stamp.
func newLibraryVerifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Reconcile active records with the filesystem",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *library.Store) error {
				var present, missing []string
				err := store.ListActive(cmd.Context(), func(record *library.Record) error {
					if _, statErr := os.Stat(record.FilePath); statErr != nil {
						missing = append(missing, record.FilePath)
					} else {
						present = append(present, record.FilePath)
					}
					return nil
				})
				if err != nil {
					return err
				}

				if err := store.TouchVerified(cmd.Context(), present); err != nil {
					return err
				}
				deactivated := 0
				if len(missing) > 0 {
					deactivated, err = store.DeactivateBatch(cmd.Context(), missing)
					if err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Verified %d records, deactivated %d missing files\n", len(present), deactivated)
				for _, path := range missing {
					fmt.Fprintf(out, "missing: %s\n", path)
				}
				return nil
			})
		},
	}
}
