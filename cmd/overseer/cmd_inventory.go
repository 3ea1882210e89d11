package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"overseer/pkg/engine"
)

// newInventoryCmd creates the "overseer inventory" subcommand.
func newInventoryCmd(flags *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Reconcile and list on-disk worker state",
		Long:  "Scans liveness and lock files, probes processes and worktrees,\nand reports one classified record per worker slot.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "tsv" {
				return fmt.Errorf("--format must be json or tsv, got %q", format)
			}

			ws, err := loadWorkspace(flags)
			if err != nil {
				return err
			}
			records, err := ws.scanWorkers()
			if err != nil {
				return err
			}

			if format == "tsv" {
				w := cmd.OutOrStdout()
				for _, rec := range records {
					fmt.Fprintln(w, workerTSV(rec, true))
				}
				return nil
			}
			return printJSON(cmd.OutOrStdout(), engine.Inventory(ws.Ctx.RepoRoot, ws.Ctx.StateDir, records))
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or tsv")

	return cmd
}
