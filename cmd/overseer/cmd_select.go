package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"overseer/pkg/engine"
	"overseer/pkg/state"
)

// newSelectStopCmd creates the "overseer select-stop" subcommand.
func newSelectStopCmd(flags *rootFlags) *cobra.Command {
	var (
		task   string
		owner  string
		all    bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "select-stop",
		Short: "Select worker records to stop",
		Long:  "Picks worker records by task id, by owner, or all of them,\nfor the launcher scripts to tear down.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "tsv" {
				return fmt.Errorf("--format must be json or tsv, got %q", format)
			}
			set := 0
			if task != "" {
				set++
			}
			if owner != "" {
				set++
			}
			if all {
				set++
			}
			if set != 1 {
				return fmt.Errorf("exactly one of --task, --owner, or --all is required")
			}

			ws, err := loadWorkspace(flags)
			if err != nil {
				return err
			}
			records, err := ws.scanWorkers()
			if err != nil {
				return err
			}

			selected := engine.SelectStop(records, engine.Selector{Task: task, Owner: owner, All: all})
			return printSelection(cmd, selected, format)
		},
	}

	cmd.Flags().StringVar(&task, "task", "", "select records for this task id")
	cmd.Flags().StringVar(&owner, "owner", "", "select records for this owner")
	cmd.Flags().BoolVar(&all, "all", false, "select every record")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or tsv")

	return cmd
}

// newSelectStaleCmd creates the "overseer select-stale" subcommand.
func newSelectStaleCmd(flags *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "select-stale",
		Short: "Select worker records needing cleanup",
		Long:  "Picks the records whose on-disk evidence has diverged from reality:\nstale locks, exited finalizers, orphaned pid and lock files.",
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

			return printSelection(cmd, engine.SelectStale(records), format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or tsv")

	return cmd
}

func printSelection(cmd *cobra.Command, selected []state.WorkerRecord, format string) error {
	if format == "tsv" {
		w := cmd.OutOrStdout()
		for _, rec := range selected {
			fmt.Fprintln(w, workerTSV(rec, false))
		}
		return nil
	}
	if selected == nil {
		selected = []state.WorkerRecord{}
	}
	return printJSON(cmd.OutOrStdout(), map[string][]state.WorkerRecord{"workers": selected})
}
