package main

import (
	"github.com/spf13/cobra"
)

// rootFlags are the global flags shared by every subcommand.
type rootFlags struct {
	repo     string
	stateDir string
	config   string
}

// newRootCmd creates the root overseer command with all subcommands attached.
func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "overseer",
		Short:         "Multi-agent task board scheduler",
		Long:          "overseer decides which task-board rows are safe to start,\nreconciles on-disk worker state, and reports both.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.repo, "repo", "", "git repository root or child path")
	cmd.PersistentFlags().StringVar(&flags.stateDir, "state-dir", "", "state directory override")
	cmd.PersistentFlags().StringVar(&flags.config, "config", "", "config path override")

	cmd.AddCommand(
		newPathsCmd(&flags),
		newReadyCmd(&flags),
		newStatusCmd(&flags),
		newInventoryCmd(&flags),
		newSelectStopCmd(&flags),
		newSelectStaleCmd(&flags),
	)

	return cmd
}
