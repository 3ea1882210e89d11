package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"overseer/pkg/engine"
)

// newStatusCmd creates the "overseer status" subcommand.
func newStatusCmd(flags *rootFlags) *cobra.Command {
	var (
		trigger  string
		maxStart int
		format   string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the combined scheduler and worker snapshot",
		Long:  "Composes one atomic snapshot: scheduler partition, reconciled workers,\nheld locks, the task board, and the shared updates feed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case "text", "json", "tui":
			default:
				return fmt.Errorf("--format must be text, json, or tui, got %q", format)
			}

			if format == "tui" {
				// Non-interactive shells get deterministic text output.
				if isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd()) {
					return runDashboard(cmd, flags)
				}
				format = "text"
			}

			ws, err := loadWorkspace(flags)
			if err != nil {
				return err
			}
			rep, err := statusReport(ws, trigger, maxStart)
			if err != nil {
				return err
			}

			if format == "json" {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			renderStatusText(cmd.OutOrStdout(), rep)
			return nil
		},
	}

	cmd.Flags().StringVar(&trigger, "trigger", "manual", "what initiated this pass")
	cmd.Flags().IntVar(&maxStart, "max-start", -1, "cap on ready tasks per pass (-1 = config value, 0 = unlimited)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, or tui")

	return cmd
}

// statusReport assembles the full snapshot for one invocation.
func statusReport(ws *workspace, trigger string, maxStart int) (engine.StatusReport, error) {
	ready, tasks, err := ws.schedule(trigger, maxStart)
	if err != nil {
		return engine.StatusReport{}, err
	}
	records, err := ws.scanWorkers()
	if err != nil {
		return engine.StatusReport{}, err
	}
	updates := engine.ParseUpdates(ws.Ctx.UpdatesFile, engine.DefaultUpdatesLimit)
	return engine.Status(ready, records, tasks, ws.Ctx.OwnersByKey, updates), nil
}

// runDashboard hands the terminal to the overseer-dash binary.
func runDashboard(cmd *cobra.Command, flags *rootFlags) error {
	args := []string{}
	if flags.repo != "" {
		args = append(args, "--repo", flags.repo)
	}
	if flags.stateDir != "" {
		args = append(args, "--state-dir", flags.stateDir)
	}
	if flags.config != "" {
		args = append(args, "--config", flags.config)
	}

	dash := exec.CommandContext(cmd.Context(), "overseer-dash", args...)
	dash.Stdin = os.Stdin
	dash.Stdout = os.Stdout
	dash.Stderr = os.Stderr

	if err := dash.Run(); err != nil {
		return fmt.Errorf("run overseer-dash: %w", err)
	}
	return nil
}
