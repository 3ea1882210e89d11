package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"overseer/pkg/engine"
	"overseer/pkg/eventlog"
)

// newReadyCmd creates the "overseer ready" subcommand.
func newReadyCmd(flags *rootFlags) *cobra.Command {
	var (
		trigger  string
		maxStart int
		format   string
	)

	cmd := &cobra.Command{
		Use:   "ready",
		Short: "Partition TODO tasks into READY and EXCLUDED",
		Long:  "Runs one scheduling pass over the task board and worker state.\nReady tasks are safe to start now; excluded tasks carry their first failing check.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "tsv" {
				return fmt.Errorf("--format must be json or tsv, got %q", format)
			}

			ws, err := loadWorkspace(flags)
			if err != nil {
				return err
			}

			rep, _, err := ws.schedule(trigger, maxStart)
			if err != nil {
				return err
			}

			recordAudit(ws, rep)

			if format == "tsv" {
				w := cmd.OutOrStdout()
				for _, task := range rep.ReadyTasks {
					fmt.Fprintln(w, readyTSV(task))
				}
				return nil
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}

	cmd.Flags().StringVar(&trigger, "trigger", "manual", "what initiated this pass")
	cmd.Flags().IntVar(&maxStart, "max-start", -1, "cap on ready tasks per pass (-1 = config value, 0 = unlimited)")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or tsv")

	return cmd
}

// recordAudit writes the run to the audit log. Failures are logged, never
// fatal: the scheduling answer matters more than the trail.
func recordAudit(ws *workspace, rep engine.ReadyReport) {
	if err := os.MkdirAll(ws.Ctx.OrchDir, 0o755); err != nil {
		log.Printf("audit: create %s: %v", ws.Ctx.OrchDir, err)
		return
	}
	audit, err := eventlog.Open(ws.auditDBPath())
	if err != nil {
		log.Printf("audit: %v", err)
		return
	}
	defer audit.Close()

	if err := audit.RecordRun(context.Background(), rep); err != nil {
		log.Printf("audit: %v", err)
	}
}
