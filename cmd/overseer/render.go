package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"overseer/pkg/engine"
	"overseer/pkg/state"
)

// printJSON writes the payload as indented JSON, matching the shell
// contract the launcher scripts consume.
func printJSON(w io.Writer, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func boolCell(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func pidCell(pid int) string {
	if pid <= 0 {
		return ""
	}
	return strconv.Itoa(pid)
}

// workerTSV renders one worker record as a tab-separated row. The stale
// column is only part of the inventory surface.
func workerTSV(rec state.WorkerRecord, withStale bool) string {
	cols := []string{
		rec.Key.String(),
		rec.TaskID,
		rec.Owner,
		rec.Scope,
		string(rec.State),
		pidCell(rec.PID),
		boolCell(rec.PIDAlive),
		rec.PIDFile,
		rec.LockFile,
		rec.Worktree,
		rec.TmuxSession,
		boolCell(rec.WorktreeExists),
	}
	if withStale {
		cols = append(cols, boolCell(rec.Stale))
	}
	return strings.Join(cols, "\t")
}

// readyTSV renders one schedulable task as a tab-separated row.
func readyTSV(task engine.ReadyTask) string {
	return strings.Join([]string{
		task.TaskID,
		task.Title,
		task.Owner,
		task.Scope,
		task.Deps,
		task.Status,
		task.SpecRelPath,
		task.GoalSummary,
		task.InScopeSummary,
		task.AcceptanceSummary,
	}, "\t")
}

// renderStatusText writes the human-readable status summary.
func renderStatusText(w io.Writer, rep engine.StatusReport) {
	fmt.Fprintf(w, "Repo: %s\n", rep.RepoRoot)
	fmt.Fprintf(w, "State dir: %s\n", rep.StateDir)
	fmt.Fprintf(w, "Trigger: %s\n", rep.Scheduler.Trigger)
	fmt.Fprintf(w, "Max start: %d\n", rep.Scheduler.MaxStart)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Scheduler: ready=%d excluded=%d\n", rep.Scheduler.Summary.Ready, rep.Scheduler.Summary.Excluded)
	for _, task := range rep.Scheduler.ReadyTasks {
		fmt.Fprintf(w, "  [READY] %s owner=%s deps=%s\n", task.TaskID, task.Owner, task.Deps)
	}
	for _, task := range rep.Scheduler.ExcludedTasks {
		fmt.Fprintf(w, "  [EXCLUDED] %s owner=%s reason=%s source=%s\n", task.TaskID, task.Owner, task.Reason, task.Source)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Runtime: total=%d active=%d stale=%d\n",
		rep.Runtime.Summary.Total, rep.Runtime.Summary.Active, rep.Runtime.Summary.Stale)
	if len(rep.Runtime.Summary.StateCounts) > 0 {
		states := make([]string, 0, len(rep.Runtime.Summary.StateCounts))
		for s := range rep.Runtime.Summary.StateCounts {
			states = append(states, string(s))
		}
		sort.Strings(states)
		parts := make([]string, 0, len(states))
		for _, s := range states {
			parts = append(parts, fmt.Sprintf("%s:%d", s, rep.Runtime.Summary.StateCounts[state.State(s)]))
		}
		fmt.Fprintf(w, "  states=%s\n", strings.Join(parts, ", "))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Coordination: locks=%d\n", rep.Coordination.Summary.Locks)
	for _, lock := range rep.Coordination.ActiveLocks {
		fmt.Fprintf(w, "  [LOCK] scope=%s owner=%s task=%s\n", lock.Scope, lock.Owner, lock.TaskID)
	}
}
