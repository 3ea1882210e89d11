package engine

import (
	"overseer/internal/config"
	"overseer/pkg/board"
	"overseer/pkg/state"
)

// InventoryReport is the reconciled worker inventory payload.
type InventoryReport struct {
	RepoRoot string               `json:"repo_root"`
	StateDir string               `json:"state_dir"`
	Workers  []state.WorkerRecord `json:"workers"`
	Summary  state.Summary        `json:"summary"`
}

// Inventory assembles the inventory payload from one scan.
func Inventory(repoRoot, stateDir string, records []state.WorkerRecord) InventoryReport {
	if records == nil {
		records = []state.WorkerRecord{}
	}
	return InventoryReport{
		RepoRoot: repoRoot,
		StateDir: stateDir,
		Workers:  records,
		Summary:  state.Summarize(records),
	}
}

// BoardRow is one task with its resolved scope, for display.
type BoardRow struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
	Owner  string `json:"owner"`
	Scope  string `json:"scope"`
	Deps   string `json:"deps"`
	Status string `json:"status"`
}

// BoardReport is the task-board payload with per-status counts.
type BoardReport struct {
	Tasks   []BoardRow   `json:"tasks"`
	Summary BoardSummary `json:"summary"`
}

// BoardSummary counts board rows per status.
type BoardSummary struct {
	Total        int            `json:"total"`
	StatusCounts map[string]int `json:"status_counts"`
}

// BoardView resolves each task's scope through the owner map and counts
// statuses.
func BoardView(tasks []board.Task, ownersByKey map[string]string) BoardReport {
	rows := make([]BoardRow, 0, len(tasks))
	counts := make(map[string]int)
	for _, t := range tasks {
		rows = append(rows, BoardRow{
			TaskID: t.ID,
			Title:  t.Title,
			Owner:  t.Owner,
			Scope:  ownersByKey[config.OwnerKey(t.Owner)],
			Deps:   t.Deps,
			Status: t.Status,
		})
		counts[t.Status]++
	}
	return BoardReport{Tasks: rows, Summary: BoardSummary{Total: len(rows), StatusCounts: counts}}
}

// SchedulerStatus is the scheduler section of a status snapshot.
type SchedulerStatus struct {
	Trigger       string         `json:"trigger"`
	RunID         string         `json:"run_id"`
	MaxStart      int            `json:"max_start"`
	ReadyTasks    []ReadyTask    `json:"ready_tasks"`
	ExcludedTasks []ExcludedTask `json:"excluded_tasks"`
	Summary       CountSummary   `json:"summary"`
}

// CountSummary is a two-bucket tally.
type CountSummary struct {
	Ready    int `json:"ready"`
	Excluded int `json:"excluded"`
}

// RuntimeStatus is the worker-inventory section of a status snapshot.
type RuntimeStatus struct {
	Summary RuntimeSummary       `json:"summary"`
	Workers []state.WorkerRecord `json:"workers"`
}

// RuntimeSummary rolls up the per-state counts into active/stale totals.
type RuntimeSummary struct {
	Total       int                 `json:"total"`
	Active      int                 `json:"active"`
	Stale       int                 `json:"stale"`
	StateCounts map[state.State]int `json:"state_counts"`
}

// Coordination is the held-locks section of a status snapshot.
type Coordination struct {
	ActiveLocks []LockInfo       `json:"active_locks"`
	Summary     CoordinationSums `json:"summary"`
}

// CoordinationSums counts held locks.
type CoordinationSums struct {
	Locks int `json:"locks"`
}

// StatusReport is the combined snapshot the presentation layer renders.
type StatusReport struct {
	RepoRoot     string          `json:"repo_root"`
	StateDir     string          `json:"state_dir"`
	Scheduler    SchedulerStatus `json:"scheduler"`
	Runtime      RuntimeStatus   `json:"runtime"`
	Coordination Coordination    `json:"coordination"`
	TaskBoard    BoardReport     `json:"task_board"`
	Updates      UpdatesFeed     `json:"updates"`
}

// Status composes the ready report, worker records, board, and updates feed
// into one atomic snapshot.
func Status(ready ReadyReport, records []state.WorkerRecord, tasks []board.Task, ownersByKey map[string]string, updates UpdatesFeed) StatusReport {
	if records == nil {
		records = []state.WorkerRecord{}
	}
	summary := state.Summarize(records)

	var active, stale int
	for s, n := range summary.StateCounts {
		if s.Active() {
			active += n
		}
		if s.Stale() {
			stale += n
		}
	}

	return StatusReport{
		RepoRoot: ready.RepoRoot,
		StateDir: ready.StateDir,
		Scheduler: SchedulerStatus{
			Trigger:       ready.Trigger,
			RunID:         ready.RunID,
			MaxStart:      ready.MaxStart,
			ReadyTasks:    ready.ReadyTasks,
			ExcludedTasks: ready.ExcludedTasks,
			Summary: CountSummary{
				Ready:    len(ready.ReadyTasks),
				Excluded: len(ready.ExcludedTasks),
			},
		},
		Runtime: RuntimeStatus{
			Summary: RuntimeSummary{
				Total:       summary.Total,
				Active:      active,
				Stale:       stale,
				StateCounts: summary.StateCounts,
			},
			Workers: records,
		},
		Coordination: Coordination{
			ActiveLocks: ready.RunningLocks,
			Summary:     CoordinationSums{Locks: len(ready.RunningLocks)},
		},
		TaskBoard: BoardView(tasks, ownersByKey),
		Updates:   updates,
	}
}

// Selector picks worker records for stop operations. Exactly one of the
// three fields must be set; the CLI enforces that.
type Selector struct {
	Task  string
	Owner string
	All   bool
}

// SelectStop returns the records matching the selector.
func SelectStop(records []state.WorkerRecord, sel Selector) []state.WorkerRecord {
	var out []state.WorkerRecord
	switch {
	case sel.Task != "":
		for _, r := range records {
			if r.TaskID == sel.Task {
				out = append(out, r)
			}
		}
	case sel.Owner != "":
		want := config.OwnerKey(sel.Owner)
		for _, r := range records {
			if config.OwnerKey(r.Owner) == want {
				out = append(out, r)
			}
		}
	case sel.All:
		out = append(out, records...)
	}
	return out
}

// SelectStale returns the records in cleanup states.
func SelectStale(records []state.WorkerRecord) []state.WorkerRecord {
	var out []state.WorkerRecord
	for _, r := range records {
		if r.Stale {
			out = append(out, r)
		}
	}
	return out
}
