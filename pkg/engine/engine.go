// Package engine is the scheduling brain: it combines the parsed task board,
// the reconciled worker records, and the task-spec collaborator's verdicts
// into one READY/EXCLUDED partition per invocation. Every run is a pure
// computation over snapshots handed in by the caller.
package engine

import (
	"github.com/google/uuid"

	"overseer/internal/config"
	"overseer/pkg/board"
	"overseer/pkg/state"
	"overseer/pkg/taskspec"
)

// Exclusion reasons and signal sources, as they appear in payloads.
const (
	ReasonActiveWorker   = "active_worker"
	ReasonActiveLock     = "active_lock"
	ReasonSignalConflict = "active_signal_conflict"
	ReasonOwnerBusy      = "owner_busy"
	ReasonMissingSpec    = "missing_task_spec"
	ReasonInvalidSpec    = "invalid_task_spec"
	ReasonDepsNotReady   = "deps_not_ready"

	SourceScheduler = "scheduler"
	SourcePID       = "pid"
	SourceLock      = "lock"
)

// SpecEvaluator is the external task-spec collaborator. The engine only
// reads its verdicts.
type SpecEvaluator interface {
	Evaluate(repoRoot, taskID string) taskspec.Result
}

// ReadyTask is one schedulable row of the READY partition.
type ReadyTask struct {
	TaskID            string `json:"task_id"`
	Title             string `json:"title"`
	Owner             string `json:"owner"`
	OwnerKey          string `json:"owner_key"`
	Scope             string `json:"scope"`
	Deps              string `json:"deps"`
	Status            string `json:"status"`
	SpecRelPath       string `json:"spec_rel_path"`
	GoalSummary       string `json:"goal_summary"`
	InScopeSummary    string `json:"in_scope_summary"`
	AcceptanceSummary string `json:"acceptance_summary"`
}

// ExcludedTask is one row of the EXCLUDED partition with its first failing
// check.
type ExcludedTask struct {
	TaskID string `json:"task_id"`
	Title  string `json:"title"`
	Owner  string `json:"owner"`
	Scope  string `json:"scope"`
	Deps   string `json:"deps"`
	Status string `json:"status"`
	Reason string `json:"reason"`
	Source string `json:"source"`
}

// LockInfo is the display view of one currently held mutual-exclusion lock.
type LockInfo struct {
	TaskID string `json:"task_id"`
	Owner  string `json:"owner"`
	Scope  string `json:"scope"`
}

// ReadyInput is one scheduling snapshot. The engine never touches the
// filesystem; the caller gathers these once per invocation.
type ReadyInput struct {
	Trigger     string
	RepoRoot    string
	StateDir    string
	Tasks       []board.Task
	Gates       map[string]board.GateState
	Records     []state.WorkerRecord
	Locks       []state.LockRecord
	OwnersByKey map[string]string
	MaxStart    int // 0 disables the cap
}

// ReadyReport is the scheduler's output for one invocation.
type ReadyReport struct {
	RunID         string         `json:"run_id"`
	Trigger       string         `json:"trigger"`
	RepoRoot      string         `json:"repo_root"`
	StateDir      string         `json:"state_dir"`
	MaxStart      int            `json:"max_start"`
	RunningLocks  []LockInfo     `json:"running_locks"`
	ReadyTasks    []ReadyTask    `json:"ready_tasks"`
	ExcludedTasks []ExcludedTask `json:"excluded_tasks"`
}

// Engine evaluates scheduling snapshots.
type Engine struct {
	Specs SpecEvaluator
}

// New returns an Engine backed by the given spec collaborator.
func New(specs SpecEvaluator) *Engine {
	return &Engine{Specs: specs}
}

// activeSignal is the strongest exclusion evidence found for one task id.
type activeSignal struct {
	reason string
	source string
}

// activeMaps aggregates active worker records: the strongest signal per task
// id (a live process outranks a lock-only signal), the set of busy owner
// keys, and the task ids with conflicting signals.
func activeMaps(records []state.WorkerRecord) (byTask map[string]activeSignal, busyOwners map[string]bool, conflicts map[string]bool) {
	byTask = make(map[string]activeSignal)
	busyOwners = make(map[string]bool)
	conflicts = make(map[string]bool)

	activePerTask := make(map[string][]state.WorkerRecord)

	for _, rec := range records {
		if rec.TaskID == "" || !rec.State.Active() {
			continue
		}
		activePerTask[rec.TaskID] = append(activePerTask[rec.TaskID], rec)

		if rec.Owner != "" {
			busyOwners[config.OwnerKey(rec.Owner)] = true
		}

		switch {
		case rec.PIDAlive:
			byTask[rec.TaskID] = activeSignal{reason: ReasonActiveWorker, source: SourcePID}
		case rec.LockFile != "":
			if _, seen := byTask[rec.TaskID]; !seen {
				byTask[rec.TaskID] = activeSignal{reason: ReasonActiveLock, source: SourceLock}
			}
		}
	}

	// Conservative conflict rule: any duplication of active records for one
	// task id with both lock and live-pid evidence present across the set is
	// flagged, even when owner and scope agree.
	for taskID, recs := range activePerTask {
		if len(recs) <= 1 {
			continue
		}
		var hasLock, hasPID bool
		for _, r := range recs {
			hasLock = hasLock || r.LockFile != ""
			hasPID = hasPID || r.PIDAlive
		}
		if hasLock && hasPID {
			conflicts[taskID] = true
		}
	}

	return byTask, busyOwners, conflicts
}

// Ready partitions the snapshot's TODO tasks into READY and EXCLUDED, in
// board order. Tasks whose status is not TODO or whose owner maps to no
// scope are omitted entirely. At most one READY task per owner; the
// max-start cap stops the scan once reached.
func (e *Engine) Ready(in ReadyInput) ReadyReport {
	rep := ReadyReport{
		RunID:         uuid.NewString(),
		Trigger:       in.Trigger,
		RepoRoot:      in.RepoRoot,
		StateDir:      in.StateDir,
		MaxStart:      in.MaxStart,
		RunningLocks:  make([]LockInfo, 0, len(in.Locks)),
		ReadyTasks:    []ReadyTask{},
		ExcludedTasks: []ExcludedTask{},
	}

	for _, lock := range in.Locks {
		rep.RunningLocks = append(rep.RunningLocks, LockInfo{
			TaskID: lock.TaskID,
			Owner:  lock.Owner,
			Scope:  lock.Scope,
		})
	}

	taskStatus := board.StatusIndex(in.Tasks)
	byTask, busyOwners, conflicts := activeMaps(in.Records)
	scheduled := make(map[string]bool)

	exclude := func(t board.Task, scope, reason, source string) {
		rep.ExcludedTasks = append(rep.ExcludedTasks, ExcludedTask{
			TaskID: t.ID,
			Title:  t.Title,
			Owner:  t.Owner,
			Scope:  scope,
			Deps:   t.Deps,
			Status: t.Status,
			Reason: reason,
			Source: source,
		})
	}

	for _, task := range in.Tasks {
		if task.Status != board.StatusTODO {
			continue
		}

		ownerKey := config.OwnerKey(task.Owner)
		scope := in.OwnersByKey[ownerKey]
		if scope == "" {
			// Unmapped owners are not scheduling candidates at all.
			continue
		}

		if conflicts[task.ID] {
			exclude(task, scope, ReasonSignalConflict, SourceScheduler)
			continue
		}

		if sig, ok := byTask[task.ID]; ok {
			exclude(task, scope, sig.reason, sig.source)
			continue
		}

		if busyOwners[ownerKey] || scheduled[ownerKey] {
			exclude(task, scope, ReasonOwnerBusy, SourceScheduler)
			continue
		}

		spec := e.Specs.Evaluate(in.RepoRoot, task.ID)
		if !spec.Exists {
			exclude(task, scope, ReasonMissingSpec, SourceScheduler)
			continue
		}
		if !spec.Valid {
			exclude(task, scope, ReasonInvalidSpec, SourceScheduler)
			continue
		}

		if !board.DepsReady(task.Deps, taskStatus, in.Gates) {
			exclude(task, scope, ReasonDepsNotReady, SourceScheduler)
			continue
		}

		rep.ReadyTasks = append(rep.ReadyTasks, ReadyTask{
			TaskID:            task.ID,
			Title:             task.Title,
			Owner:             task.Owner,
			OwnerKey:          ownerKey,
			Scope:             scope,
			Deps:              task.Deps,
			Status:            task.Status,
			SpecRelPath:       spec.SpecRelPath,
			GoalSummary:       spec.GoalSummary,
			InScopeSummary:    spec.InScopeSummary,
			AcceptanceSummary: spec.AcceptanceSummary,
		})
		scheduled[ownerKey] = true

		if in.MaxStart > 0 && len(rep.ReadyTasks) >= in.MaxStart {
			break
		}
	}

	return rep
}
