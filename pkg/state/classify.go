package state

import (
	"errors"
	"os"
	"sort"
	"strconv"
	"syscall"
)

// State is the reconciled condition of one worker slot.
type State string

const (
	// Active states: a worker is, or may still be, doing work.
	StateRunning    State = "RUNNING"
	StateLocked     State = "LOCKED"
	StateFinalizing State = "FINALIZING"

	// Stale states: on-disk evidence has diverged from reality and needs
	// operator cleanup.
	StateLockStale        State = "LOCK_STALE"
	StateFinalizingExited State = "FINALIZING_EXITED"
	StateOrphanLock       State = "ORPHAN_LOCK"
	StateOrphanPID        State = "ORPHAN_PID"
	StateMissingWorktree  State = "MISSING_WORKTREE"

	StateUnknown State = "UNKNOWN"
)

// Active reports whether the state counts toward owner busyness and task
// exclusion in the scheduler.
func (s State) Active() bool {
	switch s {
	case StateRunning, StateLocked, StateFinalizing:
		return true
	}
	return false
}

// Stale reports whether the state needs operator cleanup.
func (s State) Stale() bool {
	switch s {
	case StateLockStale, StateFinalizingExited, StateOrphanLock, StateOrphanPID, StateMissingWorktree:
		return true
	}
	return false
}

// WorkerRecord is the reconciled view of one worker slot. Records are
// rebuilt from scratch on every scan and never mutated in place.
type WorkerRecord struct {
	Key            RecordKey `json:"key"`
	TaskID         string    `json:"task_id"`
	Owner          string    `json:"owner"`
	Scope          string    `json:"scope"`
	State          State     `json:"state"`
	PID            int       `json:"pid"` // 0 when the liveness file carried no usable pid
	PIDAlive       bool      `json:"pid_alive"`
	PIDFile        string    `json:"pid_file"`  // "" when no liveness file contributed
	LockFile       string    `json:"lock_file"` // "" when no lock file contributed
	Worktree       string    `json:"worktree"`
	WorktreeExists bool      `json:"worktree_exists"`
	TmuxSession    string    `json:"tmux_session"`
	LaunchBackend  string    `json:"launch_backend"`
	LogFile        string    `json:"log_file"`
	Stale          bool      `json:"stale"`
}

// Summary counts records per state across one scan.
type Summary struct {
	Total       int           `json:"total"`
	StateCounts map[State]int `json:"state_counts"`
}

// Probe abstracts the environment checks classification performs, so tests
// can simulate dead processes and missing worktrees.
type Probe struct {
	PIDAlive  func(pid int) bool
	DirExists func(path string) bool
}

// DefaultProbe checks real processes and the real filesystem.
func DefaultProbe() Probe {
	return Probe{PIDAlive: PIDAlive, DirExists: dirExists}
}

// PIDAlive reports whether pid names a live process: signaling it with the
// no-op signal 0 must succeed. Permission denied counts as alive; a
// nonexistent process does not.
func PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

func dirExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Classify merges the two inventories by key and derives one WorkerRecord
// per key, sorted by key for deterministic iteration.
func Classify(pidRows []LivenessRecord, lockRows []LockRecord, probe Probe) []WorkerRecord {
	type pair struct {
		pid  *LivenessRecord
		lock *LockRecord
	}

	byKey := make(map[RecordKey]*pair)
	for i := range pidRows {
		row := &pidRows[i]
		p := byKey[row.Key]
		if p == nil {
			p = &pair{}
			byKey[row.Key] = p
		}
		if p.pid == nil {
			p.pid = row
		}
	}
	for i := range lockRows {
		row := &lockRows[i]
		p := byKey[row.Key]
		if p == nil {
			p = &pair{}
			byKey[row.Key] = p
		}
		if p.lock == nil {
			p.lock = row
		}
	}

	keys := make([]RecordKey, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	records := make([]WorkerRecord, 0, len(keys))
	for _, key := range keys {
		p := byKey[key]

		var pidRow LivenessRecord
		if p.pid != nil {
			pidRow = *p.pid
		}
		var lockRow LockRecord
		if p.lock != nil {
			lockRow = *p.lock
		}

		rec := WorkerRecord{
			Key:           key,
			TaskID:        firstNonEmpty(pidRow.TaskID, lockRow.TaskID, key.String()),
			Owner:         firstNonEmpty(pidRow.Owner, lockRow.Owner),
			Scope:         firstNonEmpty(pidRow.Scope, lockRow.Scope),
			PIDFile:       pidRow.File,
			LockFile:      lockRow.File,
			Worktree:      firstNonEmpty(pidRow.Worktree, lockRow.Worktree),
			TmuxSession:   pidRow.TmuxSession,
			LaunchBackend: pidRow.LaunchBackend,
			LogFile:       pidRow.LogFile,
		}

		if n, err := strconv.Atoi(pidRow.PID); err == nil && n > 0 {
			rec.PID = n
		}
		rec.PIDAlive = rec.PIDFile != "" && rec.PID > 0 && probe.PIDAlive(rec.PID)
		rec.WorktreeExists = rec.Worktree != "" && probe.DirExists(rec.Worktree)

		rec.State = deriveState(rec)
		rec.Stale = rec.State.Stale()
		records = append(records, rec)
	}
	return records
}

// deriveState applies the state priority ladder. A recorded-but-missing
// worktree outranks every liveness signal: whatever the files claim, the
// work area is gone.
func deriveState(rec WorkerRecord) State {
	hasPID := rec.PIDFile != ""
	hasLock := rec.LockFile != ""

	if rec.Worktree != "" && !rec.WorktreeExists {
		switch {
		case hasLock && !hasPID:
			return StateOrphanLock
		case hasPID && !hasLock:
			return StateOrphanPID
		default:
			return StateMissingWorktree
		}
	}

	switch {
	case hasPID && hasLock && rec.PIDAlive:
		return StateRunning
	case hasPID && hasLock:
		return StateLockStale
	case hasPID && rec.PIDAlive:
		return StateFinalizing
	case hasPID:
		return StateFinalizingExited
	case hasLock:
		// Lock-only is valid for manual work in a dedicated worktree.
		return StateLocked
	}
	return StateUnknown
}

// Summarize counts records per state.
func Summarize(records []WorkerRecord) Summary {
	counts := make(map[State]int)
	for _, r := range records {
		counts[r.State]++
	}
	return Summary{Total: len(records), StateCounts: counts}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
