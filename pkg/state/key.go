// Package state reconciles the two on-disk worker signal sources, liveness
// files and mutual-exclusion lock files, into one canonical record per
// worker slot. It never mutates those files; cleanup belongs to the process
// launcher.
package state

import (
	"fmt"
	"strings"
)

// RecordKey identifies one worker slot within a scan. A record with a known
// task id gets a task key; orphaned signals get a synthetic key derived from
// the originating file so they are never silently dropped and can never
// collide with a real task id.
type RecordKey struct {
	taskID    string
	synthetic string
}

// TaskKey returns the key for a record that names its task.
func TaskKey(id string) RecordKey {
	return RecordKey{taskID: id}
}

// OrphanPIDKey returns the synthetic key for a liveness file that names no
// task, derived from the file's base name without extension.
func OrphanPIDKey(stem string) RecordKey {
	return RecordKey{synthetic: fmt.Sprintf("PIDONLY:%s", stem)}
}

// OrphanLockKey returns the synthetic key for a lock file that names no task.
func OrphanLockKey(scope, owner, file string) RecordKey {
	return RecordKey{synthetic: fmt.Sprintf("LOCKONLY:%s:%s:%s", scope, owner, file)}
}

// IsTask reports whether the key names a real task.
func (k RecordKey) IsTask() bool { return k.taskID != "" }

// TaskID returns the task id for task keys, "" otherwise.
func (k RecordKey) TaskID() string { return k.taskID }

// String renders the key for display and sorting.
func (k RecordKey) String() string {
	if k.taskID != "" {
		return k.taskID
	}
	return k.synthetic
}

// MarshalText renders the key in payloads exactly as String does.
func (k RecordKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText restores a key from its rendered form. Synthetic keys are
// recognized by their reserved prefixes.
func (k *RecordKey) UnmarshalText(text []byte) error {
	s := string(text)
	if strings.HasPrefix(s, "PIDONLY:") || strings.HasPrefix(s, "LOCKONLY:") {
		*k = RecordKey{synthetic: s}
		return nil
	}
	*k = RecordKey{taskID: s}
	return nil
}
