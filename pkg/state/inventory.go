package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LivenessRecord is one parsed *.pid file: the launcher's claim that a
// process is (or was) running a task.
type LivenessRecord struct {
	Key           RecordKey
	TaskID        string
	Owner         string
	Scope         string
	PID           string
	Worktree      string
	TmuxSession   string
	LaunchBackend string
	LogFile       string
	File          string
}

// LockRecord is one parsed *.lock file: a claim on a mutual-exclusion scope,
// independent of process liveness.
type LockRecord struct {
	Key      RecordKey
	TaskID   string
	Owner    string
	Scope    string
	Worktree string
	File     string
}

// LoadLivenessInventory reads every *.pid file under dir, sorted by name.
// A missing directory is an empty inventory, not an error.
func LoadLivenessInventory(dir string) ([]LivenessRecord, error) {
	files, err := inventoryFiles(dir, ".pid")
	if err != nil || files == nil {
		return nil, err
	}

	rows := make([]LivenessRecord, 0, len(files))
	for _, path := range files {
		fields := readFields(path)
		taskID := fields["task_id"]

		key := TaskKey(taskID)
		if taskID == "" {
			stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			key = OrphanPIDKey(stem)
		}

		rows = append(rows, LivenessRecord{
			Key:           key,
			TaskID:        taskID,
			Owner:         fields["owner"],
			Scope:         fields["scope"],
			PID:           fields["pid"],
			Worktree:      fields["worktree"],
			TmuxSession:   fields["tmux_session"],
			LaunchBackend: fields["launch_backend"],
			LogFile:       fields["log_file"],
			File:          path,
		})
	}
	return rows, nil
}

// LoadLockInventory reads every *.lock file under dir, sorted by name.
// A missing directory is an empty inventory, not an error.
func LoadLockInventory(dir string) ([]LockRecord, error) {
	files, err := inventoryFiles(dir, ".lock")
	if err != nil || files == nil {
		return nil, err
	}

	rows := make([]LockRecord, 0, len(files))
	for _, path := range files {
		fields := readFields(path)
		taskID := fields["task_id"]

		key := TaskKey(taskID)
		if taskID == "" {
			key = OrphanLockKey(fields["scope"], fields["owner"], filepath.Base(path))
		}

		rows = append(rows, LockRecord{
			Key:      key,
			TaskID:   taskID,
			Owner:    fields["owner"],
			Scope:    fields["scope"],
			Worktree: fields["worktree"],
			File:     path,
		})
	}
	return rows, nil
}

// inventoryFiles lists the regular files with the given extension, sorted.
func inventoryFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan inventory %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// readFields parses a flat key=value file. Unreadable files and missing keys
// yield empty strings; a single bad file never fails the whole scan.
func readFields(path string) map[string]string {
	fields := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return fields
	}
	for _, line := range strings.Split(string(data), "\n") {
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key := strings.TrimSpace(k)
		if _, seen := fields[key]; seen {
			continue // first occurrence wins
		}
		fields[key] = strings.TrimSpace(v)
	}
	return fields
}
