package state

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadLivenessInventory verifies pid files parse with missing keys
// defaulting to empty and orphans getting synthetic keys.
func TestLoadLivenessInventory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "T1-001.pid", "task_id=T1-001\nowner=AgentA\nscope=app-shell\npid=4242\nworktree=/tmp/wt\ntmux_session=codex-T1-001\nlaunch_backend=tmux\nlog_file=/tmp/t1.log\n")
	writeFile(t, dir, "stray.pid", "pid=99\n")
	writeFile(t, dir, "notes.txt", "ignored")

	rows, err := LoadLivenessInventory(dir)
	if err != nil {
		t.Fatalf("LoadLivenessInventory() error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2 (txt file must be ignored)", len(rows))
	}

	// Sorted by file name: T1-001.pid before stray.pid.
	full := rows[0]
	if full.Key.String() != "T1-001" || full.Owner != "AgentA" || full.PID != "4242" {
		t.Errorf("full record parsed wrong: %+v", full)
	}
	if full.TmuxSession != "codex-T1-001" || full.LaunchBackend != "tmux" || full.LogFile != "/tmp/t1.log" {
		t.Errorf("launch metadata parsed wrong: %+v", full)
	}

	orphan := rows[1]
	if orphan.Key.String() != "PIDONLY:stray" {
		t.Errorf("orphan key = %q, want PIDONLY:stray", orphan.Key)
	}
	if orphan.Owner != "" || orphan.Scope != "" {
		t.Errorf("missing keys should default to empty: %+v", orphan)
	}
}

// TestLoadLockInventory verifies lock files parse and lock-only orphans get
// a scope/owner/file-derived synthetic key.
func TestLoadLockInventory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app-shell.lock", "task_id=T1-001\nowner=AgentA\nscope=app-shell\nworktree=/tmp/wt\n")
	writeFile(t, dir, "manual.lock", "owner=AgentB\nscope=domain-core\n")

	rows, err := LoadLockInventory(dir)
	if err != nil {
		t.Fatalf("LoadLockInventory() error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].Key.String() != "T1-001" {
		t.Errorf("task lock key = %q", rows[0].Key)
	}
	if rows[1].Key.String() != "LOCKONLY:domain-core:AgentB:manual.lock" {
		t.Errorf("orphan lock key = %q", rows[1].Key)
	}
}

// TestLoadInventory_MissingDir verifies a missing inventory directory is an
// empty inventory, not an error.
func TestLoadInventory_MissingDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	pids, err := LoadLivenessInventory(missing)
	if err != nil || pids != nil {
		t.Errorf("LoadLivenessInventory(missing) = %v, %v; want nil, nil", pids, err)
	}
	locks, err := LoadLockInventory(missing)
	if err != nil || locks != nil {
		t.Errorf("LoadLockInventory(missing) = %v, %v; want nil, nil", locks, err)
	}
}

// TestReadFields_FirstOccurrenceWins verifies duplicate keys keep the first
// value and lines without '=' are skipped.
func TestReadFields_FirstOccurrenceWins(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "x.pid", "junk line\npid=1\npid=2\n")

	fields := readFields(path)
	if fields["pid"] != "1" {
		t.Errorf("pid = %q, want first occurrence 1", fields["pid"])
	}
}

// TestEndToEnd_RunningAndStale verifies file-level round trips: both files
// plus a live pid classify RUNNING; a dead pid flips to LOCK_STALE.
func TestEndToEnd_RunningAndStale(t *testing.T) {
	base := t.TempDir()
	orchDir := filepath.Join(base, "orchestrator")
	lockDir := filepath.Join(base, "locks")
	worktree := filepath.Join(base, "wt")
	for _, d := range []string{orchDir, lockDir, worktree} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	self := os.Getpid()
	writeFile(t, orchDir, "T1-001.pid",
		"task_id=T1-001\nowner=AgentA\nscope=app\npid="+strconv.Itoa(self)+"\nworktree="+worktree+"\n")
	writeFile(t, lockDir, "app.lock",
		"task_id=T1-001\nowner=AgentA\nscope=app\nworktree="+worktree+"\n")

	pids, err := LoadLivenessInventory(orchDir)
	if err != nil {
		t.Fatal(err)
	}
	locks, err := LoadLockInventory(lockDir)
	if err != nil {
		t.Fatal(err)
	}

	records := Classify(pids, locks, DefaultProbe())
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].State != StateRunning {
		t.Errorf("State = %s, want RUNNING (own pid is alive)", records[0].State)
	}

	// Same snapshot but with a pid that cannot be alive.
	pids[0].PID = "999999999"
	records = Classify(pids, locks, DefaultProbe())
	if records[0].State != StateLockStale {
		t.Errorf("State = %s, want LOCK_STALE for dead pid", records[0].State)
	}
}
