package main

import (
	"reflect"
	"testing"
)

// TestIsSignalPath verifies only files the snapshot depends on trigger a
// refresh.
func TestIsSignalPath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"liveness file", "/state/orchestrator/T1-001.pid", true},
		{"lock file", "/state/locks/app-shell.lock", true},
		{"audit db", "/state/orchestrator/audit.db", true},
		{"audit wal", "/state/orchestrator/audit.db-wal", true},
		{"updates feed", "/state/LATEST_UPDATES.md", true},
		{"new subdirectory", "/state/locks", true},
		{"hidden file", "/state/.DS_Store", false},
		{"editor backup", "/state/TODO.md~", false},
		{"temp file", "/state/orchestrator/audit.db.tmp", false},
		{"swap file", "/state/.TODO.md.swp", false},
		{"log file", "/state/orchestrator/T1-001.jsonl", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isSignalPath(tt.path); got != tt.want {
				t.Errorf("isSignalPath(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

// TestSignalDirs verifies deduplication and empty-path filtering.
func TestSignalDirs(t *testing.T) {
	paths := dashPaths{
		StateDir: "/state",
		LockDir:  "/state/locks",
		OrchDir:  "/state/locks",
	}
	got := signalDirs(paths)
	want := []string{"/state", "/state/locks"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("signalDirs() = %v, want %v", got, want)
	}

	if dirs := signalDirs(dashPaths{}); dirs != nil {
		t.Errorf("signalDirs(zero) = %v, want nil", dirs)
	}
}
