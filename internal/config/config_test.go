package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, repoRoot, content string) string {
	t.Helper()
	path := filepath.Join(repoRoot, ".state", "orchestrator.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoad_Bootstrap verifies a missing config file is written with defaults
// and loads cleanly.
func TestLoad_Bootstrap(t *testing.T) {
	root := t.TempDir()

	cfg, path, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("bootstrap did not write %s: %v", path, err)
	}
	if cfg.Repo.TodoFile != "TODO.md" || cfg.Runtime.LaunchBackend != "tmux" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Owners) == 0 {
		t.Error("default owners map is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), filepath.Base(root)+"-worktrees") {
		t.Errorf("bootstrap config should expand <repo> placeholder, got:\n%s", data)
	}
}

// TestLoad_OverridesMergeOverDefaults verifies user keys win while absent
// keys keep their defaults.
func TestLoad_OverridesMergeOverDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[repo]
todo_file = "BOARD.md"

[owners]
AgentZ = "experimental"

[runtime]
max_start = 3
launch_backend = "AUTO"
`)

	cfg, _, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Repo.TodoFile != "BOARD.md" {
		t.Errorf("TodoFile = %q, want override", cfg.Repo.TodoFile)
	}
	if cfg.Repo.BaseBranch != "main" {
		t.Errorf("BaseBranch = %q, want default main", cfg.Repo.BaseBranch)
	}
	if cfg.Runtime.MaxStart != 3 {
		t.Errorf("MaxStart = %d, want 3", cfg.Runtime.MaxStart)
	}
	if cfg.Runtime.LaunchBackend != "auto" {
		t.Errorf("LaunchBackend = %q, want normalized auto", cfg.Runtime.LaunchBackend)
	}
	if cfg.Owners["AgentZ"] != "experimental" || cfg.Owners["AgentA"] == "" {
		t.Errorf("owners should merge by key: %v", cfg.Owners)
	}
	if cfg.Todo.StatusCol != 7 {
		t.Errorf("StatusCol = %d, want default 7", cfg.Todo.StatusCol)
	}
}

// TestLoad_Validation verifies fail-fast schema errors.
func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantSub string
	}{
		{"bad column", "[todo]\nid_col = 0\n", "todo.id_col"},
		{"bad backend", "[runtime]\nlaunch_backend = \"docker\"\n", "launch_backend"},
		{"empty keywords", "[todo]\ndone_keywords = []\n", "done_keywords"},
		{"bad toml", "definitely not toml [", "invalid TOML"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			writeConfig(t, root, tc.content)
			_, _, err := Load(root, "")
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("error = %v, want mention of %q", err, tc.wantSub)
			}
		})
	}
}

// TestOwnerKey verifies normalization keeps lowercase letters and digits
// across scripts, so differently-punctuated spellings collapse while
// distinct non-ASCII owners stay distinct.
func TestOwnerKey(t *testing.T) {
	cases := map[string]string{
		"AgentA":   "agenta",
		"Agent A":  "agenta",
		"agent-a!": "agenta",
		"에이전트":     "에이전트",
		"태윤":       "태윤",
		"Łukasz":   "łukasz",
		"Agent 2":  "agent2",
	}
	for in, want := range cases {
		if got := OwnerKey(in); got != want {
			t.Errorf("OwnerKey(%q) = %q, want %q", in, got, want)
		}
	}
	if OwnerKey("태윤") == OwnerKey("민준") {
		t.Error("distinct Hangul owners must not collapse to the same key")
	}
}

// TestResolve_Paths verifies path resolution, state-dir overrides, and the
// owners-by-key map.
func TestResolve_Paths(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeConfig(t, root, "")
	cfg, _, err := Load(root, "")
	if err != nil {
		t.Fatal(err)
	}

	ctx, err := Resolve(root, cfg, "", cfgPath)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if ctx.TodoFile != filepath.Join(root, "TODO.md") {
		t.Errorf("TodoFile = %q", ctx.TodoFile)
	}
	if ctx.LockDir != filepath.Join(root, ".state", "locks") {
		t.Errorf("LockDir = %q", ctx.LockDir)
	}
	if ctx.OrchDir != filepath.Join(root, ".state", "orchestrator") {
		t.Errorf("OrchDir = %q", ctx.OrchDir)
	}
	if ctx.OwnersByKey["agenta"] != "app-shell" {
		t.Errorf("OwnersByKey = %v", ctx.OwnersByKey)
	}
	if ctx.Schema.Gate == nil {
		t.Error("Schema.Gate not compiled")
	}
	if !strings.Contains(ctx.WorktreeParent, filepath.Base(root)+"-worktrees") {
		t.Errorf("WorktreeParent = %q, want <repo> expanded", ctx.WorktreeParent)
	}
}

// TestResolve_StateDirOverride verifies the override flag re-roots the state
// directory at the repo root.
func TestResolve_StateDirOverride(t *testing.T) {
	root := t.TempDir()
	cfgPath := writeConfig(t, root, "")
	cfg, _, err := Load(root, "")
	if err != nil {
		t.Fatal(err)
	}

	ctx, err := Resolve(root, cfg, "tmp-state", cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.StateDir != filepath.Join(root, "tmp-state") {
		t.Errorf("StateDir = %q, want flag override under repo root", ctx.StateDir)
	}
}
