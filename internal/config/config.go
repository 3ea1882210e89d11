// Package config loads the orchestrator TOML configuration: explicit
// defaults overlaid with the user's file, validated and resolved once into
// an immutable Context that every component receives.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/pelletier/go-toml/v2"
)

// Config mirrors the TOML file layout.
type Config struct {
	Repo    RepoConfig        `toml:"repo"`
	Owners  map[string]string `toml:"owners"`
	Runtime RuntimeConfig     `toml:"runtime"`
	Todo    TodoConfig        `toml:"todo"`
}

// RepoConfig locates the board and state relative to the repository.
type RepoConfig struct {
	BaseBranch     string `toml:"base_branch"`
	TodoFile       string `toml:"todo_file"`
	StateDir       string `toml:"state_dir"`
	WorktreeParent string `toml:"worktree_parent"`
}

// RuntimeConfig holds scheduling and launch knobs.
type RuntimeConfig struct {
	MaxStart      int    `toml:"max_start"`
	LaunchBackend string `toml:"launch_backend"`
	AutoNoLaunch  bool   `toml:"auto_no_launch"`
	CodexFlags    string `toml:"codex_flags"`
}

// TodoConfig is the board column schema plus gate extraction rules.
// Column numbers are 1-based positions in the pipe table.
type TodoConfig struct {
	IDCol        int      `toml:"id_col"`
	TitleCol     int      `toml:"title_col"`
	OwnerCol     int      `toml:"owner_col"`
	DepsCol      int      `toml:"deps_col"`
	StatusCol    int      `toml:"status_col"`
	GateRegex    string   `toml:"gate_regex"`
	DoneKeywords []string `toml:"done_keywords"`
}

// Default returns the built-in configuration layer.
func Default() Config {
	return Config{
		Repo: RepoConfig{
			BaseBranch:     "main",
			TodoFile:       "TODO.md",
			StateDir:       ".state",
			WorktreeParent: "../<repo>-worktrees",
		},
		Owners: map[string]string{
			"AgentA": "app-shell",
			"AgentB": "domain-core",
			"AgentC": "provider-openai",
			"AgentD": "ui-popover",
			"AgentE": "ci-release",
		},
		Runtime: RuntimeConfig{
			MaxStart:      0,
			LaunchBackend: "tmux",
			AutoNoLaunch:  false,
			CodexFlags:    `--full-auto -m gpt-5.3-codex -c model_reasoning_effort="medium"`,
		},
		Todo: TodoConfig{
			IDCol:        2,
			TitleCol:     3,
			OwnerCol:     4,
			DepsCol:      5,
			StatusCol:    7,
			GateRegex:    "`(G[0-9]+ \\([^)]+\\))`",
			DoneKeywords: []string{"DONE", "완료", "Complete", "complete"},
		},
	}
}

// validLaunchBackends are the accepted runtime.launch_backend values.
var validLaunchBackends = map[string]bool{"auto": true, "tmux": true, "codex_exec": true}

// Load reads the config at explicitPath (or <repoRoot>/.state/orchestrator.toml
// when empty), bootstrapping the default file when it is missing. The user
// file is decoded over the defaults so absent keys keep their default value.
func Load(repoRoot, explicitPath string) (Config, string, error) {
	cfgPath := explicitPath
	if cfgPath == "" {
		cfgPath = filepath.Join(repoRoot, ".state", "orchestrator.toml")
	} else if !filepath.IsAbs(cfgPath) {
		cfgPath = filepath.Join(repoRoot, cfgPath)
	}

	if err := bootstrapIfMissing(cfgPath); err != nil {
		return Config{}, "", err
	}

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return Config{}, "", fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, "", fmt.Errorf("invalid TOML in %s: %w", cfgPath, err)
	}

	if err := validate(&cfg); err != nil {
		return Config{}, "", err
	}
	return cfg, cfgPath, nil
}

func validate(cfg *Config) error {
	if len(cfg.Owners) == 0 {
		return fmt.Errorf("[owners] must be a non-empty table")
	}

	cols := map[string]int{
		"id_col":     cfg.Todo.IDCol,
		"title_col":  cfg.Todo.TitleCol,
		"owner_col":  cfg.Todo.OwnerCol,
		"deps_col":   cfg.Todo.DepsCol,
		"status_col": cfg.Todo.StatusCol,
	}
	for name, v := range cols {
		if v < 1 {
			return fmt.Errorf("todo.%s must be an integer >= 1", name)
		}
	}

	if len(cfg.Todo.DoneKeywords) == 0 {
		return fmt.Errorf("todo.done_keywords must be a non-empty list")
	}

	if _, err := regexp.Compile(cfg.Todo.GateRegex); err != nil {
		return fmt.Errorf("todo.gate_regex: %w", err)
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Runtime.LaunchBackend))
	if !validLaunchBackends[backend] {
		return fmt.Errorf("runtime.launch_backend must be one of: auto, tmux, codex_exec")
	}
	cfg.Runtime.LaunchBackend = backend
	return nil
}

// OwnerKey normalizes an owner display name for map lookups: lowercase
// letters and digits only, so "Agent A" and "agenta" collapse to the same
// key. Letters and digits are Unicode classes, not ASCII; owner names in
// other scripts keep their identity.
func OwnerKey(owner string) string {
	var b strings.Builder
	for _, ch := range owner {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			b.WriteRune(unicode.ToLower(ch))
		}
	}
	return b.String()
}

// bootstrapIfMissing writes the default config file, expanding the <repo>
// placeholder from the inferred repository name.
func bootstrapIfMissing(cfgPath string) error {
	if _, err := os.Stat(cfgPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	repoName := filepath.Base(filepath.Dir(cfgPath))
	if filepath.Base(filepath.Dir(cfgPath)) == ".state" {
		repoName = filepath.Base(filepath.Dir(filepath.Dir(cfgPath)))
	}

	cfg := Default()
	cfg.Repo.WorktreeParent = strings.ReplaceAll(cfg.Repo.WorktreeParent, "<repo>", repoName)

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("render default config: %w", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
