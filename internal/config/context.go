package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"overseer/pkg/board"
)

// Context is the resolved, immutable view of one configuration: absolute
// paths, normalized owner maps, and the compiled board schema. It is built
// once at startup and passed to every component.
type Context struct {
	RepoRoot   string
	RepoName   string
	RepoParent string
	BaseBranch string
	ConfigPath string

	TodoFile       string
	StateDir       string
	LockDir        string
	OrchDir        string
	UpdatesFile    string
	WorktreeParent string

	Runtime RuntimeConfig
	Todo    TodoConfig

	// Owners maps display name to scope; OwnersByKey is the same map keyed
	// by OwnerKey-normalized names, which is what the scheduler consults.
	Owners      map[string]string
	OwnersByKey map[string]string

	Schema board.Schema
}

// Resolve turns a validated Config into a Context. stateDirOverride (a flag)
// outranks the AI_STATE_DIR environment variable, which outranks the config
// value. When the config file lives in <repo>/.state/, relative repo paths
// resolve against that repo root rather than the invocation root.
func Resolve(repoRoot string, cfg Config, stateDirOverride, cfgPath string) (Context, error) {
	gate, err := regexp.Compile(cfg.Todo.GateRegex)
	if err != nil {
		return Context{}, fmt.Errorf("todo.gate_regex: %w", err)
	}

	configRepoRoot := repoRoot
	if cfgPath != "" && filepath.Base(filepath.Dir(cfgPath)) == ".state" {
		configRepoRoot = filepath.Dir(filepath.Dir(cfgPath))
	}

	worktreeParent := strings.ReplaceAll(cfg.Repo.WorktreeParent, "<repo>", filepath.Base(configRepoRoot))

	stateSrc := cfg.Repo.StateDir
	stateBase := configRepoRoot
	if stateDirOverride != "" {
		stateSrc = stateDirOverride
		stateBase = repoRoot
	} else if env := os.Getenv("AI_STATE_DIR"); env != "" {
		stateSrc = env
		stateBase = repoRoot
	}
	stateDir := toAbs(stateBase, stateSrc)

	ctx := Context{
		RepoRoot:   repoRoot,
		RepoName:   filepath.Base(repoRoot),
		RepoParent: filepath.Dir(repoRoot),
		BaseBranch: cfg.Repo.BaseBranch,
		ConfigPath: cfgPath,

		TodoFile:       toAbs(configRepoRoot, cfg.Repo.TodoFile),
		StateDir:       stateDir,
		LockDir:        filepath.Join(stateDir, "locks"),
		OrchDir:        filepath.Join(stateDir, "orchestrator"),
		UpdatesFile:    filepath.Join(stateDir, "LATEST_UPDATES.md"),
		WorktreeParent: toAbs(configRepoRoot, worktreeParent),

		Runtime: cfg.Runtime,
		Todo:    cfg.Todo,

		Owners:      make(map[string]string, len(cfg.Owners)),
		OwnersByKey: make(map[string]string, len(cfg.Owners)),

		Schema: board.Schema{
			IDCol:        cfg.Todo.IDCol,
			TitleCol:     cfg.Todo.TitleCol,
			OwnerCol:     cfg.Todo.OwnerCol,
			DepsCol:      cfg.Todo.DepsCol,
			StatusCol:    cfg.Todo.StatusCol,
			Gate:         gate,
			DoneKeywords: cfg.Todo.DoneKeywords,
		},
	}

	for owner, scope := range cfg.Owners {
		ctx.Owners[owner] = scope
		ctx.OwnersByKey[OwnerKey(owner)] = scope
	}
	return ctx, nil
}

func toAbs(base, value string) string {
	if strings.HasPrefix(value, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			value = filepath.Join(home, strings.TrimPrefix(value, "~"))
		}
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Clean(filepath.Join(base, value))
}
