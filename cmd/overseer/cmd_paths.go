package main

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"overseer/internal/config"
)

// pathsPayload is the JSON shape of the resolved context, consumed by the
// launcher scripts.
type pathsPayload struct {
	RepoRoot       string            `json:"repo_root"`
	RepoName       string            `json:"repo_name"`
	RepoParent     string            `json:"repo_parent"`
	BaseBranch     string            `json:"base_branch"`
	ConfigPath     string            `json:"config_path"`
	TodoFile       string            `json:"todo_file"`
	StateDir       string            `json:"state_dir"`
	LockDir        string            `json:"lock_dir"`
	OrchDir        string            `json:"orch_dir"`
	UpdatesFile    string            `json:"updates_file"`
	WorktreeParent string            `json:"worktree_parent"`
	Runtime        runtimePayload    `json:"runtime"`
	Todo           todoPayload       `json:"todo"`
	Owners         map[string]string `json:"owners"`
	OwnersByKey    map[string]string `json:"owners_by_key"`
}

type runtimePayload struct {
	MaxStart      int    `json:"max_start"`
	LaunchBackend string `json:"launch_backend"`
	AutoNoLaunch  bool   `json:"auto_no_launch"`
	CodexFlags    string `json:"codex_flags"`
}

type todoPayload struct {
	IDCol        int      `json:"id_col"`
	TitleCol     int      `json:"title_col"`
	OwnerCol     int      `json:"owner_col"`
	DepsCol      int      `json:"deps_col"`
	StatusCol    int      `json:"status_col"`
	GateRegex    string   `json:"gate_regex"`
	DoneKeywords []string `json:"done_keywords"`
}

func contextPayload(ctx config.Context) pathsPayload {
	return pathsPayload{
		RepoRoot:       ctx.RepoRoot,
		RepoName:       ctx.RepoName,
		RepoParent:     ctx.RepoParent,
		BaseBranch:     ctx.BaseBranch,
		ConfigPath:     ctx.ConfigPath,
		TodoFile:       ctx.TodoFile,
		StateDir:       ctx.StateDir,
		LockDir:        ctx.LockDir,
		OrchDir:        ctx.OrchDir,
		UpdatesFile:    ctx.UpdatesFile,
		WorktreeParent: ctx.WorktreeParent,
		Runtime: runtimePayload{
			MaxStart:      ctx.Runtime.MaxStart,
			LaunchBackend: ctx.Runtime.LaunchBackend,
			AutoNoLaunch:  ctx.Runtime.AutoNoLaunch,
			CodexFlags:    ctx.Runtime.CodexFlags,
		},
		Todo: todoPayload{
			IDCol:        ctx.Todo.IDCol,
			TitleCol:     ctx.Todo.TitleCol,
			OwnerCol:     ctx.Todo.OwnerCol,
			DepsCol:      ctx.Todo.DepsCol,
			StatusCol:    ctx.Todo.StatusCol,
			GateRegex:    ctx.Todo.GateRegex,
			DoneKeywords: ctx.Todo.DoneKeywords,
		},
		Owners:      ctx.Owners,
		OwnersByKey: ctx.OwnersByKey,
	}
}

// newPathsCmd creates the "overseer paths" subcommand.
func newPathsCmd(flags *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the resolved configuration context",
		Long:  "Resolves the repo root, config, and state directories and prints them\nas JSON or as shell-sourceable environment assignments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "env" {
				return fmt.Errorf("--format must be json or env, got %q", format)
			}

			ws, err := loadWorkspace(flags)
			if err != nil {
				return err
			}

			payload := contextPayload(ws.Ctx)
			if format == "env" {
				env, err := toEnv(payload)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), env)
				return nil
			}
			return printJSON(cmd.OutOrStdout(), payload)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or env")

	return cmd
}

func boolEnv(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// toEnv renders the context as KEY=value lines safe to eval in a shell.
func toEnv(p pathsPayload) (string, error) {
	ownersJSON, err := json.Marshal(p.Owners)
	if err != nil {
		return "", fmt.Errorf("encode owners: %w", err)
	}
	ownersByKeyJSON, err := json.Marshal(p.OwnersByKey)
	if err != nil {
		return "", fmt.Errorf("encode owners_by_key: %w", err)
	}
	todoJSON, err := json.Marshal(p.Todo)
	if err != nil {
		return "", fmt.Errorf("encode todo schema: %w", err)
	}

	pairs := []struct{ key, value string }{
		{"REPO_ROOT", p.RepoRoot},
		{"REPO_NAME", p.RepoName},
		{"BASE_BRANCH", p.BaseBranch},
		{"TODO_FILE", p.TodoFile},
		{"STATE_DIR", p.StateDir},
		{"LOCK_DIR", p.LockDir},
		{"ORCH_DIR", p.OrchDir},
		{"UPDATES_FILE", p.UpdatesFile},
		{"WORKTREE_PARENT_DIR", p.WorktreeParent},
		{"MAX_START", fmt.Sprintf("%d", p.Runtime.MaxStart)},
		{"LAUNCH_BACKEND", p.Runtime.LaunchBackend},
		{"AUTO_NO_LAUNCH", boolEnv(p.Runtime.AutoNoLaunch)},
		{"CODEX_FLAGS", p.Runtime.CodexFlags},
		{"CONFIG_PATH", p.ConfigPath},
		{"OWNERS_JSON", string(ownersJSON)},
		{"OWNERS_BY_KEY_JSON", string(ownersByKeyJSON)},
		{"TODO_SCHEMA_JSON", string(todoJSON)},
	}

	lines := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		lines = append(lines, pair.key+"="+shellQuote(pair.value))
	}
	return strings.Join(lines, "\n"), nil
}

var shellSafeRe = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// shellQuote single-quotes a value for safe shell evaluation.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if shellSafeRe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
