package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"overseer/pkg/engine"
	"overseer/pkg/eventlog"
	"overseer/pkg/session"
	"overseer/pkg/state"
)

const fetchTimeout = 5 * time.Second

// fetchOpts carries the CLI flags forwarded to every overseer invocation.
type fetchOpts struct {
	repo     string
	stateDir string
	config   string
}

func (o fetchOpts) args(sub ...string) []string {
	args := append([]string{}, sub...)
	if o.repo != "" {
		args = append(args, "--repo", o.repo)
	}
	if o.stateDir != "" {
		args = append(args, "--state-dir", o.stateDir)
	}
	if o.config != "" {
		args = append(args, "--config", o.config)
	}
	return args
}

// dashPaths is the subset of `overseer paths` output the dashboard needs.
type dashPaths struct {
	RepoRoot    string `json:"repo_root"`
	RepoName    string `json:"repo_name"`
	StateDir    string `json:"state_dir"`
	LockDir     string `json:"lock_dir"`
	OrchDir     string `json:"orch_dir"`
	UpdatesFile string `json:"updates_file"`
}

type statusMsg struct {
	report engine.StatusReport
	err    error
}

type sessionMsg struct {
	key  string
	view session.View
	err  error
}

func fetchStatus(ctx context.Context, opts fetchOpts) (engine.StatusReport, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "overseer", opts.args("status", "--format", "json", "--trigger", "dashboard")...).Output()
	if err != nil {
		return engine.StatusReport{}, fmt.Errorf("overseer status: %w", err)
	}
	var report engine.StatusReport
	if err := json.Unmarshal(out, &report); err != nil {
		return engine.StatusReport{}, fmt.Errorf("decode status output: %w", err)
	}
	return report, nil
}

func fetchPaths(ctx context.Context, opts fetchOpts) (dashPaths, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "overseer", opts.args("paths", "--format", "json")...).Output()
	if err != nil {
		return dashPaths{}, fmt.Errorf("overseer paths: %w", err)
	}
	var paths dashPaths
	if err := json.Unmarshal(out, &paths); err != nil {
		return dashPaths{}, fmt.Errorf("decode paths output: %w", err)
	}
	return paths, nil
}

func fetchStatusCmd(opts fetchOpts) tea.Cmd {
	return func() tea.Msg {
		report, err := fetchStatus(context.Background(), opts)
		return statusMsg{report: report, err: err}
	}
}

// fetchSessionCmd loads the session transcript for one worker. The tmux
// pane capture supplies the raw fallback when the JSONL log is empty.
func fetchSessionCmd(rec state.WorkerRecord) tea.Cmd {
	key := rec.Key.String()
	logFile := rec.LogFile
	tmuxSession := rec.TmuxSession
	return func() tea.Msg {
		var raw string
		if tmuxSession != "" {
			if out, err := capturePane(tmuxSession); err == nil {
				raw = out
			}
		}
		var tail string
		if logFile != "" {
			tail = session.ReadTail(logFile, session.DefaultTailBytes)
		}
		view := session.Parse(raw, tail, session.Options{})
		return sessionMsg{key: key, view: view}
	}
}

// historyLimit bounds the audit rows shown in the tasks view.
const historyLimit = 10

type historyMsg struct {
	runs   []eventlog.Run
	counts map[string]int
	err    error
}

// fetchHistoryCmd reads recent scheduler runs from the audit database. A
// missing database is normal before the first `overseer ready`.
func fetchHistoryCmd(orchDir string) tea.Cmd {
	return func() tea.Msg {
		reader, err := eventlog.NewReader(filepath.Join(orchDir, "audit.db"))
		if err != nil {
			return historyMsg{err: err}
		}
		defer reader.Close()

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		runs, err := reader.RecentRuns(ctx, historyLimit)
		if err != nil {
			return historyMsg{err: err}
		}
		counts, err := reader.ExclusionCounts(ctx, historyLimit)
		if err != nil {
			return historyMsg{err: err}
		}
		return historyMsg{runs: runs, counts: counts}
	}
}

func capturePane(target string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, "tmux", "capture-pane", "-p", "-t", target).Output()
	if err != nil {
		return "", fmt.Errorf("tmux capture-pane: %w", err)
	}
	return string(out), nil
}
