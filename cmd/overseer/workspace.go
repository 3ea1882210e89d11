package main

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"overseer/internal/config"
	"overseer/pkg/board"
	"overseer/pkg/engine"
	"overseer/pkg/state"
	"overseer/pkg/taskspec"
)

// CmdRunner abstracts command execution for testability.
type CmdRunner interface {
	Run(name string, args ...string) (string, error)
}

// ExecRunner implements CmdRunner using os/exec.
type ExecRunner struct{}

// Run executes a command and returns its combined output.
func (e *ExecRunner) Run(name string, args ...string) (string, error) {
	cmd := exec.CommandContext(context.Background(), name, args...)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// resolveRepoRoot asks git for the repository toplevel, starting from
// repoArg when given.
func resolveRepoRoot(runner CmdRunner, repoArg string) (string, error) {
	args := []string{}
	if repoArg != "" {
		args = append(args, "-C", repoArg)
	}
	args = append(args, "rev-parse", "--show-toplevel")

	out, err := runner.Run("git", args...)
	if err != nil {
		if repoArg != "" {
			return "", fmt.Errorf("--repo is not a git repository: %s", repoArg)
		}
		return "", fmt.Errorf("unable to detect git repository; run inside a repo or provide --repo")
	}
	return filepath.Clean(out), nil
}

// workspace bundles the resolved configuration for one CLI invocation.
type workspace struct {
	Ctx config.Context
	Cfg config.Config
}

// loadWorkspace resolves the repo root, loads (bootstrapping if needed) the
// config, and builds the immutable context every subcommand works from.
func loadWorkspace(flags *rootFlags) (*workspace, error) {
	repoRoot, err := resolveRepoRoot(&ExecRunner{}, flags.repo)
	if err != nil {
		return nil, err
	}

	cfg, cfgPath, err := config.Load(repoRoot, flags.config)
	if err != nil {
		return nil, err
	}

	ctx, err := config.Resolve(repoRoot, cfg, flags.stateDir, cfgPath)
	if err != nil {
		return nil, err
	}

	return &workspace{Ctx: ctx, Cfg: cfg}, nil
}

// scanWorkers loads both on-disk inventories and reconciles them into worker
// records.
func (ws *workspace) scanWorkers() ([]state.WorkerRecord, error) {
	pidRows, err := state.LoadLivenessInventory(ws.Ctx.OrchDir)
	if err != nil {
		return nil, fmt.Errorf("load liveness inventory: %w", err)
	}
	lockRows, err := state.LoadLockInventory(ws.Ctx.LockDir)
	if err != nil {
		return nil, fmt.Errorf("load lock inventory: %w", err)
	}
	return state.Classify(pidRows, lockRows, state.DefaultProbe()), nil
}

// readyInput gathers one scheduling snapshot: board, gates, worker records,
// and held locks.
func (ws *workspace) readyInput(trigger string, maxStart int) (engine.ReadyInput, []board.Task, error) {
	if err := board.EnsureBoard(ws.Ctx.TodoFile); err != nil {
		return engine.ReadyInput{}, nil, fmt.Errorf("ensure task board: %w", err)
	}
	tasks, gates, err := board.Parse(ws.Ctx.TodoFile, ws.Ctx.Schema)
	if err != nil {
		return engine.ReadyInput{}, nil, fmt.Errorf("parse task board: %w", err)
	}

	pidRows, err := state.LoadLivenessInventory(ws.Ctx.OrchDir)
	if err != nil {
		return engine.ReadyInput{}, nil, fmt.Errorf("load liveness inventory: %w", err)
	}
	locks, err := state.LoadLockInventory(ws.Ctx.LockDir)
	if err != nil {
		return engine.ReadyInput{}, nil, fmt.Errorf("load lock inventory: %w", err)
	}
	records := state.Classify(pidRows, locks, state.DefaultProbe())

	if maxStart < 0 {
		maxStart = ws.Ctx.Runtime.MaxStart
	}

	return engine.ReadyInput{
		Trigger:     trigger,
		RepoRoot:    ws.Ctx.RepoRoot,
		StateDir:    ws.Ctx.StateDir,
		Tasks:       tasks,
		Gates:       gates,
		Records:     records,
		Locks:       locks,
		OwnersByKey: ws.Ctx.OwnersByKey,
		MaxStart:    maxStart,
	}, tasks, nil
}

// schedule runs one scheduling pass over the current snapshot.
func (ws *workspace) schedule(trigger string, maxStart int) (engine.ReadyReport, []board.Task, error) {
	in, tasks, err := ws.readyInput(trigger, maxStart)
	if err != nil {
		return engine.ReadyReport{}, nil, err
	}
	return engine.New(taskspec.Evaluator{}).Ready(in), tasks, nil
}

// auditDBPath is where scheduler runs are recorded.
func (ws *workspace) auditDBPath() string {
	return filepath.Join(ws.Ctx.OrchDir, "audit.db")
}
