package main

import (
	"bytes"
	"strings"
	"testing"

	"overseer/pkg/engine"
	"overseer/pkg/state"
)

// TestWorkerTSV verifies column order, empty pid rendering, and the optional
// stale column.
func TestWorkerTSV(t *testing.T) {
	rec := state.WorkerRecord{
		Key:            state.TaskKey("T1-001"),
		TaskID:         "T1-001",
		Owner:          "AgentA",
		Scope:          "app-shell",
		State:          state.StateRunning,
		PID:            4242,
		PIDAlive:       true,
		PIDFile:        "/s/orchestrator/T1-001.pid",
		Worktree:       "/w/T1-001",
		WorktreeExists: true,
		TmuxSession:    "agent-T1-001",
	}

	got := workerTSV(rec, false)
	want := "T1-001\tT1-001\tAgentA\tapp-shell\tRUNNING\t4242\t1\t/s/orchestrator/T1-001.pid\t\t/w/T1-001\tagent-T1-001\t1"
	if got != want {
		t.Errorf("row = %q, want %q", got, want)
	}

	rec.PID = 0
	rec.Stale = true
	withStale := workerTSV(rec, true)
	if !strings.HasSuffix(withStale, "\t1") {
		t.Errorf("stale column missing: %q", withStale)
	}
	if strings.Contains(withStale, "\t0\t1\t/s/") {
		t.Errorf("zero pid should render empty, got %q", withStale)
	}
}

// TestReadyTSV verifies the schedulable row column order.
func TestReadyTSV(t *testing.T) {
	task := engine.ReadyTask{
		TaskID:            "T1-001",
		Title:             "Add popover",
		Owner:             "AgentD",
		Scope:             "ui-popover",
		Deps:              "G1, T1-000",
		Status:            "TODO",
		SpecRelPath:       "docs/tasks/T1-001.md",
		GoalSummary:       "goal",
		InScopeSummary:    "scope",
		AcceptanceSummary: "accept",
	}
	got := readyTSV(task)
	want := "T1-001\tAdd popover\tAgentD\tui-popover\tG1, T1-000\tTODO\tdocs/tasks/T1-001.md\tgoal\tscope\taccept"
	if got != want {
		t.Errorf("row = %q, want %q", got, want)
	}
}

// TestRenderStatusText verifies the headline lines and per-item rows.
func TestRenderStatusText(t *testing.T) {
	rep := engine.StatusReport{
		RepoRoot: "/work/project",
		StateDir: "/work/project/.state",
		Scheduler: engine.SchedulerStatus{
			Trigger:  "manual",
			MaxStart: 2,
			ReadyTasks: []engine.ReadyTask{
				{TaskID: "T1-001", Owner: "AgentA", Deps: "-"},
			},
			ExcludedTasks: []engine.ExcludedTask{
				{TaskID: "T1-002", Owner: "AgentA", Reason: engine.ReasonOwnerBusy, Source: engine.SourceScheduler},
			},
			Summary: engine.CountSummary{Ready: 1, Excluded: 1},
		},
		Runtime: engine.RuntimeStatus{
			Summary: engine.RuntimeSummary{
				Total:  2,
				Active: 1,
				Stale:  1,
				StateCounts: map[state.State]int{
					state.StateRunning:   1,
					state.StateLockStale: 1,
				},
			},
		},
		Coordination: engine.Coordination{
			ActiveLocks: []engine.LockInfo{{TaskID: "T1-001", Owner: "AgentA", Scope: "app-shell"}},
			Summary:     engine.CoordinationSums{Locks: 1},
		},
	}

	var buf bytes.Buffer
	renderStatusText(&buf, rep)
	got := buf.String()

	for _, want := range []string{
		"Repo: /work/project",
		"Scheduler: ready=1 excluded=1",
		"[READY] T1-001 owner=AgentA deps=-",
		"[EXCLUDED] T1-002 owner=AgentA reason=owner_busy source=scheduler",
		"Runtime: total=2 active=1 stale=1",
		"states=LOCK_STALE:1, RUNNING:1",
		"Coordination: locks=1",
		"[LOCK] scope=app-shell owner=AgentA task=T1-001",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

// TestCommandFormatValidation verifies bad --format values fail before any
// repo access.
func TestCommandFormatValidation(t *testing.T) {
	for _, args := range [][]string{
		{"ready", "--format", "xml"},
		{"inventory", "--format", "yaml"},
		{"status", "--format", "bogus"},
		{"paths", "--format", "ini"},
		{"select-stale", "--format", "xml"},
	} {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(args)
		if err := root.Execute(); err == nil {
			t.Errorf("%v: expected format error", args)
		}
	}
}

// TestSelectStopSelectorValidation verifies exactly one selector is required.
func TestSelectStopSelectorValidation(t *testing.T) {
	for _, args := range [][]string{
		{"select-stop"},
		{"select-stop", "--task", "T1-001", "--all"},
		{"select-stop", "--task", "T1-001", "--owner", "AgentA"},
	} {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(args)
		err := root.Execute()
		if err == nil || !strings.Contains(err.Error(), "exactly one of") {
			t.Errorf("%v: err = %v", args, err)
		}
	}
}
