package engine

import (
	"os"
	"path/filepath"
	"testing"

	"overseer/pkg/board"
	"overseer/pkg/state"
)

// TestStatusComposition verifies the snapshot rolls up scheduler counts,
// active/stale totals, and lock counts from its inputs.
func TestStatusComposition(t *testing.T) {
	ready := ReadyReport{
		RunID:    "run-1",
		Trigger:  "manual",
		RepoRoot: "/repo",
		StateDir: "/repo/.state",
		RunningLocks: []LockInfo{
			{TaskID: "T1-001", Owner: "AgentA", Scope: "app-shell"},
		},
		ReadyTasks: []ReadyTask{{TaskID: "T1-002"}},
		ExcludedTasks: []ExcludedTask{
			{TaskID: "T1-001", Reason: ReasonActiveWorker},
			{TaskID: "T1-003", Reason: ReasonOwnerBusy},
		},
	}
	records := []state.WorkerRecord{
		{Key: state.TaskKey("T1-001"), State: state.StateRunning, Stale: false},
		{Key: state.TaskKey("T1-004"), State: state.StateLockStale, Stale: true},
		{Key: state.OrphanPIDKey("w1"), State: state.StateOrphanPID, Stale: true},
	}
	tasks := []board.Task{
		{ID: "T1-001", Owner: "AgentA", Status: board.StatusInProgress},
		{ID: "T1-002", Owner: "AgentB", Status: board.StatusTODO},
	}

	rep := Status(ready, records, tasks, map[string]string{"agenta": "app-shell", "agentb": "domain-core"}, UpdatesFeed{})

	if rep.Scheduler.Summary.Ready != 1 || rep.Scheduler.Summary.Excluded != 2 {
		t.Errorf("scheduler summary = %+v", rep.Scheduler.Summary)
	}
	if rep.Runtime.Summary.Total != 3 || rep.Runtime.Summary.Active != 1 || rep.Runtime.Summary.Stale != 2 {
		t.Errorf("runtime summary = %+v", rep.Runtime.Summary)
	}
	if rep.Coordination.Summary.Locks != 1 {
		t.Errorf("coordination summary = %+v", rep.Coordination.Summary)
	}
	if rep.TaskBoard.Summary.Total != 2 || rep.TaskBoard.Summary.StatusCounts[board.StatusTODO] != 1 {
		t.Errorf("task board summary = %+v", rep.TaskBoard.Summary)
	}
	if rep.TaskBoard.Tasks[1].Scope != "domain-core" {
		t.Errorf("scope resolution: %+v", rep.TaskBoard.Tasks[1])
	}
}

// TestBoardViewUnmappedOwner verifies that rows with unmapped owners keep an
// empty scope but still count toward status totals.
func TestBoardViewUnmappedOwner(t *testing.T) {
	tasks := []board.Task{
		{ID: "T2-001", Owner: "Stranger", Status: board.StatusBlocked},
	}
	rep := BoardView(tasks, map[string]string{"agenta": "app-shell"})
	if rep.Tasks[0].Scope != "" {
		t.Errorf("scope = %q, want empty", rep.Tasks[0].Scope)
	}
	if rep.Summary.StatusCounts[board.StatusBlocked] != 1 {
		t.Errorf("status counts = %+v", rep.Summary.StatusCounts)
	}
}

func stopRecords() []state.WorkerRecord {
	return []state.WorkerRecord{
		{Key: state.TaskKey("T3-001"), TaskID: "T3-001", Owner: "AgentA", State: state.StateRunning},
		{Key: state.TaskKey("T3-002"), TaskID: "T3-002", Owner: "Agent A", State: state.StateLocked},
		{Key: state.TaskKey("T3-003"), TaskID: "T3-003", Owner: "AgentB", State: state.StateLockStale, Stale: true},
	}
}

// TestSelectStop verifies the three selector modes, including the normalized
// owner match.
func TestSelectStop(t *testing.T) {
	recs := stopRecords()

	byTask := SelectStop(recs, Selector{Task: "T3-001"})
	if len(byTask) != 1 || byTask[0].TaskID != "T3-001" {
		t.Errorf("by task = %+v", byTask)
	}

	byOwner := SelectStop(recs, Selector{Owner: "agent-a"})
	if len(byOwner) != 2 {
		t.Errorf("by owner = %+v, want the two AgentA records", byOwner)
	}

	all := SelectStop(recs, Selector{All: true})
	if len(all) != 3 {
		t.Errorf("all = %d records, want 3", len(all))
	}

	if none := SelectStop(recs, Selector{}); len(none) != 0 {
		t.Errorf("empty selector = %+v, want nothing", none)
	}
}

// TestSelectStale verifies only cleanup-state records are returned.
func TestSelectStale(t *testing.T) {
	stale := SelectStale(stopRecords())
	if len(stale) != 1 || stale[0].TaskID != "T3-003" {
		t.Errorf("stale = %+v", stale)
	}
}

// TestParseUpdates verifies header and separator rows are skipped, short rows
// are ignored, and entries come back newest first.
func TestParseUpdates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LATEST_UPDATES.md")
	content := "# Updates\n" +
		"| Timestamp | Agent | Task | Status | Summary |\n" +
		"| --- | --- | --- | --- | --- |\n" +
		"| 2026-01-01 | AgentA | T1-001 | DONE | shipped |\n" +
		"| short | row |\n" +
		"| 2026-01-02 | AgentB | T1-002 | IN_PROGRESS | half done |\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	feed := ParseUpdates(path, DefaultUpdatesLimit)
	if feed.Summary.Total != 2 {
		t.Fatalf("total = %d, want 2 (entries: %+v)", feed.Summary.Total, feed.Entries)
	}
	if feed.Entries[0].TaskID != "T1-002" || feed.Entries[1].TaskID != "T1-001" {
		t.Errorf("order = %s, %s, want newest first", feed.Entries[0].TaskID, feed.Entries[1].TaskID)
	}
	if feed.Entries[0].Summary != "half done" {
		t.Errorf("summary cell = %q", feed.Entries[0].Summary)
	}
}

// TestParseUpdatesLimit verifies the limit keeps the newest rows and that a
// missing file yields an empty feed.
func TestParseUpdatesLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "LATEST_UPDATES.md")
	content := "| 2026-01-01 | A | T1 | DONE | one |\n" +
		"| 2026-01-02 | A | T2 | DONE | two |\n" +
		"| 2026-01-03 | A | T3 | DONE | three |\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	feed := ParseUpdates(path, 2)
	if feed.Summary.Total != 2 || feed.Entries[0].TaskID != "T3" || feed.Entries[1].TaskID != "T2" {
		t.Errorf("limited feed = %+v", feed.Entries)
	}

	missing := ParseUpdates(filepath.Join(dir, "nope.md"), 2)
	if missing.Summary.Total != 0 || len(missing.Entries) != 0 {
		t.Errorf("missing file feed = %+v", missing)
	}
}
