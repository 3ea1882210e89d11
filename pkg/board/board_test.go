package board

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"testing"
)

func testSchema() Schema {
	return Schema{
		IDCol:        2,
		TitleCol:     3,
		OwnerCol:     4,
		DepsCol:      5,
		StatusCol:    7,
		Gate:         regexp.MustCompile("`(G[0-9]+ \\([^)]+\\))`"),
		DoneKeywords: []string{"DONE", "완료", "Complete", "complete"},
	}
}

func writeBoard(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "TODO.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleBoard = `# TODO Board

Milestones: ` + "`G1 (done)`" + ` then ` + "`G2 (open)`" + `

| Area | ID | Title | Owner | Deps | Notes | Status |
|------|----|-------|-------|------|-------|--------|
| app | T1-001 | Shell layout | AgentA | - | n/a | TODO |
| core | T1-002 | Parser \| splitter | AgentB | T1-001,G1 | has \| pipe | IN_PROGRESS |
| ui | T1-003 | Popover | AgentD | G2 | | DONE |
`

// TestParse_TasksInFileOrder verifies data rows are returned in order with
// header and separator rows skipped.
func TestParse_TasksInFileOrder(t *testing.T) {
	path := writeBoard(t, sampleBoard)

	tasks, _, err := Parse(path, testSchema())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := []Task{
		{ID: "T1-001", Title: "Shell layout", Owner: "AgentA", Deps: "-", Status: "TODO"},
		{ID: "T1-002", Title: "Parser | splitter", Owner: "AgentB", Deps: "T1-001,G1", Status: "IN_PROGRESS"},
		{ID: "T1-003", Title: "Popover", Owner: "AgentD", Deps: "G2", Status: "DONE"},
	}
	if !reflect.DeepEqual(tasks, want) {
		t.Errorf("Parse() tasks = %+v, want %+v", tasks, want)
	}
}

// TestParse_Gates verifies gate markers are extracted from non-table lines
// and classified via the done-keyword set, case-insensitively.
func TestParse_Gates(t *testing.T) {
	path := writeBoard(t, sampleBoard)

	_, gates, err := Parse(path, testSchema())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if gates["G1"] != GateDone {
		t.Errorf("G1 = %q, want DONE", gates["G1"])
	}
	if gates["G2"] != GatePending {
		t.Errorf("G2 = %q, want PENDING", gates["G2"])
	}
}

// TestParse_GateDoneKeywordCaseInsensitive verifies keyword matching lowers
// both sides and does no stemming.
func TestParse_GateDoneKeywordCaseInsensitive(t *testing.T) {
	path := writeBoard(t, "`G3 (COMPLETE)`\n`G4 (completed)`\n")

	_, gates, err := Parse(path, testSchema())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if gates["G3"] != GateDone {
		t.Errorf("G3 = %q, want DONE (keyword match is case-insensitive)", gates["G3"])
	}
	if gates["G4"] != GatePending {
		t.Errorf("G4 = %q, want PENDING (no stemming)", gates["G4"])
	}
}

// TestParse_Idempotent verifies parsing the same text twice yields identical
// task sequences.
func TestParse_Idempotent(t *testing.T) {
	path := writeBoard(t, sampleBoard)

	first, firstGates, err := Parse(path, testSchema())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	second, secondGates, err := Parse(path, testSchema())
	if err != nil {
		t.Fatalf("Parse() second error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-parse yielded different tasks:\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if !reflect.DeepEqual(firstGates, secondGates) {
		t.Errorf("re-parse yielded different gates: %v vs %v", firstGates, secondGates)
	}
}

// TestParse_MissingFile verifies a missing board wraps fs.ErrNotExist so the
// caller can bootstrap a default board.
func TestParse_MissingFile(t *testing.T) {
	_, _, err := Parse(filepath.Join(t.TempDir(), "absent.md"), testSchema())
	if err == nil {
		t.Fatal("Parse() expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Parse() error = %v, want fs.ErrNotExist", err)
	}
}

// TestParse_SkipsNonRowLines verifies lines that do not both start and end
// with a pipe are ignored.
func TestParse_SkipsNonRowLines(t *testing.T) {
	path := writeBoard(t, "| x | T2-001 | a | O | - | n | TODO\nplain text | not a row |\n")

	tasks, _, err := Parse(path, testSchema())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Parse() tasks = %+v, want none", tasks)
	}
}

// TestParse_TrailingBackslashPreserved verifies a row-final backslash stays a
// literal backslash instead of eating the closing delimiter.
func TestParse_TrailingBackslashPreserved(t *testing.T) {
	path := writeBoard(t, `| x | T2-002 | ends with\ | O | - | n | TODO |` + "\n")

	tasks, _, err := Parse(path, testSchema())
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("Parse() tasks = %+v, want 1 row", tasks)
	}
	if tasks[0].Title != `ends with\` {
		t.Errorf("Title = %q, want trailing backslash preserved", tasks[0].Title)
	}
}

// TestEnsureBoard verifies the default board is written once and left alone
// thereafter.
func TestEnsureBoard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "TODO.md")

	if err := EnsureBoard(path); err != nil {
		t.Fatalf("EnsureBoard() error: %v", err)
	}
	tasks, _, err := Parse(path, testSchema())
	if err != nil {
		t.Fatalf("Parse() after bootstrap error: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("bootstrap board has %d tasks, want 0", len(tasks))
	}

	if err := os.WriteFile(path, []byte(sampleBoard), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureBoard(path); err != nil {
		t.Fatalf("EnsureBoard() second call error: %v", err)
	}
	tasks, _, err = Parse(path, testSchema())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 {
		t.Errorf("EnsureBoard overwrote an existing board: %d tasks", len(tasks))
	}
}
