// Package board parses the shared task board: a markdown pipe table of work
// items plus inline gate markers scattered through the same document.
package board

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Task is one data row of the board. Tasks are rebuilt on every parse and
// carry no identity beyond their ID within a single parse.
type Task struct {
	ID     string
	Title  string
	Owner  string
	Deps   string
	Status string
}

// Board status literals. The status cell is free text; only these values
// have scheduling meaning.
const (
	StatusTODO       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusBlocked    = "BLOCKED"
	StatusDone       = "DONE"
)

// GateState is the derived state of a gate marker.
type GateState string

const (
	GateDone    GateState = "DONE"
	GatePending GateState = "PENDING"
)

// Schema maps 1-based table column numbers to task fields and carries the
// gate extraction rules. Column indices are validated by the config layer
// before a Schema reaches Parse.
type Schema struct {
	IDCol     int
	TitleCol  int
	OwnerCol  int
	DepsCol   int
	StatusCol int

	// Gate matches a gate marker anywhere in the document; capture group 1
	// is the gate token, e.g. "G2 (done)".
	Gate *regexp.Regexp

	// DoneKeywords are the parenthesized status texts that mean DONE,
	// compared case-insensitively.
	DoneKeywords []string
}

var gateStateRe = regexp.MustCompile(`\(([^)]*)\)`)

// defaultBoard is written by EnsureBoard when the board file is missing.
const defaultBoard = `# TODO Board

| Area | ID | Title | Owner | Deps | Notes | Status |
|---|---|---|---|---|---|---|
`

// Parse reads the board file and returns its tasks in file order plus the
// gate map. A missing file is an error wrapping fs.ErrNotExist.
func Parse(path string, schema Schema) ([]Task, map[string]GateState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read task board: %w", err)
	}

	lines := strings.Split(string(data), "\n")

	var tasks []Task
	for _, line := range lines {
		cols := splitRow(line)
		if cols == nil {
			continue
		}

		id := field(cols, schema.IDCol)
		if id == "" || id == "ID" || allDashes(id) {
			continue
		}

		tasks = append(tasks, Task{
			ID:     id,
			Title:  field(cols, schema.TitleCol),
			Owner:  field(cols, schema.OwnerCol),
			Deps:   field(cols, schema.DepsCol),
			Status: field(cols, schema.StatusCol),
		})
	}

	gates := make(map[string]GateState)
	if schema.Gate != nil {
		done := make(map[string]bool, len(schema.DoneKeywords))
		for _, kw := range schema.DoneKeywords {
			done[strings.ToLower(kw)] = true
		}

		for _, line := range lines {
			m := schema.Gate.FindStringSubmatch(line)
			if m == nil || len(m) < 2 {
				continue
			}
			token := m[1]
			id := token
			if i := strings.IndexByte(token, ' '); i >= 0 {
				id = token[:i]
			}

			state := ""
			if sm := gateStateRe.FindStringSubmatch(token); sm != nil {
				state = strings.ToLower(strings.TrimSpace(sm[1]))
			}
			if done[state] {
				gates[id] = GateDone
			} else {
				gates[id] = GatePending
			}
		}
	}

	return tasks, gates, nil
}

// EnsureBoard creates the board file with an empty table when it does not
// exist yet, so a fresh repository bootstraps instead of erroring.
func EnsureBoard(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create board directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultBoard), 0o644); err != nil {
		return fmt.Errorf("write default board: %w", err)
	}
	return nil
}

// splitRow splits one table line like Cells, then prepends and appends an
// empty cell so the 1-based schema column numbers line up with a naive split
// on "|".
func splitRow(line string) []string {
	cells := Cells(line)
	if cells == nil {
		return nil
	}
	out := make([]string, 0, len(cells)+2)
	out = append(out, "")
	out = append(out, cells...)
	out = append(out, "")
	return out
}

// Cells splits one table line into its cells, or returns nil when the line
// is not a data row (it must start and end with a pipe after trimming). A
// backslash escapes a following pipe into a literal pipe inside the cell;
// any other backslash is kept as-is.
func Cells(line string) []string {
	text := strings.TrimSpace(line)
	if !strings.HasPrefix(text, "|") || !strings.HasSuffix(text, "|") || len(text) < 2 {
		return nil
	}

	var cells []string
	var buf strings.Builder
	escaped := false
	for _, ch := range text[1 : len(text)-1] {
		if escaped {
			if ch == '|' {
				buf.WriteByte('|')
			} else {
				buf.WriteByte('\\')
				buf.WriteRune(ch)
			}
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '|':
			cells = append(cells, strings.TrimSpace(buf.String()))
			buf.Reset()
		default:
			buf.WriteRune(ch)
		}
	}
	if escaped {
		buf.WriteByte('\\')
	}
	cells = append(cells, strings.TrimSpace(buf.String()))
	return cells
}

// field returns the trimmed cell at the 1-based column number, or "" when
// the row is too short.
func field(cols []string, colNo int) string {
	idx := colNo - 1
	if idx < 0 || idx >= len(cols) {
		return ""
	}
	return strings.TrimSpace(cols[idx])
}

func allDashes(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch != '-' {
			return false
		}
	}
	return true
}
