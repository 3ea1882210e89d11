package engine

import (
	"os"
	"strings"

	"overseer/pkg/board"
)

// UpdateEntry is one row of the shared updates log.
type UpdateEntry struct {
	Timestamp string `json:"timestamp"`
	Agent     string `json:"agent"`
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
	Summary   string `json:"summary"`
}

// UpdatesFeed holds the newest-first entries parsed from the updates file.
type UpdatesFeed struct {
	UpdatesFile string         `json:"updates_file"`
	Entries     []UpdateEntry  `json:"entries"`
	Summary     UpdatesSummary `json:"summary"`
}

// UpdatesSummary counts feed entries.
type UpdatesSummary struct {
	Total int `json:"total"`
}

// DefaultUpdatesLimit caps how many feed rows a snapshot carries.
const DefaultUpdatesLimit = 200

// ParseUpdates reads the markdown updates table and returns the last limit
// entries, newest first. A missing or unreadable file yields an empty feed.
// A limit of zero or less keeps every entry.
func ParseUpdates(path string, limit int) UpdatesFeed {
	var entries []UpdateEntry

	data, err := os.ReadFile(path)
	if err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			cells := board.Cells(line)
			if len(cells) < 5 {
				continue
			}
			if strings.HasPrefix(strings.ToLower(cells[0]), "timestamp") {
				continue
			}
			if separatorRow(cells) {
				continue
			}
			entries = append(entries, UpdateEntry{
				Timestamp: cells[0],
				Agent:     cells[1],
				TaskID:    cells[2],
				Status:    cells[3],
				Summary:   cells[4],
			})
		}
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	ordered := make([]UpdateEntry, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		ordered = append(ordered, entries[i])
	}

	return UpdatesFeed{
		UpdatesFile: path,
		Entries:     ordered,
		Summary:     UpdatesSummary{Total: len(ordered)},
	}
}

// separatorRow reports whether every cell is empty or made only of dashes.
func separatorRow(cells []string) bool {
	for _, c := range cells {
		if c == "" {
			continue
		}
		if strings.Trim(c, "-") != "" {
			return false
		}
	}
	return true
}
