package main

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"overseer/pkg/state"
)

// newWorkersTable builds the worker table widget with fixed columns.
func newWorkersTable(theme Theme) table.Model {
	columns := []table.Column{
		{Title: "KEY", Width: 30},
		{Title: "TASK", Width: 12},
		{Title: "OWNER", Width: 14},
		{Title: "STATE", Width: 18},
		{Title: "PID", Width: 8},
		{Title: "ALIVE", Width: 5},
		{Title: "TREE", Width: 4},
		{Title: "STALE", Width: 5},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(theme.Primary)
	styles.Selected = styles.Selected.
		Foreground(theme.Secondary).
		Bold(true)
	t.SetStyles(styles)

	return t
}

// workerRows converts reconciled worker records into table rows. Row order
// matches the record slice so the cursor index maps back to a record.
func workerRows(records []state.WorkerRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, r := range records {
		pid := ""
		if r.PID > 0 {
			pid = strconv.Itoa(r.PID)
		}
		rows = append(rows, table.Row{
			r.Key.String(),
			r.TaskID,
			r.Owner,
			string(r.State),
			pid,
			flagCell(r.PIDAlive),
			flagCell(r.WorktreeExists),
			flagCell(r.Stale),
		})
	}
	return rows
}

// workersTableHeight leaves room for the status bar and help line.
func workersTableHeight(terminalHeight int) int {
	h := terminalHeight - 4
	if h < 3 {
		h = 3
	}
	return h
}

func flagCell(v bool) string {
	if v {
		return "yes"
	}
	return ""
}
