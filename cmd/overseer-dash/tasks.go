package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderTasks renders the scheduler's ready and excluded partitions plus
// held locks as two stacked sections.
func (m Model) renderTasks() string {
	theme := m.theme
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary)
	muted := lipgloss.NewStyle().Foreground(theme.Muted)

	var b strings.Builder

	b.WriteString(title.Render("Ready"))
	b.WriteString("\n")
	if len(m.report.Scheduler.ReadyTasks) == 0 {
		b.WriteString(muted.Render("  (none)"))
		b.WriteString("\n")
	}
	for _, t := range m.report.Scheduler.ReadyTasks {
		line := fmt.Sprintf("  %s %s owner=%s deps=%s", t.TaskID, t.Title, t.Owner, t.Deps)
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Success).Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(title.Render("Excluded"))
	b.WriteString("\n")
	if len(m.report.Scheduler.ExcludedTasks) == 0 {
		b.WriteString(muted.Render("  (none)"))
		b.WriteString("\n")
	}
	for _, t := range m.report.Scheduler.ExcludedTasks {
		line := fmt.Sprintf("  %s %s owner=%s reason=%s source=%s", t.TaskID, t.Title, t.Owner, t.Reason, t.Source)
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Warning).Render(line))
		b.WriteString("\n")
	}

	if locks := m.report.Coordination.ActiveLocks; len(locks) > 0 {
		b.WriteString("\n")
		b.WriteString(title.Render("Locks"))
		b.WriteString("\n")
		for _, l := range locks {
			line := fmt.Sprintf("  scope=%s owner=%s task=%s", l.Scope, l.Owner, l.TaskID)
			b.WriteString(lipgloss.NewStyle().Foreground(theme.Secondary).Render(line))
			b.WriteString("\n")
		}
	}

	if entries := m.report.Updates.Entries; len(entries) > 0 {
		b.WriteString("\n")
		b.WriteString(title.Render("Updates"))
		b.WriteString("\n")
		for i, e := range entries {
			if i >= updatesShown {
				break
			}
			line := fmt.Sprintf("  %s %s %s %s %s", e.Timestamp, e.Agent, e.TaskID, e.Status, e.Summary)
			b.WriteString(muted.Render(line))
			b.WriteString("\n")
		}
	}

	if len(m.runs) > 0 {
		b.WriteString("\n")
		b.WriteString(title.Render("Recent Runs"))
		b.WriteString("\n")
		for _, r := range m.runs {
			line := fmt.Sprintf("  %s trigger=%s ready=%d excluded=%d",
				r.CreatedAt.Format("2006-01-02 15:04:05"), r.Trigger, r.ReadyCount, r.ExcludedCount)
			b.WriteString(muted.Render(line))
			b.WriteString("\n")
		}
		if len(m.exclusionCounts) > 0 {
			reasons := make([]string, 0, len(m.exclusionCounts))
			for reason := range m.exclusionCounts {
				reasons = append(reasons, reason)
			}
			sort.Strings(reasons)
			parts := make([]string, 0, len(reasons))
			for _, reason := range reasons {
				parts = append(parts, fmt.Sprintf("%s:%d", reason, m.exclusionCounts[reason]))
			}
			b.WriteString(muted.Render("  exclusions=" + strings.Join(parts, ", ")))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(muted.Render("Tab workers, r refresh, q quit"))
	return b.String()
}

// updatesShown bounds how many feed rows the tasks view prints.
const updatesShown = 8
