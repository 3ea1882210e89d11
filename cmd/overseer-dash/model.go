package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"overseer/pkg/engine"
	"overseer/pkg/eventlog"
	"overseer/pkg/state"
)

// tickMsg is sent by Bubble Tea on every tick interval.
// Used to trigger periodic data refresh from the overseer CLI.
type tickMsg time.Time

// tickCmd returns a command that sends a tickMsg after 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ViewType represents different views in the dashboard.
type ViewType int

const (
	// WorkersView shows the reconciled worker table.
	WorkersView ViewType = iota
	// TasksView shows the scheduler's ready and excluded partitions.
	TasksView
	// SessionView shows the parsed session transcript of one worker.
	SessionView
)

// Model is the Bubble Tea model for the overseer dashboard.
type Model struct {
	opts  fetchOpts
	paths dashPaths
	theme Theme

	activeView ViewType
	report     engine.StatusReport
	fetchErr   error
	fetched    bool

	// Audit history shown in the tasks view
	runs            []eventlog.Run
	exclusionCounts map[string]int

	workers table.Model

	// Session view state
	sessionKey  string
	sessionView sessionPane

	// UI state
	width  int
	height int
}

// newModel creates a new Model initialized with WorkersView active.
func newModel(opts fetchOpts, paths dashPaths) Model {
	return Model{
		opts:    opts,
		paths:   paths,
		theme:   DefaultTheme(),
		workers: newWorkersTable(DefaultTheme()),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{fetchStatusCmd(m.opts), fetchHistoryCmd(m.paths.OrchDir), tickCmd()}
	if watch := watchSignalDirs(m.paths); watch != nil {
		cmds = append(cmds, watch)
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.workers.SetHeight(workersTableHeight(msg.Height))
		m.sessionView.resize(msg.Width, msg.Height)

	case statusMsg:
		m.fetched = true
		m.fetchErr = msg.err
		if msg.err == nil {
			m.report = msg.report
			m.workers.SetRows(workerRows(m.report.Runtime.Workers))
		}

	case sessionMsg:
		if msg.key == m.sessionKey {
			m.sessionView = newSessionPane(msg.key, msg.view, msg.err)
			m.sessionView.resize(m.width, m.height)
		}

	case historyMsg:
		if msg.err == nil {
			m.runs = msg.runs
			m.exclusionCounts = msg.counts
		}

	case tickMsg:
		return m, tea.Batch(fetchStatusCmd(m.opts), fetchHistoryCmd(m.paths.OrchDir), tickCmd())

	case fsChangeMsg:
		// State dir changed; refetch immediately and re-arm the watcher.
		cmds := []tea.Cmd{fetchStatusCmd(m.opts), fetchHistoryCmd(m.paths.OrchDir)}
		if watch := watchSignalDirs(m.paths); watch != nil {
			cmds = append(cmds, watch)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// handleKeyPress processes keyboard input and returns updated model with
// optional command.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" || key == "q" {
		return m, tea.Quit
	}

	switch m.activeView {
	case SessionView:
		return m.handleSessionViewKeys(key, msg)
	case TasksView:
		return m.handleTasksViewKeys(key)
	default:
		return m.handleWorkersViewKeys(key, msg)
	}
}

// handleWorkersViewKeys processes keyboard input in WorkersView. Cursor
// movement is delegated to the table widget.
func (m Model) handleWorkersViewKeys(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case "enter":
		if rec, ok := m.selectedWorker(); ok {
			m.activeView = SessionView
			m.sessionKey = rec.Key.String()
			m.sessionView = loadingSessionPane(m.sessionKey)
			m.sessionView.resize(m.width, m.height)
			return m, fetchSessionCmd(rec)
		}
	case "tab":
		m.activeView = TasksView
	case "r":
		return m, fetchStatusCmd(m.opts)
	default:
		var cmd tea.Cmd
		m.workers, cmd = m.workers.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleTasksViewKeys processes keyboard input in TasksView.
func (m Model) handleTasksViewKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		m.activeView = WorkersView
	case "tab":
		m.activeView = WorkersView
	case "r":
		return m, fetchStatusCmd(m.opts)
	}
	return m, nil
}

// handleSessionViewKeys processes keyboard input in SessionView. Scrolling
// is delegated to the viewport widget.
func (m Model) handleSessionViewKeys(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "backspace":
		m.activeView = WorkersView
		m.sessionKey = ""
	case "r":
		if rec, ok := m.selectedWorker(); ok && rec.Key.String() == m.sessionKey {
			return m, fetchSessionCmd(rec)
		}
	default:
		var cmd tea.Cmd
		m.sessionView.viewport, cmd = m.sessionView.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// selectedWorker resolves the table cursor back to a worker record.
func (m Model) selectedWorker() (state.WorkerRecord, bool) {
	idx := m.workers.Cursor()
	workers := m.report.Runtime.Workers
	if idx < 0 || idx >= len(workers) {
		return state.WorkerRecord{}, false
	}
	return workers[idx], true
}

// View implements tea.Model.
func (m Model) View() string {
	statusBar := m.renderStatusBar()

	switch m.activeView {
	case TasksView:
		return statusBar + "\n" + m.renderTasks()
	case SessionView:
		return statusBar + "\n" + m.sessionView.View(m.theme)
	default:
		return statusBar + "\n" + m.renderWorkers()
	}
}

// renderStatusBar renders repo name, scheduler counts, and worker totals.
func (m Model) renderStatusBar() string {
	theme := m.theme

	var health string
	switch {
	case !m.fetched:
		health = lipgloss.NewStyle().Foreground(theme.Muted).Render("loading")
	case m.fetchErr != nil:
		health = lipgloss.NewStyle().Foreground(theme.Error).Render("overseer: unreachable")
	default:
		health = lipgloss.NewStyle().Foreground(theme.Success).Render("overseer: ok")
	}

	sched := m.report.Scheduler.Summary
	runtime := m.report.Runtime.Summary

	return lipgloss.JoinHorizontal(
		lipgloss.Left,
		health,
		lipgloss.NewStyle().Render(" | Repo: "),
		lipgloss.NewStyle().Foreground(theme.Primary).Render(m.paths.RepoName),
		lipgloss.NewStyle().Render(" | Ready: "),
		lipgloss.NewStyle().Foreground(theme.Success).Render(fmt.Sprintf("%d", sched.Ready)),
		lipgloss.NewStyle().Render(" | Excluded: "),
		lipgloss.NewStyle().Foreground(theme.Warning).Render(fmt.Sprintf("%d", sched.Excluded)),
		lipgloss.NewStyle().Render(" | Workers: "),
		lipgloss.NewStyle().Foreground(theme.Primary).Render(fmt.Sprintf("%d active / %d stale", runtime.Active, runtime.Stale)),
		lipgloss.NewStyle().Render(" | Locks: "),
		lipgloss.NewStyle().Foreground(theme.Secondary).Render(fmt.Sprintf("%d", m.report.Coordination.Summary.Locks)),
	)
}

// renderWorkers renders the worker table with its help line.
func (m Model) renderWorkers() string {
	help := lipgloss.NewStyle().Foreground(m.theme.Muted).
		Render("↑↓ navigate, Enter session, Tab tasks, r refresh, q quit")
	return lipgloss.JoinVertical(lipgloss.Left, m.workers.View(), help)
}
