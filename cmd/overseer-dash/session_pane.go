package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"overseer/pkg/session"
)

// sessionPane renders one worker's parsed session transcript inside a
// scrollable viewport.
type sessionPane struct {
	key      string
	loading  bool
	err      error
	view     session.View
	viewport viewport.Model
}

func loadingSessionPane(key string) sessionPane {
	return sessionPane{key: key, loading: true, viewport: viewport.New(80, 20)}
}

func newSessionPane(key string, view session.View, err error) sessionPane {
	p := sessionPane{key: key, view: view, err: err, viewport: viewport.New(80, 20)}
	p.viewport.SetContent(renderBlocks(DefaultTheme(), view))
	p.viewport.GotoBottom()
	return p
}

func (p *sessionPane) resize(width, height int) {
	if width > 0 {
		p.viewport.Width = width
	}
	// Status bar, header, and help line take four rows.
	if height > 4 {
		p.viewport.Height = height - 4
	}
}

// View renders the pane header, viewport, and help line.
func (p sessionPane) View(theme Theme) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).
		Render(fmt.Sprintf("Session · %s", p.key))
	sub := lipgloss.NewStyle().Foreground(theme.Muted).
		Render(fmt.Sprintf("source=%s events=%d", p.view.Source, p.view.ParsedEvents))
	help := lipgloss.NewStyle().Foreground(theme.Muted).
		Render("↑↓ scroll, r refresh, Esc back, q quit")

	var body string
	switch {
	case p.loading:
		body = lipgloss.NewStyle().Foreground(theme.Muted).Render("Loading session...")
	case p.err != nil:
		body = lipgloss.NewStyle().Foreground(theme.Error).Render(p.err.Error())
	default:
		body = p.viewport.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header+" "+sub, body, help)
}

// renderBlocks formats parsed session blocks for display, one labeled
// section per block.
func renderBlocks(theme Theme, view session.View) string {
	if len(view.Blocks) == 0 {
		return "(No output yet)"
	}
	var sections []string
	for _, b := range view.Blocks {
		label := lipgloss.NewStyle().Bold(true).Foreground(theme.KindColor(b.Kind)).Render(b.Label)
		if b.Timestamp != "" {
			label += lipgloss.NewStyle().Foreground(theme.Muted).Render("  " + b.Timestamp)
		}
		sections = append(sections, label+"\n"+b.Body)
	}
	return strings.Join(sections, "\n\n")
}
