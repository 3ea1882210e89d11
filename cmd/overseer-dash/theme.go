package main

import (
	"github.com/charmbracelet/lipgloss"

	"overseer/pkg/session"
)

// Theme defines the visual styling for the overseer dashboard.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
}

// KindColor maps a session block kind to its display color: agent chat
// green, machinery cyan, output yellow, reasoning dimmed.
func (t Theme) KindColor(kind string) lipgloss.Color {
	switch kind {
	case session.KindError:
		return t.Error
	case session.KindThink:
		return t.Muted
	case session.KindCode, session.KindToolCall:
		return t.Secondary
	case session.KindToolResult, session.KindTerminal:
		return t.Warning
	case session.KindChatAgent:
		return t.Success
	default:
		return t.Primary
	}
}

// DefaultTheme returns the default theme for overseer-dash.
func DefaultTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("12"),  // Blue
		Secondary: lipgloss.Color("14"),  // Cyan
		Success:   lipgloss.Color("10"),  // Green
		Warning:   lipgloss.Color("11"),  // Yellow
		Error:     lipgloss.Color("9"),   // Red
		Muted:     lipgloss.Color("240"), // Gray
	}
}
