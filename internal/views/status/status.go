package status

import (
	"github.com/astorre88/chat/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// Model holds the status bar state.
type Model struct {
	Conn  string // connection state name
	Room  string
	User  string
	Mode  string
	Width int
}

// New creates a status bar model.
func New() Model {
	return Model{Conn: "idle", Mode: "message"}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	connLabel := m.Conn
	switch m.Conn {
	case "open":
		connLabel = "Connected"
	case "connecting":
		connLabel = "Connecting..."
	case "reconnecting":
		connLabel = "Reconnecting..."
	}
	connStr := lipgloss.NewStyle().Foreground(theme.ConnColor(m.Conn)).
		Render(theme.ConnGlyph(m.Conn) + " " + connLabel)

	room := m.Room
	if room == "" {
		room = "-"
	}
	user := m.User
	if user == "" {
		user = "-"
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr +
		sep + theme.StyleDimmed.Render("room ") + theme.StyleActive.Render(room) +
		sep + theme.StyleDimmed.Render("you ") + theme.StyleHeader.Render(user) +
		sep + theme.StyleDimmed.Render("mode ") + m.Mode

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
