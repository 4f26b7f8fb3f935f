// Package theme provides the Lip Gloss color palette and reusable styles
// for the chat TUI. It is a leaf package with no internal imports to avoid
// import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Message colors.
var (
	ColorOwn     = lipgloss.Color("#9ca3af")
	ColorForeign = lipgloss.Color("#2563eb")
)

// Connection colors.
var (
	ColorOpen         = lipgloss.Color("#22c55e")
	ColorConnecting   = lipgloss.Color("#d97706")
	ColorReconnecting = lipgloss.Color("#dc2626")
	ColorStopped      = lipgloss.Color("#374151")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorAccent  = lipgloss.Color("#3b82f6")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// ConnColor returns the color for a connection state name.
func ConnColor(state string) lipgloss.Color {
	switch state {
	case "open":
		return ColorOpen
	case "connecting":
		return ColorConnecting
	case "reconnecting":
		return ColorReconnecting
	default:
		return ColorStopped
	}
}

// ConnGlyph returns a glyph for a connection state name.
func ConnGlyph(state string) string {
	switch state {
	case "open":
		return "●"
	case "connecting":
		return "◌"
	case "reconnecting":
		return "○"
	default:
		return "·"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)
)
