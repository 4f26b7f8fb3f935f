// Package messages renders the chat transcript of the current room.
package messages

import (
	"strings"
	"time"

	"github.com/astorre88/chat/internal/theme"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// OwnLabel is shown in place of an author for messages this user sent.
const OwnLabel = "You"

// Line is a single transcript entry.
type Line struct {
	At      time.Time
	Author  string
	Text    string
	Foreign bool
}

// Model is a scrollable transcript. Message bodies are rendered as markdown
// when a renderer is configured.
type Model struct {
	Lines    []Line
	viewport viewport.Model
	renderer *glamour.TermRenderer
	markdown bool
	now      func() time.Time
}

// New creates a transcript. With markdown set, bodies go through glamour.
func New(markdown bool) Model {
	return Model{
		viewport: viewport.New(40, 10),
		markdown: markdown,
		now:      time.Now,
	}
}

// SetSize resizes the viewport and rebuilds the renderer for the new wrap width.
func (m *Model) SetSize(width, height int) {
	m.viewport.Width = max(width, 10)
	m.viewport.Height = max(height, 1)
	if m.markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(max(width-4, 10)),
		)
		if err == nil {
			m.renderer = r
		}
	}
	m.refresh()
}

// Add appends a message and scrolls to the bottom.
func (m *Model) Add(author, text string, foreign bool) {
	m.Lines = append(m.Lines, Line{At: m.now(), Author: author, Text: text, Foreign: foreign})
	m.refresh()
}

// Clear drops the transcript. Called on every join.
func (m *Model) Clear() {
	m.Lines = nil
	m.refresh()
}

// Update forwards scroll keys and mouse events to the viewport.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the visible part of the transcript.
func (m Model) View() string {
	return m.viewport.View()
}

// Content returns the full rendered transcript.
func (m Model) Content() string {
	return m.render()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.render())
	m.viewport.GotoBottom()
}

func (m Model) render() string {
	if len(m.Lines) == 0 {
		return theme.StyleDimmed.Render("No messages yet.")
	}

	var b strings.Builder
	for i, l := range m.Lines {
		if i > 0 {
			b.WriteString("\n")
		}
		author, color := OwnLabel, theme.ColorOwn
		if l.Foreign {
			author, color = l.Author, theme.ColorForeign
		}
		b.WriteString(theme.StyleDimmed.Render(l.At.Format("15:04")))
		b.WriteString(" ")
		b.WriteString(lipgloss.NewStyle().Foreground(color).Bold(true).Render(author))
		b.WriteString(": ")
		b.WriteString(m.body(l.Text))
	}
	return b.String()
}

func (m Model) body(text string) string {
	if m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n ")
}
