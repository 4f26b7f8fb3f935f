// Package rooms renders the sidebar of rooms the server has announced.
package rooms

import (
	"slices"
	"strings"

	"github.com/astorre88/chat/internal/theme"
)

// Model holds the known rooms, the joined room and a selection cursor.
type Model struct {
	Rooms   []string
	Current string
	cursor  int
}

// New creates an empty room list.
func New() Model {
	return Model{}
}

// SetRooms replaces the room list. The cursor follows the previously
// selected room when it is still present.
func (m *Model) SetRooms(rooms []string) {
	prev := m.Selected()
	m.Rooms = slices.Clone(rooms)
	m.cursor = 0
	if i := slices.Index(m.Rooms, prev); i >= 0 {
		m.cursor = i
	} else if i := slices.Index(m.Rooms, m.Current); i >= 0 {
		m.cursor = i
	}
}

// SetCurrent marks the joined room and moves the cursor onto it.
func (m *Model) SetCurrent(room string) {
	m.Current = room
	if i := slices.Index(m.Rooms, room); i >= 0 {
		m.cursor = i
	}
}

// Next moves the cursor down, wrapping around.
func (m *Model) Next() {
	if len(m.Rooms) == 0 {
		return
	}
	m.cursor = (m.cursor + 1) % len(m.Rooms)
}

// Prev moves the cursor up, wrapping around.
func (m *Model) Prev() {
	if len(m.Rooms) == 0 {
		return
	}
	m.cursor = (m.cursor - 1 + len(m.Rooms)) % len(m.Rooms)
}

// Selected returns the room under the cursor, or "" when the list is empty.
func (m Model) Selected() string {
	if m.cursor < 0 || m.cursor >= len(m.Rooms) {
		return ""
	}
	return m.Rooms[m.cursor]
}

// View renders the list in a bordered column.
func (m Model) View(width, height int) string {
	innerW := max(width-4, 8)

	var b strings.Builder
	b.WriteString(theme.StyleHeader.Render("ROOMS"))
	b.WriteString("\n")
	if len(m.Rooms) == 0 {
		b.WriteString(theme.StyleDimmed.Render("none yet"))
	}
	for i, r := range m.Rooms {
		marker := "  "
		if r == m.Current {
			marker = "● "
		}
		line := marker + r
		if len(line) > innerW {
			line = line[:innerW]
		}
		switch {
		case i == m.cursor:
			line = theme.StyleSelected.Render(line)
		case r == m.Current:
			line = theme.StyleActive.Render(line)
		}
		b.WriteString("\n")
		b.WriteString(line)
	}

	return theme.StyleBorder.
		Width(innerW).
		Height(max(height-2, 1)).
		Render(b.String())
}
