package app

import (
	"fmt"
	"strings"

	"github.com/astorre88/chat/internal/chat"
	"github.com/astorre88/chat/internal/protocol"
	"github.com/astorre88/chat/internal/theme"
	"github.com/astorre88/chat/internal/views/debug"
	"github.com/astorre88/chat/internal/views/messages"
	"github.com/astorre88/chat/internal/views/rooms"
	"github.com/astorre88/chat/internal/views/status"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Commander is the part of the session the UI drives.
type Commander interface {
	RequestRoomChange(room string) error
	RequestNameChange(userName string) error
	SendChatMessage(text string) error
}

// InputMode selects what Enter does with the input line.
type InputMode int

const (
	ModeMessage InputMode = iota
	ModeRoom
	ModeName
)

func (m InputMode) String() string {
	switch m {
	case ModeRoom:
		return "room"
	case ModeName:
		return "name"
	default:
		return "message"
	}
}

func (m InputMode) placeholder() string {
	switch m {
	case ModeRoom:
		return "Room to join..."
	case ModeName:
		return "Your name..."
	default:
		return "Say something..."
	}
}

const roomsWidth = 22

// Options tune the root model.
type Options struct {
	// Slugify normalises typed room names before they are sent.
	Slugify bool
	// Markdown renders message bodies through glamour.
	Markdown bool
}

// Model is the root Bubble Tea model.
type Model struct {
	cmd  Commander
	opts Options

	keys   KeyMap
	width  int
	height int

	mode      InputMode
	input     textinput.Model
	showDebug bool

	conn chat.ConnectionState
	room string
	user string

	// Sub-views.
	statusBar status.Model
	rooms     rooms.Model
	messages  messages.Model
	debug     debug.Model
}

// New creates the root model. room is the room the session will ask for
// first; it is shown until the server confirms a join.
func New(cmd Commander, room string, opts Options) Model {
	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = 2000
	in.Placeholder = ModeMessage.placeholder()
	in.Focus()

	statusBar := status.New()
	statusBar.Room = room
	return Model{
		cmd:       cmd,
		opts:      opts,
		keys:      DefaultKeyMap(),
		input:     in,
		room:      room,
		statusBar: statusBar,
		rooms:     rooms.New(),
		messages:  messages.New(opts.Markdown),
		debug:     debug.New(),
	}
}

// Init starts the cursor blinking. The session is started by the caller.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		m.messages.SetSize(m.transcriptSize())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.messages, cmd = m.messages.Update(msg)
		return m, cmd

	case JoinedMsg:
		m.room = msg.Room
		m.user = msg.UserName
		m.messages.Clear()
		m.rooms.SetRooms(msg.Rooms)
		m.rooms.SetCurrent(msg.Room)
		m.syncStatus()
		m.debug.Add("room", fmt.Sprintf("joined %s as %s", msg.Room, msg.UserName))
		return m, nil

	case RoomsMsg:
		m.rooms.SetRooms(msg.Rooms)
		m.debug.Add("room", "rooms: "+strings.Join(msg.Rooms, ", "))
		return m, nil

	case NameMsg:
		m.user = msg.UserName
		m.syncStatus()
		m.debug.Add("name", "name set to "+msg.UserName)
		return m, nil

	case ChatMsg:
		m.messages.Add(msg.Author, msg.Text, msg.Foreign)
		author := msg.Author
		if !msg.Foreign {
			author = messages.OwnLabel
		}
		m.debug.Add("chat", author+": "+msg.Text)
		return m, nil

	case ConnStateMsg:
		m.conn = msg.State
		m.syncStatus()
		m.debug.Add("conn", msg.State.String())
		return m, nil

	case SendErrMsg:
		m.debug.Add("err", fmt.Sprintf("%s: %v", msg.Command, msg.Err))
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.showDebug {
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Debug):
			m.showDebug = false
		case key.Matches(msg, m.keys.ScrollUp):
			m.debug.ScrollUp(5)
		case key.Matches(msg, m.keys.ScrollDown):
			m.debug.ScrollDown(5)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Debug):
		m.showDebug = true
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.mode = (m.mode + 1) % 3
		m.input.Placeholder = m.mode.placeholder()
		m.syncStatus()
		return m, nil

	case key.Matches(msg, m.keys.NextRoom):
		m.rooms.Next()
		return m, nil

	case key.Matches(msg, m.keys.PrevRoom):
		m.rooms.Prev()
		return m, nil

	case key.Matches(msg, m.keys.JoinRoom):
		if room := m.rooms.Selected(); room != "" {
			return m, m.roomChange(room)
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
		var cmd tea.Cmd
		m.messages, cmd = m.messages.Update(msg)
		return m, cmd

	case key.Matches(msg, m.keys.Enter):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input line according to the current mode. Nothing is
// applied locally; labels change once the server confirms.
func (m Model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	if value == "" {
		return m, nil
	}
	m.input.Reset()

	switch m.mode {
	case ModeRoom:
		if m.opts.Slugify {
			value = protocol.Slugify(value)
		}
		return m, m.roomChange(value)
	case ModeName:
		return m, m.run(string(protocol.SetName), func() error { return m.cmd.RequestNameChange(value) })
	default:
		return m, m.run(string(protocol.Message), func() error { return m.cmd.SendChatMessage(value) })
	}
}

func (m Model) roomChange(room string) tea.Cmd {
	return m.run(string(protocol.ChangeRoom), func() error { return m.cmd.RequestRoomChange(room) })
}

// run performs a session command off the update loop.
func (m Model) run(command string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return SendErrMsg{Command: command, Err: err}
		}
		return nil
	}
}

func (m *Model) syncStatus() {
	m.statusBar.Conn = m.conn.String()
	m.statusBar.Room = m.room
	m.statusBar.User = m.user
	m.statusBar.Mode = m.mode.String()
}

// transcriptSize is the inner size of the message pane: the window minus the
// status bar (3), banner (1), pane border (2), input (1) and help (1) rows.
func (m Model) transcriptSize() (int, int) {
	return max(m.width-roomsWidth-4, 10), max(m.height-8, 3)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showDebug {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.statusBar.View(),
			m.debug.View(m.width, m.height-3),
		)
	}

	w, h := m.transcriptSize()
	pane := theme.StyleBorder.Width(w).Height(h).Render(m.messages.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.rooms.View(roomsWidth, h+2), pane)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusBar.View(),
		m.banner(),
		body,
		m.input.View(),
		theme.StyleDimmed.Render("  enter:send  tab:mode  ctrl+n/p:select room  ctrl+o:join  ctrl+d:events  ctrl+c:quit"),
	)
}

func (m Model) banner() string {
	switch m.conn {
	case chat.StateOpen:
		return ""
	case chat.StateReconnecting:
		return lipgloss.NewStyle().Foreground(theme.ColorDanger).Bold(true).
			Render("  DISCONNECTED · Reconnecting...")
	case chat.StateStopped:
		return theme.StyleDimmed.Render("  Session closed")
	default:
		return lipgloss.NewStyle().Foreground(theme.ColorWarning).
			Render("  Connecting to server...")
	}
}
