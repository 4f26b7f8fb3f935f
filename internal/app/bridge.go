package app

import (
	"github.com/astorre88/chat/internal/chat"
	tea "github.com/charmbracelet/bubbletea"
)

// JoinedMsg reports a (re)join; the transcript starts over.
type JoinedMsg struct {
	Room     string
	UserName string
	Rooms    []string
}

// RoomsMsg carries a replacement room list.
type RoomsMsg struct {
	Rooms []string
}

// NameMsg carries a server-confirmed user name.
type NameMsg struct {
	UserName string
}

// ChatMsg is a chat line. Foreign is false for this client's own messages.
type ChatMsg struct {
	Text    string
	Author  string
	Foreign bool
}

// ConnStateMsg reports a connection state transition.
type ConnStateMsg struct {
	State chat.ConnectionState
}

// SendErrMsg reports a command the session could not deliver.
type SendErrMsg struct {
	Command string
	Err     error
}

// Bridge turns session notifications into tea messages. send is usually
// (*tea.Program).Send, which delivers in call order.
type Bridge struct {
	send func(tea.Msg)
}

// NewBridge returns a Bridge that forwards through send.
func NewBridge(send func(tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

var (
	_ chat.Notifier      = (*Bridge)(nil)
	_ chat.StateObserver = (*Bridge)(nil)
)

func (b *Bridge) Joined(room, userName string, rooms []string) {
	b.send(JoinedMsg{Room: room, UserName: userName, Rooms: rooms})
}

func (b *Bridge) RoomsUpdated(rooms []string) {
	b.send(RoomsMsg{Rooms: rooms})
}

func (b *Bridge) NameUpdated(userName string) {
	b.send(NameMsg{UserName: userName})
}

func (b *Bridge) ChatMessageReceived(text, author string, foreign bool) {
	b.send(ChatMsg{Text: text, Author: author, Foreign: foreign})
}

func (b *Bridge) ConnectionStateChanged(state chat.ConnectionState) {
	b.send(ConnStateMsg{State: state})
}
