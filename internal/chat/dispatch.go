package chat

import (
	"errors"
	"slices"

	"github.com/astorre88/chat/internal/protocol"
)

// dispatch applies one inbound frame. It only runs on the lifecycle
// goroutine, so frames are applied strictly in arrival order.
func (s *Session) dispatch(c *connection, raw []byte) {
	f, err := protocol.Decode(raw)
	if err != nil {
		s.discard(c, err)
		return
	}
	if f.IsSystem() {
		c.log.Trace().Str("event", f.Event).Msg("system frame ignored")
		return
	}

	switch f.Event {
	case protocol.EventJoin:
		p, err := f.Join()
		if err != nil {
			s.discard(c, err)
			return
		}
		userName := p.UserName
		s.mu.Lock()
		s.room = p.Room
		s.userName = &userName
		s.knownRooms = p.Rooms
		s.mu.Unlock()
		c.log.Info().Str("room", p.Room).Str("user", p.UserName).Msg("joined")
		s.notifier.Joined(p.Room, p.UserName, slices.Clone(p.Rooms))

	case protocol.EventSetRoom:
		p, err := f.SetRoom()
		if err != nil {
			s.discard(c, err)
			return
		}
		s.mu.Lock()
		s.knownRooms = p.Rooms
		s.mu.Unlock()
		s.notifier.RoomsUpdated(slices.Clone(p.Rooms))

	case protocol.EventSetName:
		p, err := f.SetName()
		if err != nil {
			s.discard(c, err)
			return
		}
		userName := p.UserName
		s.mu.Lock()
		s.userName = &userName
		s.mu.Unlock()
		s.notifier.NameUpdated(p.UserName)

	default:
		p, err := f.ChatMessage()
		if err != nil {
			s.discard(c, err)
			return
		}
		s.notifier.ChatMessageReceived(p.Text, p.Author, p.Foreign)
	}
}

func (s *Session) discard(c *connection, err error) {
	ev := c.log.Warn().Err(err)
	var me *protocol.MalformedError
	if errors.As(err, &me) {
		ev = ev.Str("event", me.Event).Str("frame", me.Raw)
	}
	ev.Msg("discarding malformed frame")
}
