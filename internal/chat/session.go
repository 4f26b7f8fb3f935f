// Package chat keeps a chat client connected to its server. A Session owns
// at most one live connection, reconnects forever after any close, replays
// the confirmed room and name on every new connection, and turns inbound
// frames into Notifier calls.
package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/astorre88/chat/internal/protocol"
	"github.com/astorre88/chat/internal/reconnect"
)

// DefaultKeepAlive is how often the keep-alive literal is written.
const DefaultKeepAlive = 30 * time.Second

var (
	ErrNotConnected   = errors.New("not connected")
	ErrAlreadyStarted = errors.New("session already started")
	ErrEmptyAddress   = errors.New("empty server address")
)

// Options configures a Session. Zero fields get defaults.
type Options struct {
	// Room is the room to ask for on the first connection.
	Room string

	Dialer   Dialer           // default WebSocketDialer{}
	Policy   reconnect.Policy // default reconnect.Default
	Notifier Notifier         // default drops notifications
	Logger   *zerolog.Logger  // default zerolog.Nop()

	// KeepAliveInterval <= 0 selects DefaultKeepAlive.
	KeepAliveInterval time.Duration
}

// Session is a reconnecting chat client session.
type Session struct {
	dialer    Dialer
	policy    reconnect.Policy
	notifier  Notifier
	observer  StateObserver
	log       zerolog.Logger
	keepAlive time.Duration

	mu         sync.Mutex
	room       string
	userName   *string
	knownRooms []string
	attempt    int
	state      ConnectionState
	conn       *connection
	cancel     context.CancelFunc
	done       chan struct{}
}

// New creates a session. Nothing is dialed until Start.
func New(opts Options) *Session {
	s := &Session{
		dialer:    opts.Dialer,
		policy:    opts.Policy,
		notifier:  opts.Notifier,
		keepAlive: opts.KeepAliveInterval,
		room:      opts.Room,
		attempt:   1,
		done:      make(chan struct{}),
	}
	if s.dialer == nil {
		s.dialer = WebSocketDialer{}
	}
	if s.policy == nil {
		s.policy = reconnect.Default
	}
	if s.notifier == nil {
		s.notifier = NotifierFuncs{}
	}
	if obs, ok := s.notifier.(StateObserver); ok {
		s.observer = obs
	}
	if s.keepAlive <= 0 {
		s.keepAlive = DefaultKeepAlive
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str("component", "chat-session").Logger()
	} else {
		s.log = zerolog.Nop()
	}
	return s
}

// Start begins connecting to address in the background and returns at once.
// The session keeps reconnecting until ctx is cancelled or Close is called.
func (s *Session) Start(ctx context.Context, address string) error {
	if address == "" {
		return ErrEmptyAddress
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.log.Info().Str("address", address).Str("room", s.State().Room).Msg("starting session")
	go s.run(ctx, address)
	return nil
}

// Close stops the session and waits for its connection to be torn down.
func (s *Session) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-s.done
	return nil
}

// Done is closed once a started session has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns a copy of the session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Room:       s.room,
		KnownRooms: slices.Clone(s.knownRooms),
		Attempt:    s.attempt,
		Connection: s.state,
	}
	if s.userName != nil {
		st.UserName = *s.userName
		st.HasUserName = true
	}
	return st
}

// RequestRoomChange asks the server to move this client to room. The local
// room only changes once the server confirms with a join.
func (s *Session) RequestRoomChange(room string) error {
	return s.send(protocol.ChangeRoom, &room)
}

// RequestNameChange asks the server to rename this client.
func (s *Session) RequestNameChange(userName string) error {
	return s.send(protocol.SetName, &userName)
}

// SendChatMessage sends text to the current room. There is no local echo;
// the server sends the message back.
func (s *Session) SendChatMessage(text string) error {
	return s.send(protocol.Message, &text)
}

func (s *Session) run(ctx context.Context, address string) {
	defer close(s.done)
	defer s.setState(StateStopped)

	for {
		s.setState(StateConnecting)
		s.connect(ctx, address)
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		attempt := s.attempt
		s.attempt++
		s.mu.Unlock()

		delay := s.policy(attempt)
		s.setState(StateReconnecting)
		s.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("reconnect scheduled")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// connect runs one connection from dial to close.
func (s *Session) connect(ctx context.Context, address string) {
	conn, err := s.dialer.Dial(ctx, address)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn().Err(err).Str("address", address).Msg("dial failed")
		}
		return
	}

	c := newConnection(conn, s.log)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.open(ctx, c)
	err = s.serve(c)
	s.closed(ctx, c, err)
}

func (s *Session) open(ctx context.Context, c *connection) {
	s.mu.Lock()
	s.attempt = 1
	s.conn = c
	room := s.room
	userName := s.userName
	s.mu.Unlock()

	c.log.Info().Msg("connection open")

	// Replay the last confirmed room and name before reporting the session
	// open, so commands issued on StateOpen follow the bootstrap. A nil name
	// is sent as null so the server assigns one.
	if err := s.write(c, protocol.ChangeRoom, &room); err == nil {
		_ = s.write(c, protocol.SetName, userName)
	}
	s.setState(StateOpen)
	c.startKeepAlive(ctx, s.keepAlive)
}

func (s *Session) serve(c *connection) error {
	for {
		data, err := c.conn.Read()
		if err != nil {
			return err
		}
		s.dispatch(c, data)
	}
}

func (s *Session) closed(ctx context.Context, c *connection, err error) {
	c.stopKeepAlive()
	s.mu.Lock()
	if s.conn == c {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = c.conn.Close()

	if ctx.Err() != nil {
		c.log.Info().Msg("connection closed on shutdown")
		return
	}

	var ce *ClosedError
	switch {
	case errors.As(err, &ce) && ce.Clean:
		c.log.Info().Int("code", ce.Code).Str("reason", ce.Reason).Msg("connection closed cleanly")
	case ce != nil:
		c.log.Warn().Err(ce.Err).Int("code", ce.Code).Str("reason", ce.Reason).Msg("connection closed")
	default:
		c.log.Warn().Err(err).Msg("connection lost")
	}
}

func (s *Session) send(cmd protocol.Command, value *string) error {
	s.mu.Lock()
	c := s.conn
	s.mu.Unlock()
	if c == nil {
		s.log.Warn().Str("command", string(cmd)).Msg("send dropped: not connected")
		return fmt.Errorf("%s: %w", cmd, ErrNotConnected)
	}
	return s.write(c, cmd, value)
}

func (s *Session) write(c *connection, cmd protocol.Command, value *string) error {
	data, err := protocol.Encode(cmd, value)
	if err != nil {
		return err
	}
	if err := c.write(data); err != nil {
		c.log.Warn().Err(err).Str("command", string(cmd)).Msg("send failed")
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

func (s *Session) setState(state ConnectionState) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()
	if changed && s.observer != nil {
		s.observer.ConnectionStateChanged(state)
	}
}
