package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultPongTimeout      = 60 * time.Second
	closeGrace              = time.Second
)

// Conn is one bidirectional message channel to the chat server.
// Read is only called from one goroutine; Write calls are serialised by the
// session; Close may be called at any time.
type Conn interface {
	// Read blocks for the next frame. Once the channel has ended it returns
	// an error, a *ClosedError when the close can be described.
	Read() ([]byte, error)
	Write(data []byte) error
	Close() error
}

// Pinger is implemented by a Conn that can probe the peer below the chat
// protocol. The keep-alive calls Ping next to the literal ping frame.
type Pinger interface {
	Ping() error
}

// Dialer opens a Conn to address.
type Dialer interface {
	Dial(ctx context.Context, address string) (Conn, error)
}

// ClosedError reports how a connection ended. Clean is true when the peer
// completed the closing handshake.
type ClosedError struct {
	Code   int
	Reason string
	Clean  bool
	Err    error
}

func (e *ClosedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("connection closed (code %d): %s", e.Code, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("connection closed (code %d): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("connection closed (code %d)", e.Code)
}

func (e *ClosedError) Unwrap() error {
	return e.Err
}

// WebSocketDialer dials the chat server over gorilla/websocket. Every frame
// is sent as a text message.
//
// A connection that receives neither a frame nor a pong for PongTimeout is
// treated as lost, so half-open sockets end in a reconnect.
type WebSocketDialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	PongTimeout      time.Duration
	Header           http.Header
}

// Dial implements Dialer.
func (d WebSocketDialer) Dial(ctx context.Context, address string) (Conn, error) {
	handshake := d.HandshakeTimeout
	if handshake <= 0 {
		handshake = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshake,
	}

	ws, resp, err := dialer.DialContext(ctx, address, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	c := &wsConn{
		ws:           ws,
		writeTimeout: d.WriteTimeout,
		pongTimeout:  d.PongTimeout,
	}
	if c.writeTimeout <= 0 {
		c.writeTimeout = defaultWriteTimeout
	}
	if c.pongTimeout <= 0 {
		c.pongTimeout = defaultPongTimeout
	}
	c.extendDeadline()
	ws.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})
	return c, nil
}

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	pongTimeout  time.Duration
}

func (c *wsConn) extendDeadline() {
	c.ws.SetReadDeadline(time.Now().Add(c.pongTimeout))
}

func (c *wsConn) Read() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, describeClose(err)
	}
	c.extendDeadline()
	return data, nil
}

// Ping sends a WebSocket ping control frame. The pong extends the read
// deadline.
func (c *wsConn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

func (c *wsConn) Write(data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal close frame on a best-effort basis and then drops
// the socket.
func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	return c.ws.Close()
}

// describeClose maps a gorilla read error to a ClosedError. Code 1006 is
// what gorilla reports when the socket ended without a close frame.
func describeClose(err error) *ClosedError {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return &ClosedError{
			Code:   ce.Code,
			Reason: ce.Text,
			Clean:  ce.Code != websocket.CloseAbnormalClosure,
			Err:    err,
		}
	}
	return &ClosedError{Code: websocket.CloseAbnormalClosure, Err: err}
}
