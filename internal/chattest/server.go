// Package chattest runs a scripted chat server for tests. It accepts
// WebSocket clients, records every frame they send, and lets a test push
// frames or end connections cleanly or abruptly.
package chattest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is one message received from a client.
type Frame struct {
	Conn int // 1-based index of the connection it arrived on
	Data string
}

// Server is an httptest.Server speaking WebSocket on every path.
type Server struct {
	srv *httptest.Server

	frames      chan Frame
	connections chan int

	mu     sync.Mutex
	conns  []*websocket.Conn
	reject int
}

var errNoConn = errors.New("chattest: no client connected")

// New starts a server. Call Close when done.
func New() *Server {
	s := &Server{
		frames:      make(chan Frame, 256),
		connections: make(chan int, 64),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handleWS))
	return s
}

// URL is the ws:// address clients should dial.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

// Frames delivers client frames in arrival order.
func (s *Server) Frames() <-chan Frame {
	return s.frames
}

// Connections delivers the index of each accepted connection.
func (s *Server) Connections() <-chan int {
	return s.connections
}

// RejectNext makes the next n handshakes fail with 503.
func (s *Server) RejectNext(n int) {
	s.mu.Lock()
	s.reject = n
	s.mu.Unlock()
}

// Push writes a text frame to the most recent connection.
func (s *Server) Push(data string) error {
	c, err := s.latest()
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, []byte(data))
}

// PushJSON marshals v and pushes it.
func (s *Server) PushJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Push(string(data))
}

// CloseClean performs the closing handshake on the most recent connection.
func (s *Server) CloseClean(code int, reason string) error {
	c, err := s.latest()
	if err != nil {
		return err
	}
	msg := websocket.FormatCloseMessage(code, reason)
	return c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// Drop tears down the most recent connection's socket without a close frame.
func (s *Server) Drop() error {
	c, err := s.latest()
	if err != nil {
		return err
	}
	return c.UnderlyingConn().Close()
}

// Close stops the server and every open connection.
func (s *Server) Close() {
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.srv.CloseClientConnections()
	s.srv.Close()
}

func (s *Server) latest() (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		return nil, errNoConn
	}
	return s.conns[len(s.conns)-1], nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.reject > 0 {
		s.reject--
		s.mu.Unlock()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	s.mu.Unlock()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns = append(s.conns, conn)
	idx := len(s.conns)
	s.mu.Unlock()

	select {
	case s.connections <- idx:
	default:
	}

	go func() {
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			select {
			case s.frames <- Frame{Conn: idx, Data: string(data)}:
			default:
				// Test is not draining frames; drop rather than block reads.
			}
		}
	}()
}
