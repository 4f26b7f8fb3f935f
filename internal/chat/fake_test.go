package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

var errFakeClosed = errors.New("fake conn closed")

// fakeConn is an in-memory Conn. Tests push inbound frames with deliver and
// read outbound frames from out.
type fakeConn struct {
	in  chan []byte
	out chan string

	once     sync.Once
	ended    chan struct{}
	mu       sync.Mutex
	endErr   error
	writeErr error
	writes   atomic.Int64
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:    make(chan []byte, 16),
		out:   make(chan string, 64),
		ended: make(chan struct{}),
	}
}

func (c *fakeConn) Read() ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.ended:
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.endErr
	}
}

func (c *fakeConn) Write(data []byte) error {
	c.writes.Add(1)
	select {
	case <-c.ended:
		return errFakeClosed
	default:
	}
	c.mu.Lock()
	err := c.writeErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.out <- string(data)
	return nil
}

func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

func (c *fakeConn) Close() error {
	c.end(errFakeClosed)
	return nil
}

// end finishes the conn; the session's next Read returns err.
func (c *fakeConn) end(err error) {
	c.once.Do(func() {
		c.mu.Lock()
		c.endErr = err
		c.mu.Unlock()
		close(c.ended)
	})
}

func (c *fakeConn) deliver(frame string) {
	c.in <- []byte(frame)
}

// nextOut returns the next outbound frame that is not a keep-alive.
func (c *fakeConn) nextOut(t *testing.T) string {
	t.Helper()
	for {
		select {
		case f := <-c.out:
			if f == "ping" {
				continue
			}
			return f
		case <-time.After(waitFor):
			t.Fatal("timed out waiting for outbound frame")
			return ""
		}
	}
}

type dialResult struct {
	conn Conn
	err  error
}

// scriptedDialer hands out one queued result per Dial call.
type scriptedDialer struct {
	results chan dialResult
	calls   chan string
}

func newScriptedDialer() *scriptedDialer {
	return &scriptedDialer{
		results: make(chan dialResult, 16),
		calls:   make(chan string, 16),
	}
}

func (d *scriptedDialer) Dial(ctx context.Context, address string) (Conn, error) {
	select {
	case d.calls <- address:
	default:
	}
	select {
	case r := <-d.results:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *scriptedDialer) succeed() *fakeConn {
	c := newFakeConn()
	d.results <- dialResult{conn: c}
	return c
}

func (d *scriptedDialer) fail(err error) {
	d.results <- dialResult{err: err}
}

type note struct {
	kind    string
	room    string
	user    string
	rooms   []string
	text    string
	author  string
	foreign bool
}

// recorder is a Notifier that forwards every call to channels.
type recorder struct {
	notes  chan note
	states chan ConnectionState
}

func newRecorder() *recorder {
	return &recorder{
		notes:  make(chan note, 64),
		states: make(chan ConnectionState, 64),
	}
}

func (r *recorder) Joined(room, userName string, rooms []string) {
	r.notes <- note{kind: "joined", room: room, user: userName, rooms: rooms}
}

func (r *recorder) RoomsUpdated(rooms []string) {
	r.notes <- note{kind: "rooms", rooms: rooms}
}

func (r *recorder) NameUpdated(userName string) {
	r.notes <- note{kind: "name", user: userName}
}

func (r *recorder) ChatMessageReceived(text, author string, foreign bool) {
	r.notes <- note{kind: "chat", text: text, author: author, foreign: foreign}
}

func (r *recorder) ConnectionStateChanged(state ConnectionState) {
	select {
	case r.states <- state:
	default:
	}
}

func (r *recorder) next(t *testing.T) note {
	t.Helper()
	select {
	case n := <-r.notes:
		return n
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for notification")
		return note{}
	}
}

func (r *recorder) waitState(t *testing.T, want ConnectionState) {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case s := <-r.states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func (r *recorder) requireQuiet(t *testing.T) {
	t.Helper()
	select {
	case n := <-r.notes:
		t.Fatalf("unexpected notification: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

// policySpy records the attempts it is asked about.
type policySpy struct {
	calls chan int
}

func newPolicySpy() *policySpy {
	return &policySpy{calls: make(chan int, 64)}
}

func (p *policySpy) delay(attempt int) time.Duration {
	p.calls <- attempt
	return time.Millisecond
}

func (p *policySpy) next(t *testing.T) int {
	t.Helper()
	select {
	case a := <-p.calls:
		return a
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for reconnect policy call")
		return 0
	}
}

// startSession starts a session on a scripted dialer and registers cleanup.
func startSession(t *testing.T, room string, d Dialer, n Notifier, p *policySpy, keepAlive time.Duration) *Session {
	t.Helper()
	opts := Options{Room: room, Dialer: d, Notifier: n, KeepAliveInterval: keepAlive}
	if p != nil {
		opts.Policy = p.delay
	}
	s := New(opts)
	require.NoError(t, s.Start(context.Background(), "ws://chat.test/ws/chat"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// logBuffer collects JSON log lines written from session goroutines.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) find(msg string) (map[string]any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(sc.Bytes(), &entry); err != nil {
			continue
		}
		if entry["message"] == msg {
			return entry, true
		}
	}
	return nil, false
}

// waitLog returns the first entry whose message is exactly msg.
func (b *logBuffer) waitLog(t *testing.T, msg string) map[string]any {
	t.Helper()
	var entry map[string]any
	require.Eventually(t, func() bool {
		var ok bool
		entry, ok = b.find(msg)
		return ok
	}, waitFor, 5*time.Millisecond, "no %q log entry", msg)
	return entry
}
