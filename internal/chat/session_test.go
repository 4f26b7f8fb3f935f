package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openSession starts a session whose first dial succeeds and drains the
// two bootstrap frames.
func openSession(t *testing.T) (*Session, *fakeConn, *recorder) {
	t.Helper()
	d := newScriptedDialer()
	conn := d.succeed()
	rec := newRecorder()
	s := startSession(t, "chat", d, rec, newPolicySpy(), time.Hour)
	conn.nextOut(t)
	conn.nextOut(t)
	return s, conn, rec
}

func TestBootstrapOnOpen(t *testing.T) {
	d := newScriptedDialer()
	conn := d.succeed()
	rec := newRecorder()
	startSession(t, "chat", d, rec, nil, time.Hour)

	assert.JSONEq(t, `{"data":{"change_room":"chat"}}`, conn.nextOut(t))
	assert.JSONEq(t, `{"data":{"set_name":null}}`, conn.nextOut(t))
	rec.waitState(t, StateOpen)
}

func TestJoinFrame(t *testing.T) {
	s, conn, rec := openSession(t)

	conn.deliver(`{"topic":"lobby","event":"join","payload":{"user_name":"Ann","rooms":["lobby","dev"]}}`)

	n := rec.next(t)
	assert.Equal(t, note{kind: "joined", room: "lobby", user: "Ann", rooms: []string{"lobby", "dev"}}, n)
	rec.requireQuiet(t)

	st := s.State()
	assert.Equal(t, "lobby", st.Room)
	assert.Equal(t, "Ann", st.UserName)
	assert.True(t, st.HasUserName)
	assert.Equal(t, []string{"lobby", "dev"}, st.KnownRooms)
}

func TestSetRoomFrame(t *testing.T) {
	s, conn, rec := openSession(t)
	conn.deliver(`{"topic":"lobby","event":"join","payload":{"user_name":"Ann","rooms":["lobby","dev"]}}`)
	rec.next(t)

	conn.deliver(`{"topic":"lobby","event":"set_room","payload":{"rooms":["lobby","dev","ops"]}}`)

	n := rec.next(t)
	assert.Equal(t, note{kind: "rooms", rooms: []string{"lobby", "dev", "ops"}}, n)

	st := s.State()
	assert.Equal(t, "lobby", st.Room)
	assert.Equal(t, "Ann", st.UserName)
	assert.Equal(t, []string{"lobby", "dev", "ops"}, st.KnownRooms)
}

func TestSetRoomFromOtherTopicKeepsRoom(t *testing.T) {
	s, conn, rec := openSession(t)
	conn.deliver(`{"topic":"lobby","event":"join","payload":{"user_name":"Ann","rooms":["lobby"]}}`)
	rec.next(t)

	conn.deliver(`{"topic":"elsewhere","event":"set_room","payload":{"rooms":["lobby","elsewhere"]}}`)
	rec.next(t)

	assert.Equal(t, "lobby", s.State().Room)
}

func TestSetNameFrame(t *testing.T) {
	s, conn, rec := openSession(t)

	conn.deliver(`{"topic":"chat","event":"set_name","payload":{"user_name":"Zed"}}`)

	assert.Equal(t, note{kind: "name", user: "Zed"}, rec.next(t))
	st := s.State()
	assert.Equal(t, "Zed", st.UserName)
	assert.Equal(t, "chat", st.Room)
}

func TestChatFrame(t *testing.T) {
	s, conn, rec := openSession(t)
	conn.deliver(`{"topic":"lobby","event":"join","payload":{"user_name":"Ann","rooms":["lobby","dev"]}}`)
	rec.next(t)
	before := s.State()

	conn.deliver(`{"topic":"lobby","event":"shout","payload":{"message":"hi","name":"Bob","foreign":true}}`)
	assert.Equal(t, note{kind: "chat", text: "hi", author: "Bob", foreign: true}, rec.next(t))

	conn.deliver(`{"topic":"lobby","event":"message","payload":{"message":"mine","name":"Ann"}}`)
	assert.Equal(t, note{kind: "chat", text: "mine", author: "Ann"}, rec.next(t))

	assert.Equal(t, before, s.State())
}

func TestSystemFramesIgnored(t *testing.T) {
	s, conn, rec := openSession(t)
	before := s.State()

	conn.deliver(`{"topic":"system","event":"join","payload":{"user_name":"Mallory","rooms":["x"]}}`)
	conn.deliver(`{"topic":"system","event":"pong"}`)
	conn.deliver(`{"topic":"chat","event":"message","payload":{"message":"after","name":"Ann"}}`)

	n := rec.next(t)
	assert.Equal(t, "chat", n.kind)
	assert.Equal(t, "after", n.text)
	assert.Equal(t, before, s.State())
}

func TestMalformedFramesDiscarded(t *testing.T) {
	s, conn, rec := openSession(t)

	conn.deliver(`not json at all`)
	conn.deliver(`{"topic":"lobby","event":"join","payload":{"user_name":"Ann"}}`)
	conn.deliver(`{"topic":"lobby","event":"set_name","payload":{"user_name":null}}`)
	conn.deliver(`{"topic":"lobby","event":"shout","payload":{"foreign":true}}`)
	conn.deliver(`{"topic":"lobby","event":"join","payload":{"user_name":"Ann","rooms":["lobby"]}}`)

	n := rec.next(t)
	assert.Equal(t, "joined", n.kind)
	assert.Equal(t, []string{"lobby"}, n.rooms)
	rec.requireQuiet(t)
	assert.Equal(t, "lobby", s.State().Room)
	assert.Equal(t, StateOpen, s.State().Connection)
}

func TestFramesAppliedInOrder(t *testing.T) {
	_, conn, rec := openSession(t)
	for _, text := range []string{"one", "two", "three", "four"} {
		conn.deliver(`{"topic":"chat","event":"message","payload":{"message":"` + text + `","name":"Ann"}}`)
	}
	for _, want := range []string{"one", "two", "three", "four"} {
		assert.Equal(t, want, rec.next(t).text)
	}
}

func TestCommandsDoNotChangeState(t *testing.T) {
	s, conn, _ := openSession(t)
	before := s.State()

	require.NoError(t, s.RequestRoomChange("dev"))
	assert.JSONEq(t, `{"data":{"change_room":"dev"}}`, conn.nextOut(t))

	require.NoError(t, s.RequestNameChange("Bea"))
	assert.JSONEq(t, `{"data":{"set_name":"Bea"}}`, conn.nextOut(t))

	require.NoError(t, s.SendChatMessage("hello"))
	assert.JSONEq(t, `{"data":{"message":"hello"}}`, conn.nextOut(t))

	require.NoError(t, s.RequestRoomChange(""))
	assert.JSONEq(t, `{"data":{"change_room":""}}`, conn.nextOut(t))

	assert.Equal(t, before, s.State())
}

func TestSendWithoutConnection(t *testing.T) {
	s := New(Options{Room: "chat"})
	err := s.SendChatMessage("hi")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, s.RequestRoomChange("x"), ErrNotConnected)
	assert.ErrorIs(t, s.RequestNameChange("x"), ErrNotConnected)
}

func TestSendFailureDoesNotReconnect(t *testing.T) {
	d := newScriptedDialer()
	conn := d.succeed()
	policy := newPolicySpy()
	s := startSession(t, "chat", d, newRecorder(), policy, time.Hour)
	conn.nextOut(t)
	conn.nextOut(t)

	// The write side breaks while the read side is still up.
	conn.failWrites(errors.New("broken pipe"))

	err := s.SendChatMessage("lost")
	require.Error(t, err)

	select {
	case a := <-policy.calls:
		t.Fatalf("send failure scheduled a reconnect (attempt %d)", a)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, StateOpen, s.State().Connection)
}

func TestStartValidation(t *testing.T) {
	s := New(Options{Room: "chat", Dialer: newScriptedDialer()})
	assert.ErrorIs(t, s.Start(context.Background(), ""), ErrEmptyAddress)

	require.NoError(t, s.Start(context.Background(), "ws://chat.test"))
	defer s.Close()
	assert.ErrorIs(t, s.Start(context.Background(), "ws://chat.test"), ErrAlreadyStarted)
}

func TestCloseStopsSession(t *testing.T) {
	d := newScriptedDialer()
	conn := d.succeed()
	rec := newRecorder()
	s := startSession(t, "chat", d, rec, nil, time.Hour)
	conn.nextOut(t)
	conn.nextOut(t)

	require.NoError(t, s.Close())
	select {
	case <-s.Done():
	case <-time.After(waitFor):
		t.Fatal("session did not stop")
	}
	assert.Equal(t, StateStopped, s.State().Connection)
	select {
	case <-conn.ended:
	default:
		t.Fatal("connection was not closed")
	}
}

func TestContextCancelStopsSession(t *testing.T) {
	d := newScriptedDialer()
	s := New(Options{Room: "chat", Dialer: d})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx, "ws://chat.test"))
	cancel()

	select {
	case <-s.Done():
	case <-time.After(waitFor):
		t.Fatal("session did not stop after context cancel")
	}
}

func TestCloseBeforeStart(t *testing.T) {
	s := New(Options{Room: "chat"})
	assert.NoError(t, s.Close())
	assert.Equal(t, StateIdle, s.State().Connection)
}

func TestNewDefaults(t *testing.T) {
	s := New(Options{Room: "chat"})
	assert.IsType(t, WebSocketDialer{}, s.dialer)
	assert.Equal(t, DefaultKeepAlive, s.keepAlive)
	assert.NotNil(t, s.policy)
	st := s.State()
	assert.Equal(t, 1, st.Attempt)
	assert.False(t, st.HasUserName)
	assert.Empty(t, st.KnownRooms)
}

func TestLogsMalformedFramesAndCloses(t *testing.T) {
	logs := &logBuffer{}
	logger := zerolog.New(logs)
	d := newScriptedDialer()
	first := d.succeed()
	policy := newPolicySpy()
	s := New(Options{
		Room:              "chat",
		Dialer:            d,
		Notifier:          newRecorder(),
		Policy:            policy.delay,
		Logger:            &logger,
		KeepAliveInterval: time.Hour,
	})
	require.NoError(t, s.Start(context.Background(), "ws://chat.test/ws/chat"))
	t.Cleanup(func() { _ = s.Close() })
	first.nextOut(t)
	first.nextOut(t)

	frame := `{"topic":"lobby","event":"join","payload":{"user_name":"Ann"}}`
	first.deliver(frame)
	entry := logs.waitLog(t, "discarding malformed frame")
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "join", entry["event"])
	assert.Equal(t, frame, entry["frame"])

	second := d.succeed()
	first.end(&ClosedError{Code: 1000, Reason: "restart", Clean: true})
	entry = logs.waitLog(t, "connection closed cleanly")
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 1000, entry["code"])
	assert.Equal(t, "restart", entry["reason"])

	second.nextOut(t)
	second.nextOut(t)
	second.end(&ClosedError{Code: 1006, Err: errors.New("unexpected EOF")})
	entry = logs.waitLog(t, "connection closed")
	assert.Equal(t, "warn", entry["level"])
	assert.EqualValues(t, 1006, entry["code"])
	assert.Equal(t, "unexpected EOF", entry["error"])
}
