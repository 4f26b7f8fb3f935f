// Package protocol encodes the commands a chat client sends and decodes the
// frames the chat server pushes back. It mirrors the server's JSON wire
// format without depending on any server code.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Command is the key of an outbound command frame.
type Command string

const (
	ChangeRoom Command = "change_room"
	SetName    Command = "set_name"
	Message    Command = "message"
)

// Inbound event names. Any other event is a chat message.
const (
	EventJoin    = "join"
	EventSetRoom = "set_room"
	EventSetName = "set_name"
)

// SystemTopic is reserved for transport-level control frames.
const SystemTopic = "system"

// KeepAlive is written as a bare text frame to keep idle proxies from
// dropping the connection. The server does not reply to it.
const KeepAlive = "ping"

// ErrMalformedFrame marks an inbound frame that cannot be applied.
var ErrMalformedFrame = errors.New("malformed frame")

// outbound is the client -> server envelope.
type outbound struct {
	Data map[Command]*string `json:"data"`
}

// Encode builds {"data":{"<cmd>":<value>}}. A nil value is sent as null,
// which asks the server to pick a default (used for the first set_name).
func Encode(cmd Command, value *string) ([]byte, error) {
	data, err := json.Marshal(outbound{Data: map[Command]*string{cmd: value}})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd, err)
	}
	return data, nil
}

// Frame is the server -> client envelope.
type Frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`

	raw []byte
}

// Decode parses one inbound frame. Payload fields are checked lazily by the
// typed accessors, so a frame on the system topic is never rejected for its
// payload shape.
func Decode(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, &MalformedError{Raw: string(raw), Err: err}
	}
	f.raw = raw
	return f, nil
}

// IsSystem reports whether the frame belongs to the reserved system topic.
func (f Frame) IsSystem() bool {
	return f.Topic == SystemTopic
}

// Raw returns the bytes the frame was decoded from.
func (f Frame) Raw() string {
	return string(f.raw)
}

// MalformedError describes a frame that failed to parse or validate.
type MalformedError struct {
	Event string
	Raw   string
	Err   error
}

func (e *MalformedError) Error() string {
	if e.Event == "" {
		return fmt.Sprintf("%s: %v", ErrMalformedFrame, e.Err)
	}
	return fmt.Sprintf("%s (event %q): %v", ErrMalformedFrame, e.Event, e.Err)
}

func (e *MalformedError) Unwrap() []error {
	return []error{ErrMalformedFrame, e.Err}
}

func (f Frame) malformed(err error) error {
	return &MalformedError{Event: f.Event, Raw: string(f.raw), Err: err}
}
