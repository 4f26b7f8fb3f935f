package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// JoinPayload confirms the room the server placed this client in.
type JoinPayload struct {
	Room     string
	UserName string
	Rooms    []string
}

// RoomsPayload carries the current room listing.
type RoomsPayload struct {
	Rooms []string
}

// NamePayload confirms the client's display name.
type NamePayload struct {
	UserName string
}

// ChatPayload is a chat line. Foreign is false for the server's echo of this
// client's own message.
type ChatPayload struct {
	Text    string
	Author  string
	Foreign bool
}

// Wire shapes use pointers so that absent and null fields can be told apart
// from zero values.
type joinWire struct {
	UserName *string   `json:"user_name"`
	Rooms    *[]string `json:"rooms"`
}

type roomsWire struct {
	Rooms *[]string `json:"rooms"`
}

type nameWire struct {
	UserName *string `json:"user_name"`
}

type chatWire struct {
	Message *string `json:"message"`
	Name    *string `json:"name"`
	Foreign *bool   `json:"foreign"`
}

func missing(field string) error {
	return fmt.Errorf("payload.%s is missing", field)
}

func (f Frame) payload(v any) error {
	if len(f.Payload) == 0 || string(f.Payload) == "null" {
		return errors.New("payload is missing")
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("payload: %w", err)
	}
	return nil
}

// Join validates a join frame. The frame topic is the joined room.
func (f Frame) Join() (JoinPayload, error) {
	var w joinWire
	if err := f.payload(&w); err != nil {
		return JoinPayload{}, f.malformed(err)
	}
	switch {
	case f.Topic == "":
		return JoinPayload{}, f.malformed(errors.New("topic is empty"))
	case w.UserName == nil:
		return JoinPayload{}, f.malformed(missing("user_name"))
	case w.Rooms == nil:
		return JoinPayload{}, f.malformed(missing("rooms"))
	}
	return JoinPayload{Room: f.Topic, UserName: *w.UserName, Rooms: *w.Rooms}, nil
}

// SetRoom validates a set_room frame.
func (f Frame) SetRoom() (RoomsPayload, error) {
	var w roomsWire
	if err := f.payload(&w); err != nil {
		return RoomsPayload{}, f.malformed(err)
	}
	if w.Rooms == nil {
		return RoomsPayload{}, f.malformed(missing("rooms"))
	}
	return RoomsPayload{Rooms: *w.Rooms}, nil
}

// SetName validates a set_name frame.
func (f Frame) SetName() (NamePayload, error) {
	var w nameWire
	if err := f.payload(&w); err != nil {
		return NamePayload{}, f.malformed(err)
	}
	if w.UserName == nil {
		return NamePayload{}, f.malformed(missing("user_name"))
	}
	return NamePayload{UserName: *w.UserName}, nil
}

// ChatMessage validates a chat frame. A foreign message must name its author.
func (f Frame) ChatMessage() (ChatPayload, error) {
	var w chatWire
	if err := f.payload(&w); err != nil {
		return ChatPayload{}, f.malformed(err)
	}
	if w.Message == nil {
		return ChatPayload{}, f.malformed(missing("message"))
	}
	p := ChatPayload{Text: *w.Message}
	if w.Foreign != nil {
		p.Foreign = *w.Foreign
	}
	if w.Name != nil {
		p.Author = *w.Name
	} else if p.Foreign {
		return ChatPayload{}, f.malformed(missing("name"))
	}
	return p, nil
}
