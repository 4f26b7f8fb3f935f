package chat

// Notifier is how a front end learns about server-confirmed changes.
// Calls arrive one at a time, in the order the frames were received.
type Notifier interface {
	// Joined reports a (re)join. Front ends should clear the transcript.
	Joined(room, userName string, rooms []string)
	RoomsUpdated(rooms []string)
	NameUpdated(userName string)
	// ChatMessageReceived reports a chat line. foreign is false when the
	// server echoes this client's own message.
	ChatMessageReceived(text, author string, foreign bool)
}

// StateObserver is optionally implemented by a Notifier that also wants
// connection state transitions.
type StateObserver interface {
	ConnectionStateChanged(state ConnectionState)
}

// NotifierFuncs adapts plain functions to Notifier and StateObserver.
// Nil fields are skipped.
type NotifierFuncs struct {
	OnJoined          func(room, userName string, rooms []string)
	OnRoomsUpdated    func(rooms []string)
	OnNameUpdated     func(userName string)
	OnChatMessage     func(text, author string, foreign bool)
	OnConnectionState func(state ConnectionState)
}

func (n NotifierFuncs) Joined(room, userName string, rooms []string) {
	if n.OnJoined != nil {
		n.OnJoined(room, userName, rooms)
	}
}

func (n NotifierFuncs) RoomsUpdated(rooms []string) {
	if n.OnRoomsUpdated != nil {
		n.OnRoomsUpdated(rooms)
	}
}

func (n NotifierFuncs) NameUpdated(userName string) {
	if n.OnNameUpdated != nil {
		n.OnNameUpdated(userName)
	}
}

func (n NotifierFuncs) ChatMessageReceived(text, author string, foreign bool) {
	if n.OnChatMessage != nil {
		n.OnChatMessage(text, author, foreign)
	}
}

func (n NotifierFuncs) ConnectionStateChanged(state ConnectionState) {
	if n.OnConnectionState != nil {
		n.OnConnectionState(state)
	}
}
