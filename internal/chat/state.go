package chat

// ConnectionState is where the session is in its connect/reconnect cycle.
type ConnectionState int

const (
	// StateIdle means Start has not been called yet.
	StateIdle ConnectionState = iota

	// StateConnecting means a dial is in flight.
	StateConnecting

	// StateOpen means a connection is live and frames are being dispatched.
	StateOpen

	// StateReconnecting means the last connection is gone and the session is
	// waiting out the reconnect delay.
	StateReconnecting

	// StateStopped means the owner closed the session.
	StateStopped
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// State is a point-in-time copy of the session's view of the chat.
// Room and UserName are the values last confirmed by the server.
type State struct {
	Room        string
	UserName    string
	HasUserName bool
	KnownRooms  []string
	Attempt     int
	Connection  ConnectionState
}
