package serverroom

// Reserved lifecycle event names. These are dispatched by the transport layer
// and must never be used as raw application event names.
const (
	// EventConnect fires when a socket is bound to a session's transport.
	EventConnect = "connect"
	// EventReconnect fires after EventConnect when the bind replaces a
	// previously disconnected socket.
	EventReconnect = "reconnect"
	// EventDisconnect fires when the bound socket closes. It is shared by
	// every room watching the client and is never room-namespaced.
	EventDisconnect = "disconnect"

	// EventClientInitialized is the room-namespaced handshake event a client
	// sends to signal that it finished client-side initialization.
	EventClientInitialized = "CLIENT_INITIALIZED"
	// EventExit is the room-namespaced event a client sends to leave a room.
	EventExit = "EXIT"
)

// Standard error messages
const (
	// Protocol errors
	ErrInvalidEnvelope = "invalid message envelope"
	ErrEmptyEventName  = "event name must not be empty"

	// Session errors
	ErrSessionExists   = "session already exists"
	ErrSessionNotFound = "session not found"

	// Join rejection reasons
	ReasonAlreadyActive = "session already active in this room"

	// Server errors
	ErrServerAlreadyRunning = "server already running"
	ErrMissingSessionID     = "missing session id"
)

// MaxListenersPerEvent is the number of listeners on a single event name
// above which a possible leak is diagnosed. The warning never alters
// behavior.
const MaxListenersPerEvent = 8
