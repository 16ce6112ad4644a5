package session

// SocketState describes the readiness of a raw socket.
type SocketState int

const (
	SocketConnecting SocketState = iota
	SocketOpen
	SocketClosed
)

// String returns a human-readable state name for logging.
func (s SocketState) String() string {
	switch s {
	case SocketConnecting:
		return "connecting"
	case SocketOpen:
		return "open"
	case SocketClosed:
		return "closed"
	}
	return "unknown"
}

// Socket is the write side of one raw duplex connection. The accepting layer
// owns the read side and feeds inbound frames to Transport.Dispatch and the
// close notification to Transport.HandleClosed.
//
// Implementations must tolerate Terminate being called more than once.
type Socket interface {
	// Send queues one encoded frame for delivery.
	Send(frame []byte) error

	// State reports the current connection state.
	State() SocketState

	// Close shuts the socket down gracefully (close handshake permitted).
	Close() error

	// Terminate force-closes the socket. Used when a newer socket replaces
	// this one or when a session is forcibly evicted.
	Terminate()
}
