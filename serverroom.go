package serverroom

import "context"

// Server accepts inbound WebSocket connections and binds them to registered
// sessions. The concrete implementation lives in the ws package.
//
// Example usage:
//
//	registry := session.NewRegistry(nil)
//	server := ws.New(ws.NewConfig(":8080", registry, ws.DefaultRateLimitConfig(), ws.AllOrigins()))
//
//	if err := server.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
type Server interface {
	// Start starts the server and begins accepting connections. The server
	// keeps running until Stop is called or the context is cancelled.
	//
	// Returns an error if the server is already running or if there is a
	// problem binding to the network address.
	Start(ctx context.Context) error

	// Stop gracefully stops the server and closes every accepted socket.
	// Sessions and their room memberships are not torn down here; rooms
	// observe the socket closures as ordinary disconnects.
	Stop(ctx context.Context) error
}

// JoinResult is the outcome of a room join request.
//
// A rejected join carries a human-readable Reason for display; an accepted
// join carries the RoomID the client should use to namespace its events.
type JoinResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	RoomID  string `json:"id,omitempty"`
}

// Accept returns an accepting JoinResult. The room engine fills in RoomID.
func Accept() JoinResult {
	return JoinResult{Success: true}
}

// Reject returns a rejecting JoinResult with the given reason.
func Reject(reason string) JoinResult {
	return JoinResult{Success: false, Reason: reason}
}

// UserInfo is the caller-supplied metadata accompanying a join request. The
// library treats it as opaque apart from UserID and IP; admission hooks are
// free to inspect Data.
type UserInfo struct {
	// UserID is the logical user identity. It may differ from the session id
	// and may be shared by several sessions of the same user.
	UserID string

	// IP is the remote address the session connected from, when known.
	IP string

	// Data carries application-specific join metadata.
	Data map[string]any
}
