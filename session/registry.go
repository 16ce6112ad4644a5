package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	serverroom "github.com/Git-Ashley/server-room"
)

// ErrDuplicateSession is returned by Create when a session already exists for
// the given id.
var ErrDuplicateSession = errors.New(serverroom.ErrSessionExists)

// ErrMissingSessionID is returned by Create when the session id is empty.
var ErrMissingSessionID = errors.New(serverroom.ErrMissingSessionID)

// Info carries the attributes of a session at creation time.
type Info struct {
	// UserID is the logical user identity; it may differ from the session id.
	UserID string

	// IP is the remote address the session connected from, when known.
	IP string

	// Socket, when non-nil, is bound immediately and the session starts
	// connected instead of pending.
	Socket Socket
}

// Registry is the sole authority for creating and destroying sessions. It is
// the single writer of the session-id mapping; rooms only read session state
// through Client's methods.
//
// There is no background scanning: removal is triggered synchronously when a
// session's last room membership is dropped.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger falls back to
// slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		clients: make(map[string]*Client),
		logger:  logger,
	}
}

// Get returns the session for the given id, or nil. Lookup only, no side
// effects.
func (r *Registry) Get(sid string) *Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.clients[sid]
}

// Create constructs a new session for the given id. It fails with
// ErrDuplicateSession when one already exists. The session starts pending,
// or connected when Info carries a socket.
func (r *Registry) Create(sid string, info Info) (*Client, error) {
	if sid == "" {
		return nil, ErrMissingSessionID
	}

	c := newClient(sid, info, r.Remove, r.logger)

	r.mu.Lock()
	if _, exists := r.clients[sid]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, sid)
	}
	r.clients[sid] = c
	r.mu.Unlock()

	if info.Socket != nil {
		c.Transport().Bind(info.Socket, false)
	}

	r.logger.Debug("session created", "session_id", sid, "user_id", info.UserID, "ip", info.IP)
	return c, nil
}

// Remove unconditionally drops the session entry. Callers must ensure the
// session has no remaining room memberships, or state is leaked.
func (r *Registry) Remove(sid string) {
	r.mu.Lock()
	_, existed := r.clients[sid]
	delete(r.clients, sid)
	r.mu.Unlock()

	if existed {
		r.logger.Debug("session removed", "session_id", sid)
	}
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
