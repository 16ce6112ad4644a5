package session

import (
	"encoding/json"
	"log/slog"
	"sync"

	serverroom "github.com/Git-Ashley/server-room"
)

// Status is a session's connection state.
type Status int

const (
	// StatusPending means the session was created without a socket and has
	// never been connected.
	StatusPending Status = iota
	StatusConnected
	StatusDisconnected
)

// String returns a human-readable status name for logging.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// RoomRef is the session's view of a room it belongs to. It is a
// back-reference only; rooms own the membership state.
type RoomRef interface {
	// ID returns the room's unique id.
	ID() string

	// Leave evicts the client from the room.
	Leave(c *Client)
}

// Client is a logical session: a stable identity bound to one Transport and a
// set of room memberships. The identity survives socket replacement; only the
// transport's bound socket changes on reconnect.
type Client struct {
	sessionID string
	userID    string
	ip        string
	transport *Transport
	logger    *slog.Logger

	mu             sync.Mutex
	status         Status
	rooms          map[string]RoomRef
	onLeftAllRooms func(sid string)
}

// newClient wires a client to a fresh transport and tracks connection status
// through the transport's lifecycle pseudo-events. The client holds no
// timers; grace periods are the rooms' concern.
func newClient(sid string, info Info, onLeftAllRooms func(sid string), logger *slog.Logger) *Client {
	c := &Client{
		sessionID:      sid,
		userID:         info.UserID,
		ip:             info.IP,
		transport:      NewTransport(logger),
		logger:         logger,
		status:         StatusPending,
		rooms:          make(map[string]RoomRef),
		onLeftAllRooms: onLeftAllRooms,
	}

	c.transport.On(NewListener(serverroom.EventConnect, func(json.RawMessage) {
		c.setStatus(StatusConnected)
	}))
	c.transport.On(NewListener(serverroom.EventReconnect, func(json.RawMessage) {
		c.setStatus(StatusConnected)
	}))
	c.transport.On(NewListener(serverroom.EventDisconnect, func(json.RawMessage) {
		c.setStatus(StatusDisconnected)
	}))

	return c
}

// SessionID returns the stable session identifier.
func (c *Client) SessionID() string { return c.sessionID }

// UserID returns the logical user identity supplied at creation.
func (c *Client) UserID() string { return c.userID }

// IP returns the remote address the session was created with, when known.
func (c *Client) IP() string { return c.ip }

// Transport returns the session's transport handle.
func (c *Client) Transport() *Transport { return c.transport }

// Status returns the current connection status.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
	c.logger.Debug("session status changed", "session_id", c.sessionID, "status", s)
}

// AddRoom records a room membership back-reference.
func (c *Client) AddRoom(r RoomRef) {
	if r == nil {
		return
	}
	c.mu.Lock()
	c.rooms[r.ID()] = r
	c.mu.Unlock()
}

// RemoveRoom drops a room back-reference. When the last membership is
// removed the session reports itself through the onLeftAllRooms callback,
// which evicts it from the registry.
func (c *Client) RemoveRoom(r RoomRef) {
	if r == nil {
		return
	}
	c.mu.Lock()
	delete(c.rooms, r.ID())
	empty := len(c.rooms) == 0
	cb := c.onLeftAllRooms
	c.mu.Unlock()

	if empty {
		c.logger.Debug("session left all rooms", "session_id", c.sessionID)
		if cb != nil {
			cb(c.sessionID)
		}
	}
}

// InRoom reports whether the session currently belongs to the room.
func (c *Client) InRoom(r RoomRef) bool {
	if r == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[r.ID()]
	return ok
}

// RoomCount returns the number of rooms this session belongs to.
func (c *Client) RoomCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rooms)
}

// LeaveAllRooms evicts the session from every room it belongs to. The last
// eviction removes the session from the registry.
func (c *Client) LeaveAllRooms() {
	c.mu.Lock()
	rooms := make([]RoomRef, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.Unlock()

	c.logger.Debug("session leaving all rooms", "session_id", c.sessionID, "rooms", len(rooms))
	for _, r := range rooms {
		r.Leave(c)
	}
}
