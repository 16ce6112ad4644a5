// Package room implements named broadcast domains over shared client
// sessions. Each room owns a per-client lifecycle state machine covering
// join admission, the initialization handshake, the disconnect grace period
// and rejoin, and namespaces every event it registers so any number of rooms
// can multiplex one socket.
package room

import (
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	serverroom "github.com/Git-Ashley/server-room"
	"github.com/Git-Ashley/server-room/internal/protocol"
	"github.com/Git-Ashley/server-room/session"
)

// DefaultInitTimeout is how long a joined client has to complete the
// initialization handshake before being evicted.
const DefaultInitTimeout = 10 * time.Second

// Options configure a room.
type Options struct {
	// ID is the room's unique id, used to namespace every event the room
	// registers or emits. A random id is generated when empty. Distinct live
	// rooms must never share an id.
	ID string

	// InitTimeout bounds the initialization handshake, on first join and on
	// every rejoin. Zero means DefaultInitTimeout.
	InitTimeout time.Duration

	// ReconnectTimeout is the grace period a disconnected client has to
	// reattach before eviction. Zero evicts immediately on disconnect; a
	// negative value disables eviction on disconnect entirely.
	ReconnectTimeout time.Duration

	// Hooks are the application extension points. All optional.
	Hooks Hooks

	// Clock drives the init and reconnect timers. Defaults to the system
	// clock; tests inject a fake.
	Clock Clock

	// Logger receives the room's diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// membership is a room's per-client bookkeeping record, distinct from the
// session itself. It owns the listener handles this room registered on the
// client's transport, so teardown removes exactly what this room added.
//
// watchers holds the room's own lifecycle listeners; listeners holds the
// application's. The split keeps an application listener on a shared name
// (disconnect, EXIT, ...) from displacing the room's bookkeeping.
type membership struct {
	client    *session.Client
	watchers  []*session.Listener
	listeners map[string]*session.Listener

	initialized    bool
	disconnected   bool
	rejoinRequired bool

	initTimer      Timer
	reconnectTimer Timer
}

// Room is a named broadcast domain. All membership mutations are serialized
// by the room's lock; transport events and timer callbacks re-check
// membership existence before acting, so late arrivals after an eviction are
// safe no-ops.
type Room struct {
	id               string
	registry         *session.Registry
	initTimeout      time.Duration
	reconnectTimeout time.Duration
	hooks            Hooks
	clock            Clock
	logger           *slog.Logger

	mu      sync.Mutex
	clients map[string]*membership
}

// New creates a room backed by the given session registry.
func New(registry *session.Registry, opts Options) *Room {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	initTimeout := opts.InitTimeout
	if initTimeout == 0 {
		initTimeout = DefaultInitTimeout
	}
	clock := opts.Clock
	if clock == nil {
		clock = realClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Room{
		id:               id,
		registry:         registry,
		initTimeout:      initTimeout,
		reconnectTimeout: opts.ReconnectTimeout,
		hooks:            opts.Hooks,
		clock:            clock,
		logger:           logger.With("room_id", id),
		clients:          make(map[string]*membership),
	}
}

// ID returns the room's unique id.
func (r *Room) ID() string { return r.id }

// Len returns the number of memberships, grace-period entries included.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// HasClient reports whether the session has an active or grace-period
// membership.
func (r *Room) HasClient(sid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.clients[sid]
	return ok
}

// ClientByID returns the member session for the given id, or nil.
func (r *Room) ClientByID(sid string) *session.Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.clients[sid]; ok {
		return m.client
	}
	return nil
}

// Join admits a session into the room.
//
// A session reattaching within its grace period is not re-admitted: the
// membership enters rejoin-pending, the initialization handshake is re-armed
// and the join succeeds immediately. A session that is already active is
// rejected. Otherwise the admission hook decides; on acceptance the session
// is resolved or created in the registry, the membership is created
// uninitialized and the init timer starts.
func (r *Room) Join(sid string, info serverroom.UserInfo) serverroom.JoinResult {
	if sid == "" {
		return serverroom.Reject(serverroom.ErrMissingSessionID)
	}

	r.mu.Lock()
	if m, ok := r.clients[sid]; ok {
		if m.disconnected || m.rejoinRequired {
			r.markRejoinPending(m)
			r.mu.Unlock()
			r.logger.Info("client rejoining", "session_id", sid)
			return serverroom.JoinResult{Success: true, RoomID: r.id}
		}
		r.mu.Unlock()
		return serverroom.Reject(serverroom.ReasonAlreadyActive)
	}
	r.mu.Unlock()

	result := serverroom.Accept()
	if r.hooks.CheckAdmission != nil {
		result = r.hooks.CheckAdmission(info)
	}
	if !result.Success {
		r.logger.Info("join rejected", "session_id", sid, "reason", result.Reason)
		return result
	}
	result.RoomID = r.id

	c := r.registry.Get(sid)
	if c == nil {
		created, err := r.registry.Create(sid, session.Info{UserID: info.UserID, IP: info.IP})
		if err != nil {
			// Another joiner created the session between lookup and create.
			c = r.registry.Get(sid)
		} else {
			c = created
		}
	}
	if c == nil {
		return serverroom.Reject(serverroom.ErrSessionNotFound)
	}

	r.accept(c, info)
	return result
}

// accept creates the membership, registers the room's bookkeeping listeners
// and arms the init timer. Runs only after admission succeeded.
func (r *Room) accept(c *session.Client, info serverroom.UserInfo) {
	sid := c.SessionID()

	watchers := []*session.Listener{
		session.NewListener(protocol.Namespace(r.id, serverroom.EventClientInitialized), func(json.RawMessage) { r.initClient(c) }),
		session.NewListener(protocol.Namespace(r.id, serverroom.EventExit), func(json.RawMessage) { r.Leave(c) }),
		session.NewListener(serverroom.EventConnect, func(json.RawMessage) { r.handleConnect(c) }),
		session.NewListener(serverroom.EventReconnect, func(json.RawMessage) { r.handleReconnect(c) }),
		session.NewListener(serverroom.EventDisconnect, func(json.RawMessage) { r.handleDisconnect(c) }),
	}

	r.mu.Lock()
	if _, ok := r.clients[sid]; ok {
		r.mu.Unlock()
		return
	}
	m := &membership{
		client:    c,
		watchers:  watchers,
		listeners: make(map[string]*session.Listener),
	}
	r.clients[sid] = m
	m.initTimer = r.clock.AfterFunc(r.initTimeout, func() { r.initTimedOut(c) })
	r.mu.Unlock()

	c.AddRoom(r)

	for _, l := range watchers {
		c.Transport().On(l)
	}

	r.logger.Info("client accepted", "session_id", sid, "user_id", c.UserID())
	if r.hooks.OnAccept != nil {
		r.hooks.OnAccept(c, info)
	}
}

// markRejoinPending re-arms the initialization handshake for a reattaching
// client. Caller holds r.mu.
func (r *Room) markRejoinPending(m *membership) {
	m.rejoinRequired = true
	m.initialized = false
	if m.initTimer != nil {
		m.initTimer.Stop()
	}
	c := m.client
	m.initTimer = r.clock.AfterFunc(r.initTimeout, func() { r.initTimedOut(c) })
}

// initClient completes the initialization handshake: the client becomes (or
// returns to being) a live broadcast target and the init timer is disarmed.
func (r *Room) initClient(c *session.Client) {
	r.mu.Lock()
	m, ok := r.clients[c.SessionID()]
	if !ok {
		r.mu.Unlock()
		return
	}
	m.initialized = true
	m.rejoinRequired = false
	if m.initTimer != nil {
		m.initTimer.Stop()
		m.initTimer = nil
	}
	r.mu.Unlock()

	r.logger.Info("client initialized", "session_id", c.SessionID())
	if r.hooks.OnInit != nil {
		r.hooks.OnInit(c)
	}
}

// handleConnect reacts to a raw socket bind. A bind while the membership is
// disconnected means the client must repeat the initialization handshake
// before rejoining live broadcasts; this also covers repeated drop/reattach
// cycles before a rejoin completes.
func (r *Room) handleConnect(c *session.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.clients[c.SessionID()]
	if !ok {
		return
	}
	if m.disconnected && !m.rejoinRequired {
		m.rejoinRequired = true
		m.initialized = false
	}
}

// handleDisconnect starts the grace period. A negative reconnect timeout
// means the membership is kept indefinitely.
func (r *Room) handleDisconnect(c *session.Client) {
	r.mu.Lock()
	m, ok := r.clients[c.SessionID()]
	if !ok || m.disconnected || m.rejoinRequired {
		r.mu.Unlock()
		return
	}
	m.disconnected = true
	if r.reconnectTimeout >= 0 {
		m.reconnectTimer = r.clock.AfterFunc(r.reconnectTimeout, func() { r.reconnectTimedOut(c) })
	}
	r.mu.Unlock()

	r.logger.Info("client disconnected", "session_id", c.SessionID())
	if r.hooks.OnDisconnect != nil {
		r.hooks.OnDisconnect(c)
	}
}

// handleReconnect ends the grace period. Full rejoin completion is gated
// behind the initialization handshake repeating, exactly as on first join.
func (r *Room) handleReconnect(c *session.Client) {
	r.mu.Lock()
	m, ok := r.clients[c.SessionID()]
	if !ok || !m.disconnected {
		r.mu.Unlock()
		return
	}
	m.disconnected = false
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	if m.rejoinRequired {
		r.markRejoinPending(m)
	}
	r.mu.Unlock()

	r.logger.Info("client reconnected", "session_id", c.SessionID())
	if r.hooks.OnReconnect != nil {
		r.hooks.OnReconnect(c)
	}
}

// initTimedOut evicts a client that never completed the handshake. The
// membership may already be gone or initialized; then this is a no-op.
func (r *Room) initTimedOut(c *session.Client) {
	r.mu.Lock()
	m, ok := r.clients[c.SessionID()]
	if !ok || m.initialized {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.logger.Info("client initialization timed out", "session_id", c.SessionID())
	r.Leave(c)
}

// reconnectTimedOut evicts a client whose grace period expired.
func (r *Room) reconnectTimedOut(c *session.Client) {
	r.mu.Lock()
	m, ok := r.clients[c.SessionID()]
	if !ok || !m.disconnected {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.logger.Info("client reconnect window expired", "session_id", c.SessionID())
	r.Leave(c)
}

// Leave evicts a client from the room. Leaving a client with no membership
// is diagnosed, not fatal. All listeners this room registered on the
// client's transport are removed before the session is told about the room
// removal, so no late event reaches the membership mid-teardown.
func (r *Room) Leave(c *session.Client) {
	if c == nil {
		r.logger.Warn("leave: nil client")
		return
	}

	r.mu.Lock()
	_, ok := r.clients[c.SessionID()]
	r.mu.Unlock()
	if !ok {
		r.logger.Warn("leave: client not in room", "session_id", c.SessionID())
		return
	}

	if r.hooks.OnLeave != nil {
		r.hooks.OnLeave(c)
	}
	r.cleanupClient(c)
}

// cleanupClient tears the membership down: timers stopped, this room's
// listeners deregistered, entry removed, session told to drop the room.
func (r *Room) cleanupClient(c *session.Client) {
	r.mu.Lock()
	m, ok := r.clients[c.SessionID()]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.clients, c.SessionID())
	if m.initTimer != nil {
		m.initTimer.Stop()
	}
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
	}
	listeners := make([]*session.Listener, 0, len(m.watchers)+len(m.listeners))
	listeners = append(listeners, m.watchers...)
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()

	for _, l := range listeners {
		c.Transport().Off(l)
	}
	c.RemoveRoom(r)
	r.logger.Info("client left room", "session_id", c.SessionID())
}

// Broadcast delivers a namespaced event to every membership that is not
// rejoin-pending and not in the exclusion set.
func (r *Room) Broadcast(event string, payload any, exclude ...string) {
	r.mu.Lock()
	targets := make([]*session.Client, 0, len(r.clients))
	for sid, m := range r.clients {
		if m.rejoinRequired || slices.Contains(exclude, sid) {
			continue
		}
		targets = append(targets, m.client)
	}
	r.mu.Unlock()

	name := protocol.Namespace(r.id, event)
	for _, c := range targets {
		c.Transport().Emit(name, payload)
	}
}

// Emit delivers a namespaced event to a single client. A nil client is a
// no-op.
func (r *Room) Emit(c *session.Client, event string, payload any) {
	if c == nil {
		return
	}
	c.Transport().Emit(protocol.Namespace(r.id, event), payload)
}

// AddListener registers an application listener for a member client. The
// event name is room-namespaced, except for the cross-cutting connect,
// reconnect and disconnect signals, which are transport-level and shared by
// every room the client belongs to.
//
// Registering a second application listener for the same name replaces the
// first; the replacement is diagnosed, never silently merged. The room's own
// lifecycle bookkeeping is held separately and is never displaced: an
// application listener on disconnect fires in addition to the room's grace
// period handling, not instead of it.
func (r *Room) AddListener(c *session.Client, event string, fn session.EventHandler) bool {
	if c == nil {
		r.logger.Warn("addListener: nil client", "event", event)
		return false
	}

	name := event
	switch event {
	case serverroom.EventConnect, serverroom.EventReconnect, serverroom.EventDisconnect:
	default:
		name = protocol.Namespace(r.id, event)
	}

	r.mu.Lock()
	m, ok := r.clients[c.SessionID()]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("addListener: client not in room", "session_id", c.SessionID(), "event", event)
		return false
	}
	old := m.listeners[name]
	if old != nil {
		r.logger.Warn("addListener: replacing existing listener", "session_id", c.SessionID(), "event", name)
	}
	l := session.NewListener(name, fn)
	m.listeners[name] = l
	r.mu.Unlock()

	if old != nil {
		c.Transport().Off(old)
	}
	c.Transport().On(l)
	return true
}
