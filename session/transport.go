// Package session tracks logical client sessions independently of any single
// socket. A session owns one Transport; the transport survives socket
// replacement, so listeners registered by rooms keep working across
// reconnects.
package session

import (
	"encoding/json"
	"log/slog"
	"sync"

	serverroom "github.com/Git-Ashley/server-room"
	"github.com/Git-Ashley/server-room/internal/protocol"
)

// EventHandler receives the raw payload of one dispatched event.
type EventHandler func(data json.RawMessage)

// Listener binds an EventHandler to an event name. The pointer gives the
// callback an identity, so the owner can later remove exactly the listeners
// it registered.
type Listener struct {
	event string
	fn    EventHandler
}

// NewListener creates a listener handle for the given event name.
func NewListener(event string, fn EventHandler) *Listener {
	return &Listener{event: event, fn: fn}
}

// Event returns the event name this listener is bound to.
func (l *Listener) Event() string {
	return l.event
}

// Transport wraps one underlying socket with a typed publish/subscribe
// surface. At most one socket is bound at a time; binding a new one while the
// previous is open or connecting force-closes the old socket first.
type Transport struct {
	mu        sync.Mutex
	sock      Socket
	listeners map[string]map[*Listener]struct{}
	logger    *slog.Logger
}

// NewTransport creates a transport with no socket bound.
func NewTransport(logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		listeners: make(map[string]map[*Listener]struct{}),
		logger:    logger,
	}
}

// On registers a listener. Registering the same listener twice is diagnosed
// but harmless. An unusually high listener count on one event is flagged as a
// possible leak; the warning never alters behavior.
func (t *Transport) On(l *Listener) {
	if l == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.listeners[l.event]
	if !ok {
		set = make(map[*Listener]struct{})
		t.listeners[l.event] = set
	}
	if _, dup := set[l]; dup {
		t.logger.Warn("listener registered more than once", "event", l.event)
		return
	}
	set[l] = struct{}{}

	if len(set) >= serverroom.MaxListenersPerEvent {
		t.logger.Warn("possible listener leak", "event", l.event, "count", len(set))
	}
}

// Off removes a previously registered listener. Removing a listener that is
// not registered is diagnosed, not fatal.
func (t *Transport) Off(l *Listener) {
	if l == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.listeners[l.event]
	if !ok {
		t.logger.Warn("removed listener was not registered", "event", l.event)
		return
	}
	if _, ok := set[l]; !ok {
		t.logger.Warn("removed listener was not registered", "event", l.event)
		return
	}
	delete(set, l)
	if len(set) == 0 {
		delete(t.listeners, l.event)
	}
}

// Emit serializes an envelope onto the wire. When no socket is bound or the
// socket is not open the frame is dropped with a diagnostic; the disconnect
// pseudo-event is the authoritative signal, not emit failure.
func (t *Transport) Emit(event string, payload any) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		t.logger.Warn("emit: encode failed", "event", event, "error", err)
		return
	}

	t.mu.Lock()
	sock := t.sock
	t.mu.Unlock()

	if sock == nil {
		t.logger.Debug("emit to unbound socket dropped", "event", event)
		return
	}
	if sock.State() != SocketOpen {
		t.logger.Debug("emit to non-open socket dropped", "event", event, "state", sock.State())
		return
	}
	if err := sock.Send(frame); err != nil {
		t.logger.Debug("emit: send failed", "event", event, "error", err)
	}
}

// Bind installs a socket, force-closing any previous socket that is still
// open or connecting, and fires the connect pseudo-event to registered
// listeners, followed by reconnect when isReconnect is set. Bind is the
// single re-entry point for both the first connection and every later
// reconnection.
//
// The replaced socket is terminated without firing disconnect: close
// notifications from a socket that is no longer bound are ignored.
func (t *Transport) Bind(sock Socket, isReconnect bool) {
	t.mu.Lock()
	if old := t.sock; old != nil && old != sock && old.State() != SocketClosed {
		old.Terminate()
	}
	t.sock = sock
	t.mu.Unlock()

	t.logger.Debug("socket bound", "reconnect", isReconnect)
	t.fire(serverroom.EventConnect, nil)
	if isReconnect {
		t.fire(serverroom.EventReconnect, nil)
	}
}

// Terminate force-closes and clears the bound socket without emitting any
// further events. Used when forcibly evicting a session.
func (t *Transport) Terminate() {
	t.mu.Lock()
	sock := t.sock
	t.sock = nil
	t.mu.Unlock()

	if sock != nil {
		sock.Terminate()
	}
}

// Dispatch routes one inbound frame from src to every listener registered for
// its event type. Frames from a socket that is no longer bound are ignored;
// an unroutable type is logged, not fatal.
func (t *Transport) Dispatch(src Socket, frame []byte) {
	t.mu.Lock()
	current := t.sock == src
	t.mu.Unlock()
	if !current {
		t.logger.Debug("frame from stale socket ignored")
		return
	}

	event, data, err := protocol.Decode(frame)
	if err != nil {
		t.logger.Warn("invalid frame dropped", "error", err)
		return
	}
	if !t.fire(event, data) {
		t.logger.Debug("no listeners for event", "event", event)
	}
}

// HandleClosed reports that src closed. The disconnect pseudo-event fires
// only when src is still the bound socket, so a socket replaced by Bind never
// signals a disconnect for the session.
func (t *Transport) HandleClosed(src Socket) {
	t.mu.Lock()
	if t.sock != src {
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.fire(serverroom.EventDisconnect, nil)
}

// Connected reports whether a socket is bound and open.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sock != nil && t.sock.State() == SocketOpen
}

// fire invokes every listener registered for event. The listener set is
// snapshotted under the lock and invoked outside it, so handlers may register
// or remove listeners freely. Returns false when nothing was registered.
func (t *Transport) fire(event string, data json.RawMessage) bool {
	t.mu.Lock()
	set := t.listeners[event]
	handlers := make([]*Listener, 0, len(set))
	for l := range set {
		handlers = append(handlers, l)
	}
	t.mu.Unlock()

	for _, l := range handlers {
		l.fn(data)
	}
	return len(handlers) > 0
}
