package websocket

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/Git-Ashley/server-room/session"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
	sendBuffer   = 256
)

// RateLimitConfig defines inbound rate limiting for one socket.
type RateLimitConfig struct {
	// MessagesPerSecond defines how many messages a client can send per second
	MessagesPerSecond rate.Limit
	// Burst defines the maximum burst size (token bucket capacity)
	Burst int
	// Enabled determines if rate limiting is active
	Enabled bool
}

// DefaultRateLimitConfig returns the default rate limit configuration.
// Allows 100 messages per second with burst of 200.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MessagesPerSecond: 100,
		Burst:             200,
		Enabled:           true,
	}
}

// NoRateLimit returns a configuration with rate limiting disabled.
func NoRateLimit() *RateLimitConfig {
	return &RateLimitConfig{
		Enabled: false,
	}
}

// socket wraps one accepted gorilla connection behind the session.Socket
// interface: a buffered send queue drained by a write pump with keepalive
// pings, and a per-socket token-bucket limiter checked by the read loop.
type socket struct {
	id         string
	conn       *websocket.Conn
	remoteAddr string
	sendCh     chan []byte
	done       chan struct{}
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

func newSocket(conn *websocket.Conn, remoteAddr string, rateLimitConfig *RateLimitConfig, logger *slog.Logger) *socket {
	var limiter *rate.Limiter
	if rateLimitConfig != nil && rateLimitConfig.Enabled {
		limiter = rate.NewLimiter(rateLimitConfig.MessagesPerSecond, rateLimitConfig.Burst)
	}

	s := &socket{
		id:         uuid.NewString(),
		conn:       conn,
		remoteAddr: remoteAddr,
		sendCh:     make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		limiter:    limiter,
		logger:     logger,
	}

	go s.writePump()

	return s
}

// ID returns the socket's unique id. Distinct from the session id: a session
// binds a fresh socket on every reconnect.
func (s *socket) ID() string { return s.id }

// RemoteAddr returns the peer's network address.
func (s *socket) RemoteAddr() string { return s.remoteAddr }

// Send queues one encoded frame for delivery. It never blocks the caller: a
// full queue drops the frame with a diagnostic, matching the transport's
// at-most-once delivery contract.
func (s *socket) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errSocketClosed
	}
	select {
	case s.sendCh <- frame:
		return nil
	default:
		s.logger.Warn("send queue full, frame dropped", "socket_id", s.id, "remote_addr", s.remoteAddr)
		return errSendQueueFull
	}
}

// State reports the socket's connection state. A server-side socket is open
// from the moment the upgrade completed until it is closed; it is never
// connecting.
func (s *socket) State() session.SocketState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return session.SocketClosed
	}
	return session.SocketOpen
}

// Close shuts the socket down after sending a close frame.
func (s *socket) Close() error {
	return s.closeWithCode(websocket.CloseNormalClosure, "")
}

// Terminate force-closes the socket without a close handshake.
func (s *socket) Terminate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.conn.Close()
}

// closeWithCode closes the connection with a close code and optional reason.
func (s *socket) closeWithCode(code int, reason string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	message := websocket.FormatCloseMessage(code, reason)
	deadline := time.Now().Add(time.Second)
	s.conn.WriteControl(websocket.CloseMessage, message, deadline)
	return s.conn.Close()
}

// allow checks the inbound rate limit. Returns true when the message may be
// processed.
func (s *socket) allow() bool {
	if s.limiter == nil {
		return true
	}
	return s.limiter.Allow()
}

// writePump pumps frames from the send queue to the connection and keeps the
// connection alive with periodic pings.
func (s *socket) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case frame := <-s.sendCh:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}
