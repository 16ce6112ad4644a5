// Package websocket accepts inbound WebSocket connections and binds them to
// registered sessions. It owns the HTTP upgrade path, session-id resolution,
// per-socket rate limiting and the read loop feeding each session's
// transport.
package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	serverroom "github.com/Git-Ashley/server-room"
	"github.com/Git-Ashley/server-room/session"
)

const (
	defaultPath          = "/ws"
	defaultSessionCookie = "sid"
	readTimeout          = 60 * time.Second
)

var (
	errSocketClosed  = errors.New("socket is closed")
	errSendQueueFull = errors.New("send queue full")
)

// CheckOriginFn validates the origin of a WebSocket connection request. It
// receives the HTTP request and returns true if the origin is allowed.
type CheckOriginFn = func(r *http.Request) bool

// OnConnectFn is called after a socket has been bound to its session. The
// reconnect flag reports whether the client signalled a reconnect.
type OnConnectFn = func(client *session.Client, reconnect bool)

// OnDisconnectFn is called when an accepted socket's read loop ends. The
// session itself stays registered; its rooms decide the consequences through
// their grace periods.
type OnDisconnectFn = func(client *session.Client)

// ServerConfig configures the acceptance layer.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Path is the upgrade endpoint. Defaults to "/ws".
	Path string

	// SessionCookie is the cookie carrying the session id. Defaults to
	// "sid". A "sid" query parameter is accepted as a fallback.
	SessionCookie string

	// Registry resolves session ids to sessions. Connections for unknown
	// sessions are refused before the upgrade.
	Registry *session.Registry

	// RateLimitConfig limits inbound messages per socket. Nil means
	// DefaultRateLimitConfig().
	RateLimitConfig *RateLimitConfig

	// CheckOrigin validates the connection origin.
	CheckOrigin CheckOriginFn

	// OnConnect and OnDisconnect observe socket lifecycle. Both optional.
	OnConnect    OnConnectFn
	OnDisconnect OnDisconnectFn

	// Metrics receives acceptance-layer counters. Nil disables metrics.
	Metrics *Metrics

	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger
}

// Server implements the serverroom.Server interface.
type Server struct {
	addr          string
	path          string
	sessionCookie string
	registry      *session.Registry
	rateLimit     *RateLimitConfig
	onConnect     OnConnectFn
	onDisconnect  OnDisconnectFn
	metrics       *Metrics
	logger        *slog.Logger

	server   *http.Server
	upgrader websocket.Upgrader

	mu      sync.Mutex
	running bool
	sockets map[*socket]struct{}
}

// New creates a server instance from the configuration. The registry is
// required; everything else has defaults.
func New(cfg *ServerConfig) *Server {
	path := cfg.Path
	if path == "" {
		path = defaultPath
	}
	cookie := cfg.SessionCookie
	if cookie == "" {
		cookie = defaultSessionCookie
	}
	rateLimit := cfg.RateLimitConfig
	if rateLimit == nil {
		rateLimit = DefaultRateLimitConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		addr:          cfg.Addr,
		path:          path,
		sessionCookie: cookie,
		registry:      cfg.Registry,
		rateLimit:     rateLimit,
		onConnect:     cfg.OnConnect,
		onDisconnect:  cfg.OnDisconnect,
		metrics:       cfg.Metrics,
		logger:        logger,
		sockets:       make(map[*socket]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
}

// Start starts the server and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New(serverroom.ErrServerAlreadyRunning)
	}
	s.running = true
	s.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleWebSocket)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Check for immediate startup errors with a small timeout
	select {
	case err := <-errChan:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(stopCtx)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop gracefully stops the server and closes every accepted socket.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	open := make([]*socket, 0, len(s.sockets))
	for sock := range s.sockets {
		open = append(open, sock)
	}
	s.mu.Unlock()

	for _, sock := range open {
		sock.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleWebSocket resolves the session id carried by the request, refuses the
// upgrade when no matching session exists, and binds the accepted socket to
// the session's transport.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sid := s.resolveSessionID(r)
	if sid == "" {
		s.metrics.IncRejected()
		http.Error(w, serverroom.ErrMissingSessionID, http.StatusForbidden)
		return
	}

	client := s.registry.Get(sid)
	if client == nil {
		s.metrics.IncRejected()
		s.logger.Warn("connection refused: unknown session", "session_id", sid, "remote_addr", r.RemoteAddr)
		http.Error(w, serverroom.ErrSessionNotFound, http.StatusForbidden)
		return
	}

	isReconnect := r.URL.Query().Get("reconnect") == "true"

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.metrics.IncRejected()
		s.logger.Warn("upgrade failed", "session_id", sid, "error", err)
		return
	}

	sock := newSocket(conn, r.RemoteAddr, s.rateLimit, s.logger)

	s.mu.Lock()
	s.sockets[sock] = struct{}{}
	s.mu.Unlock()
	s.metrics.IncAccepted()

	s.logger.Info("socket accepted", "session_id", sid, "socket_id", sock.ID(),
		"remote_addr", sock.RemoteAddr(), "reconnect", isReconnect)

	client.Transport().Bind(sock, isReconnect)
	if s.onConnect != nil {
		s.onConnect(client, isReconnect)
	}

	go s.readLoop(client, sock)
}

// resolveSessionID extracts the session id from the configured cookie, or
// from the sid query parameter as a fallback.
func (s *Server) resolveSessionID(r *http.Request) string {
	if cookie, err := r.Cookie(s.sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("sid")
}

// readLoop feeds inbound frames to the session's transport until the socket
// closes. The transport ignores frames and close notifications from a socket
// it no longer owns, so a replaced socket's loop winds down harmlessly.
func (s *Server) readLoop(client *session.Client, sock *socket) {
	defer func() {
		s.mu.Lock()
		delete(s.sockets, sock)
		s.mu.Unlock()
		s.metrics.DecActive()

		sock.Terminate()
		client.Transport().HandleClosed(sock)
		if s.onDisconnect != nil {
			s.onDisconnect(client)
		}
	}()

	sock.conn.SetReadDeadline(time.Now().Add(readTimeout))
	sock.conn.SetPongHandler(func(string) error {
		sock.conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, frame, err := sock.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Debug("unexpected close", "session_id", client.SessionID(), "error", err)
			}
			return
		}

		sock.conn.SetReadDeadline(time.Now().Add(readTimeout))

		if !sock.allow() {
			s.metrics.IncRateLimited()
			s.logger.Warn("rate limit exceeded", "session_id", client.SessionID(), "remote_addr", sock.RemoteAddr())
			sock.closeWithCode(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		s.metrics.IncFrames()
		client.Transport().Dispatch(sock, frame)
	}
}
