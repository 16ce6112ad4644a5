// Package ws is the public facade over the WebSocket acceptance layer.
package ws

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	serverroom "github.com/Git-Ashley/server-room"
	"github.com/Git-Ashley/server-room/internal/websocket"
	"github.com/Git-Ashley/server-room/session"
)

type RateLimitConfig = websocket.RateLimitConfig
type CheckOriginFn = websocket.CheckOriginFn
type OnConnectFn = websocket.OnConnectFn
type OnDisconnectFn = websocket.OnDisconnectFn
type Metrics = websocket.Metrics
type ServerConfig = *websocket.ServerConfig

// New creates a WebSocket server that accepts inbound connections, resolves
// the session id they carry (cookie first, then the sid query parameter) and
// binds each accepted socket to the matching session in the registry.
// Connections for unknown sessions are refused before the upgrade; a
// reconnect=true query parameter marks the bind as a reconnect.
//
// Example:
//
//	registry := session.NewRegistry(nil)
//	server := ws.New(ws.NewConfig(":8080", registry, ws.DefaultRateLimitConfig(), ws.AllOrigins()))
//	server.Start(ctx)
func New(cfg ServerConfig) serverroom.Server {
	return websocket.New(cfg)
}

// NewConfig builds a ServerConfig with the common options. Fields not covered
// here (Path, SessionCookie, callbacks, Metrics, Logger) can be set on the
// returned value before calling New.
func NewConfig(addr string, registry *session.Registry, rateLimitConfig *RateLimitConfig, checkOrigin CheckOriginFn) ServerConfig {
	return &websocket.ServerConfig{
		Addr:            addr,
		Registry:        registry,
		RateLimitConfig: rateLimitConfig,
		CheckOrigin:     checkOrigin,
	}
}

// NewMetrics registers the acceptance-layer Prometheus collectors with reg
// and returns them for use in a ServerConfig.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return websocket.NewMetrics(reg)
}

// AllOrigins returns a checkOrigin function that allows all origins.
// Development only.
func AllOrigins() CheckOriginFn {
	return func(r *http.Request) bool {
		return true
	}
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return websocket.DefaultRateLimitConfig()
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return websocket.NoRateLimit()
}
