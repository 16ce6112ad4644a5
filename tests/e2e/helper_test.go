package e2e_test

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Helper function to create a WebSocket dialer
func newDialer() *websocket.Dialer {
	return &websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}
}

// Helper function to build the session cookie header
func sessionHeader(sid string) http.Header {
	header := http.Header{}
	header.Set("Cookie", "sid="+sid)
	return header
}
