// Package serverroom provides a session/room multiplexing layer for persistent
// WebSocket connections.
//
// The library tracks logical client sessions independently of the underlying
// socket, groups sessions into named broadcast channels ("rooms") with
// lifecycle hooks, and implements a reconnection protocol so a client's room
// membership survives transient disconnects.
//
// # Architecture
//
// A client session is addressable by a stable session id and owns exactly one
// transport handle. The handle outlives any single socket: on reconnect a new
// socket is bound to the same handle, and every listener registered by the
// session's rooms keeps working. Rooms own per-client membership records with
// their own state machine (accepted, initialized, grace period, rejoin
// pending) and namespace every event they register with the room id, so one
// socket can multiplex any number of rooms without event collisions.
//
//	registry := session.NewRegistry(logger)
//	lobby := room.New(registry, room.Options{
//		InitTimeout:      10 * time.Second,
//		ReconnectTimeout: 30 * time.Second,
//		Hooks: room.Hooks{
//			CheckAdmission: func(info serverroom.UserInfo) serverroom.JoinResult {
//				if info.UserID == "" {
//					return serverroom.Reject("user id required")
//				}
//				return serverroom.Accept()
//			},
//		},
//	})
//
//	result := lobby.Join(sid, serverroom.UserInfo{UserID: "alice"})
//	if result.Success {
//		// The client connects a socket carrying sid; once it sends the
//		// CLIENT_INITIALIZED handshake it receives broadcasts.
//	}
//
// The ws package accepts inbound connections, resolves the session id from a
// cookie or query parameter, and binds the socket to the matching session:
//
//	server := ws.New(ws.NewConfig(":8080", registry, ws.DefaultRateLimitConfig(), ws.AllOrigins()))
//	server.Start(ctx)
//
// # Wire format
//
// Every frame is one JSON envelope:
//
//	{"type": "<event>", "data": <payload>}
//
// where type is either a reserved lifecycle event or a room-namespaced
// application event (room id concatenated with the event name). Maximum
// payload is 10MB.
//
// # Reconnection protocol
//
// When a socket drops, every room holding the client receives the shared
// disconnect pseudo-event and starts a grace period of ReconnectTimeout. If a
// new socket is bound in time (the client reconnects with ?reconnect=true),
// the membership enters a rejoin-pending state: it is excluded from
// broadcasts until the client repeats the initialization handshake, giving
// the application a chance to resynchronize state before the client rejoins
// live traffic. A grace period that expires evicts the client from the room
// exactly as an explicit leave.
//
// # Rate limiting
//
// Each socket has independent token-bucket rate limiting:
//
//	// Default: 100 messages/second, burst 200
//	cfg := ws.DefaultRateLimitConfig()
//
//	// Disabled
//	cfg := ws.NoRateLimit()
//
// When the limit is exceeded the socket is closed with close code 1008
// (Policy Violation); the session's rooms observe a normal disconnect and the
// grace period applies.
//
// # Important
//
//   - Raw application event names must not collide with the reserved names
//     listed in this package (connect, reconnect, disconnect,
//     CLIENT_INITIALIZED, EXIT).
//   - The registry must outlive every room constructed with it.
//   - Configure CheckOrigin in production (never use ws.AllOrigins() in
//     production).
package serverroom
