package room

import (
	serverroom "github.com/Git-Ashley/server-room"
	"github.com/Git-Ashley/server-room/session"
)

// Hooks are the room's application extension points. Every hook is optional.
//
// The engine performs all mandatory bookkeeping itself (membership maps,
// listeners, timers) and invokes each hook at a fixed point, so hooks never
// have to delegate back to any base behavior.
type Hooks struct {
	// CheckAdmission decides whether a join request is allowed. It is a pure
	// decision: no bookkeeping has happened when it runs, and it must not
	// mutate room state. A nil hook admits everyone.
	//
	// It is not consulted for rejoins: a client reattaching within its grace
	// period was already admitted.
	CheckAdmission func(info serverroom.UserInfo) serverroom.JoinResult

	// OnAccept runs after a client is admitted, its membership created and
	// its bookkeeping listeners registered, but before it is initialized.
	// The client cannot emit yet; register application listeners with
	// Room.AddListener here.
	OnAccept func(c *session.Client, info serverroom.UserInfo)

	// OnLeave runs when a client is about to leave the room, whether by
	// explicit exit, eviction, or timeout. The membership still exists when
	// it runs. This may happen any time after OnAccept, including before
	// OnInit.
	OnLeave func(c *session.Client)

	// OnDisconnect runs when the client's socket drops and the membership
	// enters its grace period.
	OnDisconnect func(c *session.Client)

	// OnReconnect runs when a disconnected client's socket reattaches. The
	// membership stays excluded from broadcasts until the client repeats the
	// initialization handshake; use this hook to resynchronize state.
	OnReconnect func(c *session.Client)

	// OnInit runs when the client completes the initialization handshake,
	// on first join and again after every rejoin. The client now receives
	// the room's broadcasts. Emit initial startup data here if the
	// application needs a server-side ready signal.
	OnInit func(c *session.Client)
}
