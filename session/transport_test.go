package session

import (
	"encoding/json"
	"sync"
	"testing"

	serverroom "github.com/Git-Ashley/server-room"
)

// fakeSocket records sent frames and supports forced state changes.
type fakeSocket struct {
	mu         sync.Mutex
	state      SocketState
	frames     [][]byte
	terminated bool
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{state: SocketOpen}
}

func (s *fakeSocket) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeSocket) State() SocketState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SocketClosed
	return nil
}

func (s *fakeSocket) Terminate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SocketClosed
	s.terminated = true
}

func (s *fakeSocket) sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *fakeSocket) wasTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminated
}

// TestTransportEmit tests delivery and the closed/unbound no-op contract
func TestTransportEmit(t *testing.T) {
	t.Parallel()

	t.Run("delivers to open socket", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		sock := newFakeSocket()
		tr.Bind(sock, false)

		tr.Emit("Rping", map[string]int{"n": 1})

		frames := sock.sent()
		if len(frames) != 1 {
			t.Fatalf("sent %d frames, want 1", len(frames))
		}
		if got, want := string(frames[0]), `{"type":"Rping","data":{"n":1}}`; got != want {
			t.Errorf("frame = %s, want %s", got, want)
		}
	})

	t.Run("no socket bound is a no-op", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		tr.Emit("ev", "data") // must not panic
	})

	t.Run("closed socket is a no-op", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		sock := newFakeSocket()
		tr.Bind(sock, false)
		sock.Close()

		tr.Emit("ev", "data")
		if n := len(sock.sent()); n != 0 {
			t.Errorf("sent %d frames to closed socket, want 0", n)
		}
	})
}

// TestTransportBind tests socket replacement and the connect/reconnect
// pseudo-events
func TestTransportBind(t *testing.T) {
	t.Parallel()

	t.Run("fires connect", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		var events []string
		tr.On(NewListener(serverroom.EventConnect, func(json.RawMessage) {
			events = append(events, "connect")
		}))
		tr.On(NewListener(serverroom.EventReconnect, func(json.RawMessage) {
			events = append(events, "reconnect")
		}))

		tr.Bind(newFakeSocket(), false)

		if len(events) != 1 || events[0] != "connect" {
			t.Errorf("events = %v, want [connect]", events)
		}
	})

	t.Run("fires connect then reconnect on rebind", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		var events []string
		tr.On(NewListener(serverroom.EventConnect, func(json.RawMessage) {
			events = append(events, "connect")
		}))
		tr.On(NewListener(serverroom.EventReconnect, func(json.RawMessage) {
			events = append(events, "reconnect")
		}))

		tr.Bind(newFakeSocket(), true)

		want := []string{"connect", "reconnect"}
		if len(events) != 2 || events[0] != want[0] || events[1] != want[1] {
			t.Errorf("events = %v, want %v", events, want)
		}
	})

	t.Run("terminates replaced socket without disconnect", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		disconnects := 0
		tr.On(NewListener(serverroom.EventDisconnect, func(json.RawMessage) {
			disconnects++
		}))

		old := newFakeSocket()
		tr.Bind(old, false)

		next := newFakeSocket()
		tr.Bind(next, true)

		if !old.wasTerminated() {
			t.Error("previous socket should be terminated on rebind")
		}

		// The old socket's close notification arrives late and must be
		// ignored; only the current socket signals disconnect.
		tr.HandleClosed(old)
		if disconnects != 0 {
			t.Errorf("disconnects = %d, want 0 after stale close", disconnects)
		}

		tr.HandleClosed(next)
		if disconnects != 1 {
			t.Errorf("disconnects = %d, want 1", disconnects)
		}
	})
}

// TestTransportDispatch tests inbound frame routing
func TestTransportDispatch(t *testing.T) {
	t.Parallel()

	t.Run("routes to every listener of the type", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		sock := newFakeSocket()
		tr.Bind(sock, false)

		var got []string
		tr.On(NewListener("Rping", func(data json.RawMessage) {
			got = append(got, "a:"+string(data))
		}))
		tr.On(NewListener("Rping", func(data json.RawMessage) {
			got = append(got, "b:"+string(data))
		}))
		tr.On(NewListener("Rother", func(json.RawMessage) {
			got = append(got, "other")
		}))

		tr.Dispatch(sock, []byte(`{"type":"Rping","data":{"n":1}}`))

		if len(got) != 2 {
			t.Fatalf("routed to %d listeners, want 2: %v", len(got), got)
		}
		for _, g := range got {
			if g != `a:{"n":1}` && g != `b:{"n":1}` {
				t.Errorf("unexpected delivery %q", g)
			}
		}
	})

	t.Run("ignores frames from a stale socket", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		old := newFakeSocket()
		tr.Bind(old, false)
		tr.Bind(newFakeSocket(), true)

		called := false
		tr.On(NewListener("ev", func(json.RawMessage) { called = true }))

		tr.Dispatch(old, []byte(`{"type":"ev"}`))
		if called {
			t.Error("frame from stale socket must not be dispatched")
		}
	})

	t.Run("invalid frame is dropped", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		sock := newFakeSocket()
		tr.Bind(sock, false)
		tr.Dispatch(sock, []byte("not json")) // must not panic
	})
}

// TestTransportOnOff tests listener bookkeeping
func TestTransportOnOff(t *testing.T) {
	t.Parallel()

	t.Run("off removes exactly the given listener", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		sock := newFakeSocket()
		tr.Bind(sock, false)

		var got []string
		keep := NewListener("ev", func(json.RawMessage) { got = append(got, "keep") })
		drop := NewListener("ev", func(json.RawMessage) { got = append(got, "drop") })
		tr.On(keep)
		tr.On(drop)
		tr.Off(drop)

		tr.Dispatch(sock, []byte(`{"type":"ev"}`))

		if len(got) != 1 || got[0] != "keep" {
			t.Errorf("deliveries = %v, want [keep]", got)
		}
	})

	t.Run("duplicate on and unknown off are non-fatal", func(t *testing.T) {
		t.Parallel()

		tr := NewTransport(nil)
		l := NewListener("ev", func(json.RawMessage) {})
		tr.On(l)
		tr.On(l) // diagnosed, not fatal
		tr.Off(l)
		tr.Off(l) // diagnosed, not fatal
	})
}

// TestTransportTerminate tests that terminate clears the socket silently
func TestTransportTerminate(t *testing.T) {
	t.Parallel()

	tr := NewTransport(nil)
	disconnects := 0
	tr.On(NewListener(serverroom.EventDisconnect, func(json.RawMessage) {
		disconnects++
	}))

	sock := newFakeSocket()
	tr.Bind(sock, false)
	tr.Terminate()

	if !sock.wasTerminated() {
		t.Error("socket should be terminated")
	}
	if disconnects != 0 {
		t.Errorf("disconnects = %d, want 0 (terminate emits no events)", disconnects)
	}
	if tr.Connected() {
		t.Error("transport should not report connected after terminate")
	}
}
