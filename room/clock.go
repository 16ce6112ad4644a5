package room

import "time"

// Clock schedules the room's init and reconnect timers. Tests inject a fake
// implementation to drive timeouts deterministically.
type Clock interface {
	// AfterFunc runs fn in its own goroutine after d elapses and returns a
	// cancelable handle.
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a cancelable scheduled task.
type Timer interface {
	// Stop cancels the timer. It reports whether the call prevented the
	// function from running.
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}

type realTimer struct{ t *time.Timer }

func (rt realTimer) Stop() bool { return rt.t.Stop() }
