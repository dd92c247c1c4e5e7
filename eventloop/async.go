package eventloop

import "sync/atomic"

const (
	asyncAlive int32 = iota
	asyncClosing
	asyncClosed
)

// Async is a thread-safe wake-up notifier: Send, from any thread,
// causes the loop to invoke the callback on its own thread. Repeated
// sends between two passes coalesce into a single activation.
type Async struct {
	loop    *Loop
	fn      func()
	pending atomic.Uint32
	state   atomic.Int32
}

// NewAsync creates a notifier whose callback fires on the loop thread.
func (l *Loop) NewAsync(fn func()) *Async {
	return &Async{loop: l, fn: fn}
}

// Send activates the notifier. Safe to call from any thread. Sends
// after Close are ignored; callers must stop their producers before
// destroying the notifier.
func (a *Async) Send() {
	if a.state.Load() != asyncAlive {
		return
	}
	if !a.pending.CompareAndSwap(0, 1) {
		// Already queued for the next activation.
		return
	}

	l := a.loop
	l.mu.Lock()
	if l.state.Load() == StateTerminated {
		l.mu.Unlock()
		a.pending.Store(0)
		return
	}
	l.activated = append(l.activated, a)
	l.mu.Unlock()

	l.Wake()
}

// Close destroys the notifier. Must be called on the loop thread,
// after all producers have stopped sending. The callback does not fire
// again; the final closed transition runs as a loop work item.
func (a *Async) Close() {
	if !a.state.CompareAndSwap(asyncAlive, asyncClosing) {
		return
	}
	if a.loop.Submit(func() { a.state.Store(asyncClosed) }) != nil {
		a.state.Store(asyncClosed)
	}
}
