package eventloop

import (
	"container/heap"
	"sync"
	"time"

	"github.com/joeycumines/logiface"
)

// Mode selects the blocking behavior of a single RunOnce pass.
type Mode int

const (
	// ModePoll processes whatever is ready and returns immediately.
	ModePoll Mode = iota
	// ModeOnce blocks until at least one event is processed, then
	// returns.
	ModeOnce
	// ModeForever keeps blocking and processing events until the loop
	// is closed.
	ModeForever
)

// Loop is the reactor. Create one with New and drive it from a single
// goroutine with RunOnce.
//
// The ingress design follows the swap-drain pattern: producers append
// to a slice under a mutex, the loop thread swaps the slice against a
// spare under the same mutex, then executes the batch without holding
// the lock. One lock per batch, zero allocations in steady state.
type Loop struct {
	// Prevent copying.
	_ [0]func()

	// State machine (cache-line padded internally).
	state *FastState

	// Coalescing wake-up channel. Buffer size 1 deduplicates sends.
	wakeCh chan struct{}

	// mu guards work/activated and their spares.
	mu        sync.Mutex
	work      []func()
	workSpare []func()
	activated []*Async
	actSpare  []*Async

	// Timers. Loop-thread confined.
	timers timerHeap
	seq    uint64

	// Timing anchor for the monotonic clock. Set once at creation.
	anchor time.Time

	logger *logiface.Logger[logiface.Event]
}

// New creates a new loop.
func New(opts ...Option) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}
	l := &Loop{
		state:  NewFastState(),
		wakeCh: make(chan struct{}, 1),
		anchor: time.Now(),
		logger: cfg.logger,
	}
	return l, nil
}

// Hrtime returns the current high-resolution monotonic time in
// nanoseconds, relative to an arbitrary point in the past. Safe to
// call from any thread.
func (l *Loop) Hrtime() uint64 {
	return uint64(time.Since(l.anchor))
}

// now is Hrtime as a signed quantity for timer arithmetic.
func (l *Loop) now() int64 {
	return int64(time.Since(l.anchor))
}

// State returns the current loop state.
func (l *Loop) State() LoopState {
	return l.state.Load()
}

// Submit queues fn to run on the loop thread on a subsequent pass.
// Safe to call from any thread.
func (l *Loop) Submit(fn func()) error {
	l.mu.Lock()
	if l.state.Load() == StateTerminated {
		l.mu.Unlock()
		return ErrLoopTerminated
	}
	l.work = append(l.work, fn)
	l.mu.Unlock()

	l.Wake()
	return nil
}

// Wake interrupts a blocking RunOnce pass, or makes the next blocking
// pass return immediately. Multiple wakes coalesce. Safe to call from
// any thread.
func (l *Loop) Wake() {
	if l.state.Load() == StateTerminated {
		return
	}
	select {
	case l.wakeCh <- struct{}{}:
	default:
	}
}

// RunOnce runs a single pass of the loop on the calling goroutine,
// which must be the same goroutine for every call.
//
// Callbacks may schedule further timers and work; anything that became
// ready before the pass returned from blocking runs within the same
// pass.
func (l *Loop) RunOnce(mode Mode) {
	if l.state.IsTerminal() {
		return
	}
	l.state.TryTransition(StateAwake, StateRunning)

	for {
		l.runTimers()
		l.runReady()

		if mode == ModePoll {
			return
		}

		if !l.hasPending() {
			l.block()
		}

		l.runTimers()
		l.runReady()

		if mode == ModeOnce {
			return
		}
		if s := l.state.Load(); s == StateTerminating || s == StateTerminated {
			return
		}
	}
}

// block waits for the next wake-up or timer deadline.
func (l *Loop) block() {
	// A wake that arrived since the last drain counts as the event.
	select {
	case <-l.wakeCh:
		return
	default:
	}

	if !l.state.TryTransition(StateRunning, StateSleeping) {
		return
	}
	defer l.state.TryTransition(StateSleeping, StateRunning)

	d, ok := l.nextTimeout()
	if !ok {
		<-l.wakeCh
		return
	}
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	select {
	case <-l.wakeCh:
		timer.Stop()
	case <-timer.C:
	}
}

// nextTimeout returns the duration until the earliest armed timer.
func (l *Loop) nextTimeout() (time.Duration, bool) {
	if len(l.timers) == 0 {
		return 0, false
	}
	d := time.Duration(l.timers[0].when - l.now())
	if d < 0 {
		d = 0
	}
	return d, true
}

// hasPending reports whether work or notifier activations are queued.
func (l *Loop) hasPending() bool {
	l.mu.Lock()
	pending := len(l.work) > 0 || len(l.activated) > 0
	l.mu.Unlock()
	return pending
}

// runTimers executes all expired timers.
func (l *Loop) runTimers() {
	now := l.now()
	for len(l.timers) > 0 && l.timers[0].when <= now {
		e := heap.Pop(&l.timers).(timerEntry)
		t := e.t
		if e.gen != t.gen || t.state != timerAlive || !t.active {
			// Stopped, restarted or closing since it was armed.
			continue
		}
		if t.period > 0 {
			l.seq++
			heap.Push(&l.timers, timerEntry{
				when: now + t.period,
				seq:  l.seq,
				gen:  e.gen,
				t:    t,
			})
		} else {
			t.active = false
		}
		l.safeExecute(t.fn)
	}
}

// runReady drains notifier activations and one-shot work in batches.
func (l *Loop) runReady() {
	l.mu.Lock()
	acts := l.activated
	l.activated = l.actSpare
	jobs := l.work
	l.work = l.workSpare
	l.mu.Unlock()

	for i, a := range acts {
		// Reset before invoking, so a Send racing the callback
		// re-activates instead of being coalesced into this firing.
		a.pending.Store(0)
		if a.state.Load() == asyncAlive {
			l.safeExecute(a.fn)
		}
		acts[i] = nil
	}
	l.actSpare = acts[:0]

	for i, fn := range jobs {
		l.safeExecute(fn)
		jobs[i] = nil
	}
	l.workSpare = jobs[:0]
}

// safeExecute executes a callback with panic recovery.
func (l *Loop) safeExecute(fn func()) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			l.logger.Err().Any("panic", r).Log("eventloop: callback panicked")
		}
	}()
	fn()
}

// Close terminates the loop on the loop thread. Queued work is drained
// once (running any pending handle finalizers), after which Submit and
// Wake are rejected and RunOnce becomes a no-op.
func (l *Loop) Close() error {
	for {
		s := l.state.Load()
		if s == StateTerminated {
			return ErrLoopTerminated
		}
		if l.state.TryTransition(s, StateTerminating) {
			break
		}
	}

	l.runReady()
	l.state.Store(StateTerminated)
	return nil
}
