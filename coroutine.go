package autodo

import (
	"fmt"

	"github.com/qgymib/autodo/ilist"
	"github.com/qgymib/autodo/imap"
)

// Status is a coroutine's schedule status.
type Status int

const (
	// StatusBusy means the coroutine will be resumed on the next
	// scheduler pass.
	StatusBusy Status = iota
	// StatusWait means the coroutine is blocked on some event and will
	// not be scheduled until it is set back to busy.
	StatusWait
	// StatusFinished means the task completed normally. The coroutine
	// is destroyed after its hooks observe this state.
	StatusFinished
	// StatusError means the task failed (or was canceled). The
	// coroutine is destroyed after its hooks observe this state.
	StatusError
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusBusy:
		return "Busy"
	case StatusWait:
		return "Wait"
	case StatusFinished:
		return "Finished"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// TaskFunc is the body of a coroutine. It runs on the scheduler thread
// in cooperative steps: each call to co.Yield suspends it until the
// scheduler resumes it again. Returned values are captured on the
// handle on normal completion.
type TaskFunc func(co *Coroutine) ([]any, error)

// HookFunc observes a coroutine state change.
type HookFunc func(co *Coroutine)

// Hook is a registered schedule hook. It is opaque; pass it back to
// Unhook to remove it.
type Hook struct {
	node ilist.Node[*Hook]
	fn   HookFunc
	co   *Coroutine
}

// yieldSignal is what a coroutine step reports back to the scheduler.
type yieldSignal struct {
	done    bool
	results []any
	err     error
}

// panicCanceled unwinds a parked task goroutine during teardown.
type panicCanceled struct{}

// Coroutine is the handle over one suspendable task. All methods are
// confined to the scheduler thread.
//
// While alive, a coroutine is in exactly one of the scheduler's busy
// or wait queues, matching its status, and appears exactly once in the
// identity index. Status, results and the error remain readable on the
// handle after destruction.
type Coroutine struct {
	qnode ilist.Node[*Coroutine]
	tnode imap.Node[*Coroutine]

	id     uint64
	status Status
	rt     *Runtime
	task   TaskFunc

	hooks      ilist.List[*Hook]
	hookCursor *ilist.Node[*Hook]

	// stamp marks the scheduler pass in which the coroutine last
	// entered the busy queue, so a coroutine woken mid-pass is not
	// resumed until the next pass.
	stamp uint64

	started  bool
	canceled bool
	resumeCh chan struct{}
	yieldCh  chan yieldSignal

	results []any
	err     error
}

// ID returns the coroutine's identity.
func (c *Coroutine) ID() uint64 { return c.id }

// Status returns the coroutine's schedule status.
func (c *Coroutine) Status() Status { return c.status }

// Terminated reports whether the coroutine reached a terminal state.
func (c *Coroutine) Terminated() bool {
	return c.status == StatusFinished || c.status == StatusError
}

// Results returns the values the task returned on normal completion.
func (c *Coroutine) Results() []any { return c.results }

// Err returns the task error, ErrCanceled for torn-down coroutines, or
// nil.
func (c *Coroutine) Err() error { return c.err }

// Hook appends a schedule hook. Hooks fire in registration order on
// every observable state change of the coroutine, including
// termination, and cease firing once the coroutine is destroyed.
//
// A hook must not suspend the coroutine. It may call Unhook on any
// hook, including itself.
func (c *Coroutine) Hook(fn HookFunc) *Hook {
	h := &Hook{fn: fn, co: c}
	h.node.Value = h
	c.hooks.PushBack(&h.node)
	return h
}

// Unhook removes a schedule hook. Removing the currently-firing hook,
// or the next hook due to fire, is legal during hook delivery.
func (c *Coroutine) Unhook(h *Hook) {
	if h == nil || h.co != c {
		return
	}
	if c.hookCursor != nil && c.hookCursor.Value == h {
		c.hookCursor = c.hookCursor.Next()
	}
	c.hooks.Erase(&h.node)
	h.co = nil
}

// SetState moves the coroutine between the scheduler's busy and wait
// queues. Only StatusBusy and StatusWait are accepted. Setting the
// current state is a no-op and fires no hooks.
//
// A plain Yield does not stop a coroutine from being scheduled: it
// will be resumed on the next pass. To block on an event, set the
// state to StatusWait before yielding and arrange for an event
// callback to set it back to StatusBusy.
func (c *Coroutine) SetState(s Status) {
	if s != StatusBusy && s != StatusWait {
		panic(fmt.Sprintf("autodo: SetState(%v): only Busy and Wait are schedule states", s))
	}
	if c.status == s || c.Terminated() {
		return
	}

	rt := c.rt
	if s == StatusBusy {
		c.status = StatusBusy
		c.stamp = rt.passID
		rt.wait.Erase(&c.qnode)
		rt.busy.PushBack(&c.qnode)
	} else {
		c.status = StatusWait
		rt.busy.Erase(&c.qnode)
		rt.wait.PushBack(&c.qnode)
	}
	c.fireHooks()
}

// Yield suspends the task until the scheduler resumes it. Must be
// called from the coroutine's own task.
func (c *Coroutine) Yield() {
	c.yieldCh <- yieldSignal{}
	<-c.resumeCh
	if c.canceled {
		panic(panicCanceled{})
	}
}

// Await blocks the calling coroutine until target reaches a terminal
// state, then returns the target's results and error. Must be called
// from c's own task.
func (c *Coroutine) Await(target *Coroutine) ([]any, error) {
	if target == nil || target == c {
		return nil, fmt.Errorf("autodo: invalid await target")
	}
	if !target.Terminated() {
		target.Hook(func(t *Coroutine) {
			if t.Terminated() {
				c.SetState(StatusBusy)
			}
		})
		for !target.Terminated() {
			c.SetState(StatusWait)
			c.Yield()
		}
	}
	return target.results, target.err
}

// resume runs one step of the task: until the next Yield, or until the
// task returns.
func (c *Coroutine) resume() yieldSignal {
	if !c.started {
		c.started = true
		go c.run()
	} else {
		c.resumeCh <- struct{}{}
	}
	return <-c.yieldCh
}

// run is the task goroutine trampoline.
func (c *Coroutine) run() {
	sig := yieldSignal{done: true}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(panicCanceled); ok {
				sig.err = ErrCanceled
				sig.results = nil
			} else {
				sig.err = fmt.Errorf("autodo: task panicked: %v", r)
				sig.results = nil
			}
		}
		c.yieldCh <- sig
	}()
	sig.results, sig.err = c.task(c)
}

// fireHooks delivers the current state to every hook, in registration
// order. The firing cursor always holds the next hook due, so Unhook
// of that hook advances delivery safely. The cursor is saved around
// the walk to tolerate a hook changing the state again.
func (c *Coroutine) fireHooks() {
	saved := c.hookCursor
	it := c.hooks.Begin()
	for it != nil {
		h := it.Value
		c.hookCursor = it.Next()
		c.callHook(h)
		it = c.hookCursor
	}
	c.hookCursor = saved
}

// callHook invokes one hook. A failing hook is a contract violation;
// the failure is logged and delivery continues with the next hook.
func (c *Coroutine) callHook(h *Hook) {
	defer func() {
		if r := recover(); r != nil {
			c.rt.logger.Err().
				Uint64("coroutine", c.id).
				Any("panic", r).
				Log("autodo: schedule hook panicked")
		}
	}()
	h.fn(c)
}
