package autodo

import (
	"context"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/qgymib/autodo/eventloop"
	"github.com/qgymib/autodo/ilist"
	"github.com/qgymib/autodo/imap"
)

// Runtime owns the reactor and the coroutine set. Create one with New,
// populate it with Register or Spawn, and drive it with Run on the
// thread that will host every coroutine step.
type Runtime struct {
	loop   *eventloop.Loop
	logger *logiface.Logger[logiface.Event]

	// Schedule state. Confined to the scheduler thread. At every
	// quiescent point, busy length + wait length equals the identity
	// index size.
	all    *imap.Map[*Coroutine]
	busy   ilist.List[*Coroutine]
	wait   ilist.List[*Coroutine]
	passID uint64

	// looping distinguishes normal operation from teardown. Any thread
	// may clear it; the scheduler observes it between resumes and at
	// every reactor wake-up.
	looping  atomic.Bool
	stopNote *eventloop.Async

	gates        []*CallGate
	gateCapacity int

	nextID atomic.Uint64
}

// New creates a runtime.
func New(opts ...Option) (*Runtime, error) {
	cfg, err := resolveRuntimeOptions(opts)
	if err != nil {
		return nil, err
	}

	loop, err := eventloop.New(eventloop.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		loop:         loop,
		logger:       cfg.logger,
		gateCapacity: cfg.gateCapacity,
	}
	rt.all = imap.New(func(a, b *Coroutine) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		default:
			return 0
		}
	})
	rt.looping.Store(true)

	// The wake-up itself is the payload: it gets the scheduler out of
	// the reactor so it can observe the looping flag.
	rt.stopNote = loop.NewAsync(func() {})

	return rt, nil
}

// Loop returns the runtime's reactor.
func (rt *Runtime) Loop() *eventloop.Loop { return rt.loop }

// Hrtime returns the reactor's monotonic clock, in nanoseconds.
func (rt *Runtime) Hrtime() uint64 { return rt.loop.Hrtime() }

// Register creates a coroutine with the given identity in the busy
// queue. If the identity is already registered, ErrCoroutineExists is
// returned and the scheduler is not mutated.
func (rt *Runtime) Register(id uint64, task TaskFunc) (*Coroutine, error) {
	co := &Coroutine{
		id:       id,
		status:   StatusBusy,
		rt:       rt,
		task:     task,
		stamp:    rt.passID,
		resumeCh: make(chan struct{}),
		yieldCh:  make(chan yieldSignal),
	}
	co.qnode.Value = co
	co.tnode.Value = co

	if rt.all.Insert(&co.tnode) != nil {
		return nil, ErrCoroutineExists
	}
	rt.busy.PushBack(&co.qnode)
	return co, nil
}

// Spawn registers a coroutine under a fresh identity.
func (rt *Runtime) Spawn(task TaskFunc) *Coroutine {
	for {
		co, err := rt.Register(rt.nextID.Add(1), task)
		if err == nil {
			return co
		}
	}
}

// Find returns the live coroutine with the given identity, or nil.
func (rt *Runtime) Find(id uint64) *Coroutine {
	n := rt.all.Find(&Coroutine{id: id})
	if n == nil {
		return nil
	}
	return n.Value
}

// Run drives the scheduler until every coroutine has terminated, Stop
// is called, ctx is canceled, or a task fails. It must run on the
// thread that created the runtime; that thread becomes the reactor
// thread.
//
// The first task error is returned after the remaining coroutines have
// been destroyed with the canceled marker. Cancellation itself is not
// an error: Run returns nil.
func (rt *Runtime) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			rt.Stop()
		case <-watchDone:
		}
	}()
	defer close(watchDone)

	var taskErr error
	for rt.looping.Load() {
		if taskErr = rt.onePass(); taskErr != nil {
			break
		}
		if rt.all.Size() == 0 {
			break
		}

		mode := eventloop.ModeOnce
		if rt.busy.Size() != 0 {
			mode = eventloop.ModePoll
		}
		rt.loop.RunOnce(mode)
	}

	rt.teardown()
	return taskErr
}

// Stop requests cooperative cancellation. Safe to call from any
// thread, any number of times.
func (rt *Runtime) Stop() {
	if !rt.looping.CompareAndSwap(true, false) {
		return
	}
	rt.stopNote.Send()
}

// onePass resumes every busy coroutine once, in FIFO order as observed
// at pass start. The iterator's next pointer is captured before each
// step so that coroutines destroyed or moved during the step do not
// invalidate iteration; coroutines that entered the busy queue during
// this pass carry the current pass stamp and are left for the next
// one. The pass ends early once Stop has cleared the looping flag.
func (rt *Runtime) onePass() error {
	rt.passID++

	it := rt.busy.Begin()
	for it != nil {
		if !rt.looping.Load() {
			break
		}
		co := it.Value
		if co.stamp == rt.passID {
			// Woken (or registered) during this pass; everything from
			// here on was appended after pass start.
			break
		}
		it = it.Next()

		sig := co.resume()
		if !sig.done {
			// Yielded. It stays busy unless the task parked itself
			// with SetState(StatusWait).
			continue
		}

		prior := co.status
		co.results = sig.results
		co.err = sig.err
		if sig.err != nil {
			co.status = StatusError
		} else {
			co.status = StatusFinished
		}
		co.fireHooks()
		rt.remove(co, prior)

		if sig.err != nil {
			rt.logger.Err().
				Uint64("coroutine", co.id).
				Err(sig.err).
				Log("autodo: task failed")
			return sig.err
		}
	}
	return nil
}

// remove takes a terminated coroutine out of the scheduler. prior is
// the schedule status it held before termination, naming the queue its
// node is linked on.
func (rt *Runtime) remove(co *Coroutine, prior Status) {
	rt.all.Erase(&co.tnode)
	if prior == StatusWait {
		rt.wait.Erase(&co.qnode)
	} else {
		rt.busy.Erase(&co.qnode)
	}
}

// teardown destroys the surviving coroutines with the canceled marker,
// drains pending cross-thread calls, and closes the reactor. Pending
// gate records are always drained before their notifiers close.
func (rt *Runtime) teardown() {
	it := rt.all.Begin()
	for it != nil {
		co := it.Value
		it = it.Next()
		rt.cancelCoroutine(co)
	}

	for _, g := range rt.gates {
		g.Close()
	}
	rt.stopNote.Close()
	rt.loop.Close()
}

// cancelCoroutine unwinds and destroys one coroutine during teardown.
// Its hooks observe the terminal state with the canceled marker.
func (rt *Runtime) cancelCoroutine(co *Coroutine) {
	if co.started && !co.Terminated() {
		// The task goroutine is parked in Yield; release it and let
		// the cancellation panic unwind it.
		co.canceled = true
		co.resumeCh <- struct{}{}
		<-co.yieldCh
	}

	prior := co.status
	co.status = StatusError
	co.err = ErrCanceled
	co.fireHooks()
	rt.remove(co, prior)
}
