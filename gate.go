package autodo

import (
	"fmt"
	"sync"

	"github.com/qgymib/autodo/eventloop"
	"github.com/qgymib/autodo/ilist"
)

// defaultGateCapacity bounds a gate's pending-call FIFO unless
// overridden by WithGateCapacity or NewGate.
const defaultGateCapacity = 64

// CallFunc is a callback executed on the scheduler thread on behalf of
// a background thread.
type CallFunc func() (any, error)

// callRecord lives for the duration of one cross-thread call.
type callRecord struct {
	node ilist.Node[*callRecord]

	fn     CallFunc
	result any
	err    error
	sem    *Semaphore
}

// CallGate executes callbacks on the scheduler thread on behalf of
// blocked background threads: a bounded FIFO of pending call records
// behind a mutex, drained by a reactor notifier.
//
// Two calls from the same background thread execute in their enqueue
// order. No ordering is promised across different threads.
type CallGate struct {
	rt       *Runtime
	notifier *eventloop.Async

	mu       sync.Mutex
	queue    ilist.List[*callRecord]
	capacity int
	closed   bool
}

// NewGate creates a call gate. capacity bounds the pending FIFO; zero
// or negative selects the runtime's default. Must be called on the
// scheduler thread.
func (rt *Runtime) NewGate(capacity int) *CallGate {
	if capacity <= 0 {
		capacity = rt.gateCapacity
	}
	g := &CallGate{rt: rt, capacity: capacity}
	g.notifier = rt.loop.NewAsync(g.drain)
	rt.gates = append(rt.gates, g)
	return g
}

// Call enqueues fn, wakes the reactor, and blocks the calling thread
// until the scheduler thread has executed fn. Safe to call from any
// background thread. Returns ErrCanceled when the gate is drained
// before fn ran.
func (g *CallGate) Call(fn CallFunc) (any, error) {
	rec := &callRecord{fn: fn, sem: NewSemaphore(0)}
	rec.node.Value = rec

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrGateClosed
	}
	if g.queue.Size() >= g.capacity {
		g.mu.Unlock()
		return nil, ErrGateFull
	}
	g.queue.PushBack(&rec.node)
	g.mu.Unlock()

	g.notifier.Send()
	rec.sem.Wait()
	return rec.result, rec.err
}

// drain runs on the reactor thread. Notifier activations coalesce, so
// the queue is drained until empty on every activation.
func (g *CallGate) drain() {
	for {
		g.mu.Lock()
		n := g.queue.PopFront()
		g.mu.Unlock()
		if n == nil {
			return
		}

		rec := n.Value
		rec.result, rec.err = g.safeCall(rec.fn)
		rec.sem.Post()
	}
}

func (g *CallGate) safeCall(fn CallFunc) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("autodo: cross-thread call panicked: %v", r)
		}
	}()
	return fn()
}

// CancelAll drains pending records without executing them; each
// blocked caller observes ErrCanceled.
func (g *CallGate) CancelAll() {
	for {
		g.mu.Lock()
		n := g.queue.PopFront()
		g.mu.Unlock()
		if n == nil {
			return
		}

		rec := n.Value
		rec.err = ErrCanceled
		rec.sem.Post()
	}
}

// Close drains pending records, then destroys the notifier. Further
// calls fail with ErrGateClosed. Must be called on the scheduler
// thread.
func (g *CallGate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()

	g.CancelAll()
	g.notifier.Close()
}
