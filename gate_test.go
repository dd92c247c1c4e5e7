package autodo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// spawnParked registers a coroutine that waits until teardown, keeping
// the scheduler loop alive for cross-thread traffic.
func spawnParked(rt *Runtime) *Coroutine {
	return rt.Spawn(func(c *Coroutine) ([]any, error) {
		for {
			c.SetState(StatusWait)
			c.Yield()
		}
	})
}

// Calls from one background thread execute on the scheduler thread in
// their enqueue order, and the caller observes the results in the same
// order.
func TestGateCallOrdering(t *testing.T) {
	rt := newTestRuntime(t)
	gate := rt.NewGate(0)
	spawnParked(rt)

	var executed []int // scheduler thread only
	var results []any  // background thread only

	th := NewThread(func() {
		for i := 1; i <= 3; i++ {
			i := i
			v, err := gate.Call(func() (any, error) {
				executed = append(executed, i)
				return i * 10, nil
			})
			if err != nil {
				t.Errorf("Call(%d) failed: %v", i, err)
				break
			}
			results = append(results, v)
		}
		rt.Stop()
	})

	if err := rt.Run(nil); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	th.Join()

	if fmt.Sprint(executed) != "[1 2 3]" {
		t.Fatalf("execution order: %v", executed)
	}
	if fmt.Sprint(results) != "[10 20 30]" {
		t.Fatalf("result order: %v", results)
	}
}

// Per-thread ordering holds with several background threads competing.
func TestGateCallOrderingManyThreads(t *testing.T) {
	rt := newTestRuntime(t)
	gate := rt.NewGate(0)
	spawnParked(rt)

	type call struct{ thread, seq int }
	var executed []call // scheduler thread only

	var eg errgroup.Group
	for tid := 0; tid < 4; tid++ {
		tid := tid
		eg.Go(func() error {
			for seq := 0; seq < 8; seq++ {
				c := call{thread: tid, seq: seq}
				if _, err := gate.Call(func() (any, error) {
					executed = append(executed, c)
					return nil, nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
	}

	th := NewThread(func() {
		if err := eg.Wait(); err != nil {
			t.Errorf("background calls failed: %v", err)
		}
		rt.Stop()
	})

	if err := rt.Run(nil); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	th.Join()

	if len(executed) != 32 {
		t.Fatalf("expected 32 executions, got %d", len(executed))
	}
	next := map[int]int{}
	for _, c := range executed {
		if c.seq != next[c.thread] {
			t.Fatalf("thread %d ran call %d before %d", c.thread, c.seq, next[c.thread])
		}
		next[c.thread]++
	}
}

func TestGateCallError(t *testing.T) {
	rt := newTestRuntime(t)
	gate := rt.NewGate(0)
	spawnParked(rt)

	boom := errors.New("boom")
	th := NewThread(func() {
		defer rt.Stop()
		if _, err := gate.Call(func() (any, error) { return nil, boom }); !errors.Is(err, boom) {
			t.Errorf("Call() = %v, want the callback error", err)
		}
		if _, err := gate.Call(func() (any, error) { panic("in gate") }); err == nil {
			t.Error("Call() swallowed the callback panic")
		}
	})

	if err := rt.Run(nil); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	th.Join()
}

func (g *CallGate) pendingLocked() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queue.Size()
}

func waitPending(t *testing.T, g *CallGate, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for g.pendingLocked() != n {
		if time.Now().After(deadline) {
			t.Fatalf("gate never reached %d pending calls", n)
		}
		time.Sleep(time.Millisecond)
	}
}

// CancelAll releases blocked callers without executing their
// callbacks.
func TestGateCancelAll(t *testing.T) {
	rt := newTestRuntime(t)
	gate := rt.NewGate(0)

	executed := false
	errCh := make(chan error, 1)
	NewThread(func() {
		_, err := gate.Call(func() (any, error) {
			executed = true
			return nil, nil
		})
		errCh <- err
	})

	waitPending(t, gate, 1)
	gate.CancelAll()

	if err := <-errCh; !errors.Is(err, ErrCanceled) {
		t.Fatalf("canceled call returned %v", err)
	}
	if executed {
		t.Fatal("canceled callback executed")
	}
}

// The pending FIFO is bounded; overflow fails fast.
func TestGateCapacity(t *testing.T) {
	rt := newTestRuntime(t)
	gate := rt.NewGate(1)

	errCh := make(chan error, 1)
	NewThread(func() {
		_, err := gate.Call(func() (any, error) { return nil, nil })
		errCh <- err
	})
	waitPending(t, gate, 1)

	if _, err := gate.Call(func() (any, error) { return nil, nil }); !errors.Is(err, ErrGateFull) {
		t.Fatalf("overflow call returned %v", err)
	}

	gate.CancelAll()
	if err := <-errCh; !errors.Is(err, ErrCanceled) {
		t.Fatalf("pending call returned %v", err)
	}
}

// Runtime teardown closes the gate: calls made after Run returns fail
// with ErrGateClosed.
func TestGateClosedOnTeardown(t *testing.T) {
	rt := newTestRuntime(t)
	gate := rt.NewGate(0)

	if err := rt.Run(nil); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if _, err := gate.Call(func() (any, error) { return nil, nil }); !errors.Is(err, ErrGateClosed) {
		t.Fatalf("Call after teardown = %v, want ErrGateClosed", err)
	}
}
