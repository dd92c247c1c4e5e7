package eventloop

import (
	"container/heap"
	"time"
)

type timerState int32

const (
	timerAlive timerState = iota
	timerClosing
	timerClosed
)

// Timer fires a callback on the loop thread after a timeout, and
// optionally on a repeating period after that. All Timer methods are
// loop-thread confined.
type Timer struct {
	loop   *Loop
	fn     func()
	period int64 // ns, 0 for one-shot
	gen    uint64
	active bool
	state  timerState
}

// NewTimer creates an unarmed timer owned by the loop.
func (l *Loop) NewTimer() *Timer {
	return &Timer{loop: l}
}

// Start arms the timer: fn fires on the loop thread after timeout, and
// then every repeat if repeat is non-zero. Restarting an armed timer
// discards the previous schedule.
//
// A zero timeout fires on the next loop pass.
func (t *Timer) Start(timeout, repeat time.Duration, fn func()) {
	if t.state != timerAlive {
		return
	}
	t.gen++
	t.fn = fn
	t.period = int64(repeat)
	t.active = true

	l := t.loop
	l.seq++
	heap.Push(&l.timers, timerEntry{
		when: l.now() + int64(timeout),
		seq:  l.seq,
		gen:  t.gen,
		t:    t,
	})
}

// Stop disarms the timer. A pending fire is discarded.
func (t *Timer) Stop() {
	t.gen++
	t.active = false
}

// Close destroys the timer. The callback does not fire again; the
// final closed transition runs as a loop work item.
func (t *Timer) Close() {
	if t.state != timerAlive {
		return
	}
	t.Stop()
	t.state = timerClosing
	if t.loop.Submit(func() { t.state = timerClosed }) != nil {
		t.state = timerClosed
	}
}

// timerEntry is one armed schedule in the heap. Stale entries (whose
// generation no longer matches the timer) are skipped on expiry.
type timerEntry struct {
	when int64
	seq  uint64
	gen  uint64
	t    *Timer
}

// timerHeap is a min-heap of timer entries ordered by deadline, with
// the arming sequence as the tie-breaker.
type timerHeap []timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(timerEntry))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
