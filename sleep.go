package autodo

import "time"

// Sleep suspends co for at least d. Must be called from co's own task.
//
// This is the canonical wait idiom: create a timer, park the coroutine
// with SetState(StatusWait), yield, and let the timer callback set it
// back to busy. The coroutine is resumed on the first pass after the
// timer fires.
func (rt *Runtime) Sleep(co *Coroutine, d time.Duration) {
	t := rt.loop.NewTimer()
	t.Start(d, 0, func() {
		co.SetState(StatusBusy)
		t.Close()
	})

	co.SetState(StatusWait)
	co.Yield()
}
