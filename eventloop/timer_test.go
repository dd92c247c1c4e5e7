package eventloop

import (
	"testing"
	"time"
)

// A timer with zero timeout and zero repeat fires exactly once, on the
// next pass.
func TestTimerZeroTimeout(t *testing.T) {
	l := newTestLoop(t)

	fired := 0
	timer := l.NewTimer()
	timer.Start(0, 0, func() { fired++ })

	l.RunOnce(ModePoll)
	if fired != 1 {
		t.Fatalf("expected 1 fire on the next pass, got %d", fired)
	}

	l.RunOnce(ModePoll)
	if fired != 1 {
		t.Fatalf("one-shot timer fired again: %d", fired)
	}
}

func TestTimerDeadline(t *testing.T) {
	l := newTestLoop(t)

	fired := false
	timer := l.NewTimer()
	timer.Start(10*time.Millisecond, 0, func() { fired = true })

	// Not yet due: a poll pass does not fire it.
	l.RunOnce(ModePoll)
	if fired {
		t.Fatal("timer fired before its deadline")
	}

	// A blocking pass sleeps until the deadline.
	start := time.Now()
	l.RunOnce(ModeOnce)
	if !fired {
		t.Fatal("timer did not fire")
	}
	if elapsed := time.Since(start); elapsed < 9*time.Millisecond {
		t.Fatalf("timer fired early: %v", elapsed)
	}
}

func TestTimerRepeat(t *testing.T) {
	l := newTestLoop(t)

	fired := 0
	timer := l.NewTimer()
	timer.Start(0, 2*time.Millisecond, func() { fired++ })

	l.RunOnce(ModePoll) // first fire at timeout
	if fired != 1 {
		t.Fatalf("expected first fire, got %d", fired)
	}

	l.RunOnce(ModeOnce) // refires after the repeat interval
	if fired != 2 {
		t.Fatalf("expected refire, got %d", fired)
	}

	timer.Stop()
	l.RunOnce(ModePoll)
	time.Sleep(5 * time.Millisecond)
	l.RunOnce(ModePoll)
	if fired != 2 {
		t.Fatalf("stopped timer fired again: %d", fired)
	}
}

func TestTimerStopBeforeFire(t *testing.T) {
	l := newTestLoop(t)

	timer := l.NewTimer()
	timer.Start(0, 0, func() { t.Fatal("stopped timer fired") })
	timer.Stop()

	l.RunOnce(ModePoll)
}

func TestTimerRestartSupersedes(t *testing.T) {
	l := newTestLoop(t)

	var got []string
	timer := l.NewTimer()
	timer.Start(0, 0, func() { got = append(got, "first") })
	timer.Start(0, 0, func() { got = append(got, "second") })

	l.RunOnce(ModePoll)
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("restart did not supersede: %v", got)
	}
}

func TestTimerStopFromCallback(t *testing.T) {
	l := newTestLoop(t)

	fired := 0
	timer := l.NewTimer()
	timer.Start(0, time.Millisecond, func() {
		fired++
		timer.Stop()
	})

	l.RunOnce(ModePoll)
	time.Sleep(3 * time.Millisecond)
	l.RunOnce(ModePoll)
	if fired != 1 {
		t.Fatalf("repeat survived Stop from its own callback: %d", fired)
	}
}

func TestTimerClose(t *testing.T) {
	l := newTestLoop(t)

	timer := l.NewTimer()
	timer.Start(0, 0, func() { t.Fatal("closed timer fired") })
	timer.Close()

	if timer.state != timerClosing {
		t.Fatalf("expected closing state, got %d", timer.state)
	}

	// The pass skips the stale schedule and runs the close finalizer.
	l.RunOnce(ModePoll)
	if timer.state != timerClosed {
		t.Fatalf("expected closed state, got %d", timer.state)
	}

	// Start after Close is ignored.
	timer.Start(0, 0, func() { t.Fatal("restarted a closed timer") })
	l.RunOnce(ModePoll)
}
