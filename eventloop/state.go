package eventloop

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// LoopState represents the current state of the event loop.
//
// State transition rules:
//   - Use TryTransition (CAS) for the reversible states (Running,
//     Sleeping).
//   - Use Store only for the irreversible Terminated state.
type LoopState uint64

const (
	// StateAwake indicates the loop has been created but no pass has
	// run yet.
	StateAwake LoopState = iota
	// StateTerminated indicates the loop has been closed for good.
	StateTerminated
	// StateSleeping indicates the loop is blocked waiting for events.
	StateSleeping
	// StateRunning indicates the loop is actively processing a pass.
	StateRunning
	// StateTerminating indicates close has been requested but the
	// final drain has not completed.
	StateTerminating
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// FastState is a lock-free state machine. Cache-line padding prevents
// false sharing with neighboring fields, as the state word is read on
// every cross-thread submit.
type FastState struct {
	_ cpu.CacheLinePad
	v atomic.Uint64
	_ cpu.CacheLinePad
}

// NewFastState creates a new state machine in the Awake state.
func NewFastState() *FastState {
	s := &FastState{}
	s.v.Store(uint64(StateAwake))
	return s
}

// Load returns the current state atomically.
func (s *FastState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store atomically stores a new state without transition validation.
func (s *FastState) Store(state LoopState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to
// another, reporting whether it succeeded.
func (s *FastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsTerminal returns true once the loop has fully terminated.
func (s *FastState) IsTerminal() bool {
	return s.Load() == StateTerminated
}
