package autodo

import "errors"

// Standard errors.
var (
	// ErrCanceled marks work torn down by Runtime.Stop or by scheduler
	// unwind: terminal coroutine hooks observe it, and pending gate
	// calls fail with it.
	ErrCanceled = errors.New("autodo: canceled")

	// ErrCoroutineExists is returned by Register when the identity is
	// already registered.
	ErrCoroutineExists = errors.New("autodo: coroutine already registered")

	// ErrGateClosed is returned by CallGate.Call after Close.
	ErrGateClosed = errors.New("autodo: call gate closed")

	// ErrGateFull is returned by CallGate.Call when the pending call
	// FIFO is at capacity.
	ErrGateFull = errors.New("autodo: call gate full")

	// ErrNoEngine is returned by front-ends asked to execute a script
	// when no Engine implementation was linked in.
	ErrNoEngine = errors.New("autodo: no script engine linked")
)
