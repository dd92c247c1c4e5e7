package eventloop

import "errors"

// Standard errors.
var (
	// ErrLoopTerminated is returned when operations are attempted on a
	// loop that has been closed.
	ErrLoopTerminated = errors.New("eventloop: loop has been terminated")
)
