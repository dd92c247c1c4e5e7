// Package eventloop provides a portable single-threaded reactor: timers
// backed by a min-heap, thread-safe coalescing wake-up notifiers, and
// one-shot work items, all delivered on the thread that drives the
// loop.
//
// The loop does not own a goroutine. The embedder calls RunOnce from a
// single goroutine — the "loop thread" — choosing per call whether to
// poll or to block until the next event. Everything except Submit,
// Wake, Hrtime and Async.Send is confined to that thread.
//
// # Wake-up coalescing
//
// Any number of Wake or Async.Send calls between two passes may be
// delivered as a single activation. Consumers that pair a notifier
// with a queue must drain the queue until empty on every activation
// and never count on one activation per send.
//
// # Handle destruction
//
// Timer and Async handles are destroyed asynchronously: Close marks
// the handle closing and the final transition runs as a loop work
// item. After Close returns, the handle's callback will not be invoked
// again.
package eventloop
