// Package autodo implements the concurrency core of the autodo
// automation runtime: a single-threaded cooperative scheduler over
// user coroutines, driven by a portable reactor.
//
// A Runtime owns the reactor, an identity-indexed set of live
// coroutines, and two intrusive queues partitioning them into busy
// (will be resumed next pass) and wait (blocked on an event). A
// coroutine is a goroutine-backed suspendable task: each resume step
// runs the task until it yields or returns, with the scheduler parked
// in between, so coroutines never run in parallel.
//
// Background OS threads interact with the core only through the
// thread-safe reactor notifiers and the cross-thread CallGate, which
// executes callbacks on the scheduler thread on behalf of blocked
// background threads.
package autodo
