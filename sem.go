package autodo

import "sync"

// Semaphore is a counting semaphore. Wait and Post are safe to call
// from any thread.
type Semaphore struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count uint
}

// NewSemaphore creates a semaphore with the given initial value.
func NewSemaphore(value uint) *Semaphore {
	s := &Semaphore{count: value}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Wait blocks until the semaphore value is positive, then decrements
// it.
func (s *Semaphore) Wait() {
	s.mu.Lock()
	for s.count == 0 {
		s.cond.Wait()
	}
	s.count--
	s.mu.Unlock()
}

// Post increments the semaphore value, releasing one waiter.
func (s *Semaphore) Post() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	s.cond.Signal()
}
