// Package ringbuf implements a fixed-capacity FIFO of variable-length
// byte records with overwrite and discard semantics.
//
// Records live in a single byte arena and are tracked by two cyclic
// chains: a physical chain ordered by arena position and a temporal
// chain ordered by reservation time. Producers obtain a Token with
// Reserve, fill Token.Data, and Commit it; consumers take the oldest
// committed record with Consume and release it with Commit. Under
// pressure a reservation may, when explicitly allowed, reclaim the
// oldest contiguous span of committed records.
//
// All operations are single-threaded on the owning side.
package ringbuf

import "errors"

// Reserve / Commit flags.
const (
	// Overwrite permits Reserve to reclaim the oldest contiguous
	// committed records when the arena is otherwise full.
	Overwrite = 1 << iota

	// Discard rolls a token back: a writing token is dropped as though
	// never reserved, a reading token is returned to committed.
	Discard

	// Abandon forces Discard of a reading token to release the record
	// even when a newer record is currently being read.
	Abandon
)

// ErrBusyReader is returned by Commit(Discard) on a reading token when
// a newer record is being read and Abandon is not set.
var ErrBusyReader = errors.New("ringbuf: newer record is being read")

// ErrTooSmall is returned by New when the capacity cannot hold a
// single empty record.
var ErrTooSmall = errors.New("ringbuf: capacity too small")

// State is the lifecycle state of a record.
type State uint8

const (
	StateWriting State = iota + 1
	StateCommitted
	StateReading
)

// headerCost is the per-record arena charge covering the record
// metadata, mirroring the embedded-header layout the arena arithmetic
// is defined in terms of.
const headerCost = 48

const costAlign = 8

// Cost returns the arena bytes consumed by a record with a payload of
// size bytes.
func Cost(size int) int {
	return (headerCost + size + costAlign - 1) &^ (costAlign - 1)
}

// Token is a handle over one record. It is valid from Reserve or
// Consume until the Commit that releases it.
type Token struct {
	buf  *Buffer
	off  int // arena offset of the record
	size int // payload length

	state State

	posPrev, posNext *Token // physical ring, by arena position
	older, newer     *Token // temporal chain, nil-ended
}

// Size returns the payload length of the record.
func (t *Token) Size() int { return t.size }

// State returns the record's lifecycle state.
func (t *Token) State() State { return t.state }

// Data returns the record's payload bytes, backed by the arena.
func (t *Token) Data() []byte {
	base := t.off + headerCost
	return t.buf.arena[base : base+t.size : base+t.size]
}

func (t *Token) cost() int { return Cost(t.size) }

// Counter reports the number of records per state.
type Counter struct {
	Committed int
	Writing   int
	Reading   int
}

// Buffer is the ring buffer. Use New.
type Buffer struct {
	arena    []byte
	capacity int

	counter Counter

	head    *Token // temporally newest record
	tail    *Token // temporally oldest record
	reserve *Token // oldest record not yet consumed
}

// New creates a ring buffer backed by a fresh arena of capacity bytes.
func New(capacity int) (*Buffer, error) {
	if capacity < Cost(0) {
		return nil, ErrTooSmall
	}
	b := &Buffer{
		arena:    make([]byte, capacity),
		capacity: capacity,
	}
	return b, nil
}

func (b *Buffer) reinit() {
	b.counter = Counter{}
	b.head = nil
	b.tail = nil
	b.reserve = nil
}

// Count returns the per-state record counts and the total.
func (b *Buffer) Count() (Counter, int) {
	c := b.counter
	return c, c.Committed + c.Writing + c.Reading
}

// Begin returns the temporally oldest live record, or nil.
func (b *Buffer) Begin() *Token { return b.tail }

// Next returns the record temporally after t, or nil. Iteration does
// not mutate record state.
func (b *Buffer) Next(t *Token) *Token { return t.newer }

// Reserve allocates a record with a payload of size bytes and returns
// its token in the writing state, or nil when no space can be found.
// With Overwrite set, the oldest contiguous committed records may be
// reclaimed to make room.
func (b *Buffer) Reserve(size int, flags int) *Token {
	cost := Cost(size)
	if b.tail == nil {
		return b.reserveEmpty(size, cost)
	}
	return b.reserveNonEmpty(size, cost, flags)
}

// reserveEmpty creates the sole record of an empty buffer.
func (b *Buffer) reserveEmpty(size, cost int) *Token {
	if cost > b.capacity {
		return nil
	}
	t := &Token{
		buf:   b,
		off:   0,
		size:  size,
		state: StateWriting,
	}
	t.posNext = t
	t.posPrev = t

	b.head = t
	b.tail = t
	b.reserve = t
	b.counter.Writing++
	return t
}

func (b *Buffer) reserveNonEmpty(size, cost, flags int) *Token {
	head := b.head

	// The first position physically after the head record.
	nextPossible := head.off + head.cost()

	if head.posNext.off > head.off {
		// An existing record sits to the right of head; use the gap
		// between them if it is large enough.
		if head.posNext.off-nextPossible >= cost {
			return b.insertAt(nextPossible, size)
		}
		if flags&Overwrite != 0 {
			return b.tryOverwrite(size, cost)
		}
		return nil
	}

	// Head is physically last. Try the space up to the arena end.
	if b.capacity-nextPossible >= cost {
		return b.insertAt(nextPossible, size)
	}

	// Otherwise wrap: the prefix before the physically-first record.
	if head.posNext.off >= cost {
		return b.insertAt(0, size)
	}

	if flags&Overwrite != 0 {
		return b.tryOverwrite(size, cost)
	}
	return nil
}

// insertAt creates a writing record at the given arena offset,
// physically after head, and makes it the temporal head.
func (b *Buffer) insertAt(off, size int) *Token {
	head := b.head
	t := &Token{
		buf:   b,
		off:   off,
		size:  size,
		state: StateWriting,
	}

	t.posNext = head.posNext
	t.posPrev = head
	t.posNext.posPrev = t
	t.posPrev.posNext = t

	b.linkNewest(t)
	b.counter.Writing++

	if b.reserve == nil {
		b.reserve = t
	}
	return t
}

// linkNewest appends t to the temporal chain and moves head to it.
func (b *Buffer) linkNewest(t *Token) {
	t.newer = nil
	t.older = b.head
	if b.head != nil {
		b.head.newer = t
	}
	b.head = t
	if b.tail == nil {
		b.tail = t
	}
}

// tryOverwrite reclaims the oldest contiguous committed span able to
// hold the new record. The walk starts at the reserve record and only
// crosses records that are committed, physically as well as temporally
// contiguous, and on the same side of the arena wrap.
func (b *Buffer) tryOverwrite(size, cost int) *Token {
	r := b.reserve
	if r == nil || r.state != StateCommitted {
		return nil
	}

	// Single record: if the whole arena suffices, start over.
	if r.posNext == r {
		if b.capacity < cost {
			return nil
		}
		b.reinit()
		return b.reserveEmpty(size, cost)
	}

	// Where the reclaimed span begins: directly after the physical
	// predecessor, or at the arena start if the predecessor wrapped.
	backward := r.posPrev
	startOff := 0
	if backward.off < r.off {
		startOff = backward.off + backward.cost()
	}

	sum := 0
	lost := 1
	end := r
	for {
		sum = end.off + end.cost() - startOff
		fwd := end.posNext
		if !(sum < cost &&
			fwd.state == StateCommitted &&
			end.posNext == end.newer &&
			fwd.off > end.off) {
			break
		}
		end = fwd
		lost++
	}

	if sum < cost {
		return nil
	}
	return b.performOverwrite(startOff, r, end, lost, size)
}

func (b *Buffer) performOverwrite(startOff int, start, end *Token, lost, size int) *Token {
	// The span [start, end] is excised; reserve moves past it, and so
	// do tail and head when they fall inside it.
	if b.tail == b.reserve {
		b.tail = end.newer
	}
	b.reserve = end.newer
	if end == b.head {
		b.head = start.older
	}

	t := &Token{
		buf:   b,
		off:   startOff,
		size:  size,
		state: StateWriting,
	}

	// Physical chain. The assignment order matters when the span
	// covers every other record: the aliasing then collapses the ring
	// onto the new record itself.
	t.posNext = end.posNext
	t.posNext.posPrev = t
	t.posPrev = start.posPrev
	t.posPrev.posNext = t

	// Temporal chain: bridge over the span, then append the record.
	if start.older != nil {
		start.older.newer = end.newer
	}
	if end.newer != nil {
		end.newer.older = start.older
	}
	b.linkNewest(t)

	b.counter.Committed -= lost
	b.counter.Writing++

	if b.reserve == nil {
		b.reserve = t
	}
	return t
}

// Consume returns the oldest committed record, transitioning it to
// reading and advancing the reserve pointer, or nil when no committed
// record is available.
func (b *Buffer) Consume() *Token {
	r := b.reserve
	if r == nil || r.state != StateCommitted {
		return nil
	}

	b.counter.Committed--
	b.counter.Reading++

	b.reserve = r.newer
	r.state = StateReading
	return r
}

// Commit releases a token.
//
// A writing token becomes committed, or is dropped entirely when
// Discard is set. A reading token is deleted, or returned to committed
// when Discard is set — which fails with ErrBusyReader if a newer
// record is currently being read, unless Abandon forces the deletion.
func (b *Buffer) Commit(t *Token, flags int) error {
	if t.state == StateWriting {
		b.commitWrite(t, flags)
		return nil
	}
	return b.commitConsume(t, flags)
}

func (b *Buffer) commitWrite(t *Token, flags int) {
	b.counter.Writing--
	if flags&Discard != 0 {
		b.deleteToken(t)
		return
	}
	b.counter.Committed++
	t.state = StateCommitted
}

func (b *Buffer) commitConsume(t *Token, flags int) error {
	if flags&Discard == 0 {
		b.counter.Reading--
		b.deleteToken(t)
		return nil
	}

	// Roll the read back. Only legal while no newer record is being
	// read, unless the caller abandons the record outright.
	if t.newer != nil && t.newer.state == StateReading {
		if flags&Abandon == 0 {
			return ErrBusyReader
		}
		b.counter.Reading--
		b.deleteToken(t)
		return nil
	}

	b.counter.Reading--
	b.counter.Committed++
	t.state = StateCommitted

	// The reserve pointer moves back to cover the record again.
	if t.newer == nil {
		b.reserve = t
		return nil
	}
	if b.reserve != nil && b.reserve.older == t {
		b.reserve = t
	}
	return nil
}

// deleteToken removes a record from both chains and fixes the cursors.
func (b *Buffer) deleteToken(t *Token) {
	if t.posNext == t {
		b.reinit()
		return
	}

	t.posPrev.posNext = t.posNext
	t.posNext.posPrev = t.posPrev
	if t.older != nil {
		t.older.newer = t.newer
	}
	if t.newer != nil {
		t.newer.older = t.older
	}

	if b.reserve == t {
		b.reserve = t.newer
	}
	if t.older == nil {
		b.tail = t.newer
		return
	}
	if t.newer == nil {
		b.head = t.older
	}
}
