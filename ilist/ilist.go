// Package ilist implements an intrusive doubly-linked list.
//
// A Node is embedded in the entity it links, so a single entity can be
// a member of a list and of other intrusive containers at the same
// time, without per-operation allocation. The zero List and the zero
// Node are ready to use once the node's Value is bound.
package ilist

// Node is an intrusive list node. Embed it in the linked entity and
// set Value to the entity itself before first use.
type Node[T any] struct {
	prev, next *Node[T]

	// Value resolves the node back to its containing entity.
	Value T
}

// Next returns the node after n, or nil at the back of the list.
func (n *Node[T]) Next() *Node[T] { return n.next }

// Prev returns the node before n, or nil at the front of the list.
func (n *Node[T]) Prev() *Node[T] { return n.prev }

// List is an intrusive doubly-linked list. The zero value is an empty
// list.
//
// A node must be a member of at most one list at a time; Erase and the
// positional inserts require membership of the receiver list, which is
// the caller's responsibility to uphold.
type List[T any] struct {
	head, tail *Node[T]
	size       int
}

// Init resets l to an empty list. Nodes still linked are abandoned.
func (l *List[T]) Init() {
	l.head = nil
	l.tail = nil
	l.size = 0
}

// Size returns the number of nodes in l.
func (l *List[T]) Size() int { return l.size }

// Begin returns the first node, or nil if l is empty.
func (l *List[T]) Begin() *Node[T] { return l.head }

// End returns the last node, or nil if l is empty.
func (l *List[T]) End() *Node[T] { return l.tail }

// PushFront links n at the front of l.
func (l *List[T]) PushFront(n *Node[T]) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.size++
}

// PushBack links n at the back of l.
func (l *List[T]) PushBack(n *Node[T]) {
	n.next = nil
	n.prev = l.tail
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.size++
}

// InsertBefore links n immediately before pos. pos must be a member of
// l.
func (l *List[T]) InsertBefore(pos, n *Node[T]) {
	if pos.prev == nil {
		l.PushFront(n)
		return
	}
	n.prev = pos.prev
	n.next = pos
	pos.prev.next = n
	pos.prev = n
	l.size++
}

// InsertAfter links n immediately after pos. pos must be a member of
// l.
func (l *List[T]) InsertAfter(pos, n *Node[T]) {
	if pos.next == nil {
		l.PushBack(n)
		return
	}
	n.next = pos.next
	n.prev = pos
	pos.next.prev = n
	pos.next = n
	l.size++
}

// Erase unlinks n from l. n must be a member of l.
func (l *List[T]) Erase(n *Node[T]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	l.size--
}

// PopFront unlinks and returns the first node, or nil if l is empty.
func (l *List[T]) PopFront() *Node[T] {
	n := l.head
	if n != nil {
		l.Erase(n)
	}
	return n
}

// PopBack unlinks and returns the last node, or nil if l is empty.
func (l *List[T]) PopBack() *Node[T] {
	n := l.tail
	if n != nil {
		l.Erase(n)
	}
	return n
}

// Migrate splices the entirety of src onto the end of l in O(1),
// preserving relative order. src is left empty.
func (l *List[T]) Migrate(src *List[T]) {
	if src.head == nil {
		return
	}
	if l.tail == nil {
		l.head = src.head
		l.tail = src.tail
	} else {
		l.tail.next = src.head
		src.head.prev = l.tail
		l.tail = src.tail
	}
	l.size += src.size
	src.Init()
}
