// Package imap implements an intrusive ordered map as a red-black
// tree.
//
// Like ilist, the Node is embedded in the keyed entity, so one entity
// can sit in a queue and in the map simultaneously without allocation.
// Ordering is defined by a caller-supplied comparator over the node
// values; the key is whatever part of the value the comparator reads.
package imap

// CmpFunc compares two values. It returns a negative number when a
// orders before b, zero when they are equal, and a positive number
// otherwise.
type CmpFunc[T any] func(a, b T) int

// Node is an intrusive tree node. Embed it in the keyed entity and set
// Value to the entity itself before first use.
type Node[T any] struct {
	left, right, parent *Node[T]
	red                 bool

	// Value resolves the node back to its containing entity.
	Value T
}

// Map is an ordered set of intrusive nodes. Use New, or Init on the
// zero value, before first use.
type Map[T any] struct {
	root *Node[T]
	cmp  CmpFunc[T]
	size int
}

// New returns an empty map ordered by cmp.
func New[T any](cmp CmpFunc[T]) *Map[T] {
	m := &Map[T]{}
	m.Init(cmp)
	return m
}

// Init resets m to an empty map ordered by cmp.
func (m *Map[T]) Init(cmp CmpFunc[T]) {
	m.root = nil
	m.cmp = cmp
	m.size = 0
}

// Size returns the number of nodes in m.
func (m *Map[T]) Size() int { return m.size }

// Insert links n into m. If a node with an equal key already exists,
// that node is returned and m is not modified; otherwise nil is
// returned. n must not currently be a member of any map.
func (m *Map[T]) Insert(n *Node[T]) *Node[T] {
	var parent *Node[T]
	link := &m.root
	for *link != nil {
		parent = *link
		c := m.cmp(n.Value, parent.Value)
		switch {
		case c < 0:
			link = &parent.left
		case c > 0:
			link = &parent.right
		default:
			return parent
		}
	}
	n.parent = parent
	n.left = nil
	n.right = nil
	n.red = true
	*link = n
	m.insertFixup(n)
	m.size++
	return nil
}

// Replace links n into m. If a node with an equal key already exists,
// n takes its exact position in the tree and the old node is returned;
// otherwise n is inserted and nil is returned.
func (m *Map[T]) Replace(n *Node[T]) *Node[T] {
	old := m.Find(n.Value)
	if old == nil {
		m.Insert(n)
		return nil
	}

	// Take over the old node's links and color in place. No rebalance
	// is needed because the key ordering is unchanged.
	n.left = old.left
	n.right = old.right
	n.parent = old.parent
	n.red = old.red
	if n.left != nil {
		n.left.parent = n
	}
	if n.right != nil {
		n.right.parent = n
	}
	if n.parent == nil {
		m.root = n
	} else if n.parent.left == old {
		n.parent.left = n
	} else {
		n.parent.right = n
	}

	old.left = nil
	old.right = nil
	old.parent = nil
	old.red = false
	return old
}

// Find returns the node with a key equal to key's, or nil.
func (m *Map[T]) Find(key T) *Node[T] {
	n := m.root
	for n != nil {
		c := m.cmp(key, n.Value)
		switch {
		case c < 0:
			n = n.left
		case c > 0:
			n = n.right
		default:
			return n
		}
	}
	return nil
}

// FindLower returns the first node whose key is not less than key's,
// or nil.
func (m *Map[T]) FindLower(key T) *Node[T] {
	var candidate *Node[T]
	n := m.root
	for n != nil {
		if m.cmp(key, n.Value) <= 0 {
			candidate = n
			n = n.left
		} else {
			n = n.right
		}
	}
	return candidate
}

// FindUpper returns the first node whose key is greater than key's, or
// nil.
func (m *Map[T]) FindUpper(key T) *Node[T] {
	var candidate *Node[T]
	n := m.root
	for n != nil {
		if m.cmp(key, n.Value) < 0 {
			candidate = n
			n = n.left
		} else {
			n = n.right
		}
	}
	return candidate
}

// Begin returns the node with the smallest key, or nil if m is empty.
func (m *Map[T]) Begin() *Node[T] {
	if m.root == nil {
		return nil
	}
	return minimum(m.root)
}

// End returns the node with the largest key, or nil if m is empty.
func (m *Map[T]) End() *Node[T] {
	n := m.root
	if n == nil {
		return nil
	}
	for n.right != nil {
		n = n.right
	}
	return n
}

// Next returns the in-order successor of n, or nil. Amortized O(1)
// over a full traversal.
func (n *Node[T]) Next() *Node[T] {
	if n.right != nil {
		return minimum(n.right)
	}
	p := n.parent
	for p != nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

// Prev returns the in-order predecessor of n, or nil.
func (n *Node[T]) Prev() *Node[T] {
	if n.left != nil {
		c := n.left
		for c.right != nil {
			c = c.right
		}
		return c
	}
	p := n.parent
	for p != nil && n == p.left {
		n = p
		p = p.parent
	}
	return p
}

// Erase unlinks n from m. n must be a member of m.
func (m *Map[T]) Erase(z *Node[T]) {
	y := z
	yRed := y.red
	var x, xParent *Node[T]

	switch {
	case z.left == nil:
		x = z.right
		xParent = z.parent
		m.transplant(z, z.right)
	case z.right == nil:
		x = z.left
		xParent = z.parent
		m.transplant(z, z.left)
	default:
		y = minimum(z.right)
		yRed = y.red
		x = y.right
		if y.parent == z {
			xParent = y
		} else {
			xParent = y.parent
			m.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		m.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.red = z.red
	}

	if !yRed {
		m.eraseFixup(x, xParent)
	}

	z.left = nil
	z.right = nil
	z.parent = nil
	z.red = false
	m.size--
}

func minimum[T any](n *Node[T]) *Node[T] {
	for n.left != nil {
		n = n.left
	}
	return n
}

func isRed[T any](n *Node[T]) bool { return n != nil && n.red }

// transplant replaces the subtree rooted at u with the subtree rooted
// at v (which may be nil).
func (m *Map[T]) transplant(u, v *Node[T]) {
	switch {
	case u.parent == nil:
		m.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	if v != nil {
		v.parent = u.parent
	}
}

func (m *Map[T]) rotateLeft(x *Node[T]) {
	y := x.right
	x.right = y.left
	if y.left != nil {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		m.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (m *Map[T]) rotateRight(x *Node[T]) {
	y := x.left
	x.left = y.right
	if y.right != nil {
		y.right.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == nil:
		m.root = y
	case x == x.parent.right:
		x.parent.right = y
	default:
		x.parent.left = y
	}
	y.right = x
	x.parent = y
}

func (m *Map[T]) insertFixup(n *Node[T]) {
	for isRed(n.parent) {
		p := n.parent
		g := p.parent
		if p == g.left {
			u := g.right
			if isRed(u) {
				p.red = false
				u.red = false
				g.red = true
				n = g
				continue
			}
			if n == p.right {
				n = p
				m.rotateLeft(n)
				p = n.parent
				g = p.parent
			}
			p.red = false
			g.red = true
			m.rotateRight(g)
		} else {
			u := g.left
			if isRed(u) {
				p.red = false
				u.red = false
				g.red = true
				n = g
				continue
			}
			if n == p.left {
				n = p
				m.rotateRight(n)
				p = n.parent
				g = p.parent
			}
			p.red = false
			g.red = true
			m.rotateLeft(g)
		}
	}
	m.root.red = false
}

// eraseFixup restores red-black balance after removing a black node. x
// may be nil (a nil leaf), so its parent is carried explicitly.
func (m *Map[T]) eraseFixup(x, parent *Node[T]) {
	for x != m.root && !isRed(x) {
		if x == parent.left {
			w := parent.right
			if isRed(w) {
				w.red = false
				parent.red = true
				m.rotateLeft(parent)
				w = parent.right
			}
			if !isRed(w.left) && !isRed(w.right) {
				w.red = true
				x = parent
				parent = x.parent
				continue
			}
			if !isRed(w.right) {
				w.left.red = false
				w.red = true
				m.rotateRight(w)
				w = parent.right
			}
			w.red = parent.red
			parent.red = false
			w.right.red = false
			m.rotateLeft(parent)
			x = m.root
			parent = nil
		} else {
			w := parent.left
			if isRed(w) {
				w.red = false
				parent.red = true
				m.rotateRight(parent)
				w = parent.left
			}
			if !isRed(w.right) && !isRed(w.left) {
				w.red = true
				x = parent
				parent = x.parent
				continue
			}
			if !isRed(w.left) {
				w.right.red = false
				w.red = true
				m.rotateLeft(w)
				w = parent.left
			}
			w.red = parent.red
			parent.red = false
			w.left.red = false
			m.rotateRight(parent)
			x = m.root
			parent = nil
		}
	}
	if x != nil {
		x.red = false
	}
}
