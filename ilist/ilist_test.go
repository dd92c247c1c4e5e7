package ilist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type entry struct {
	node Node[*entry]
	v    int
}

func newEntry(v int) *entry {
	e := &entry{v: v}
	e.node.Value = e
	return e
}

func collect(l *List[*entry]) []int {
	var out []int
	for n := l.Begin(); n != nil; n = n.Next() {
		out = append(out, n.Value.v)
	}
	return out
}

func collectReverse(l *List[*entry]) []int {
	var out []int
	for n := l.End(); n != nil; n = n.Prev() {
		out = append(out, n.Value.v)
	}
	return out
}

func TestPushPop(t *testing.T) {
	var l List[*entry]

	require.Equal(t, 0, l.Size())
	require.Nil(t, l.Begin())
	require.Nil(t, l.End())
	require.Nil(t, l.PopFront())
	require.Nil(t, l.PopBack())

	l.PushBack(&newEntry(2).node)
	l.PushFront(&newEntry(1).node)
	l.PushBack(&newEntry(3).node)

	require.Equal(t, 3, l.Size())
	require.Equal(t, []int{1, 2, 3}, collect(&l))
	require.Equal(t, []int{3, 2, 1}, collectReverse(&l))

	require.Equal(t, 1, l.PopFront().Value.v)
	require.Equal(t, 3, l.PopBack().Value.v)
	require.Equal(t, 2, l.PopFront().Value.v)
	require.Equal(t, 0, l.Size())
	require.Nil(t, l.Begin())
}

func TestInsertAt(t *testing.T) {
	var l List[*entry]

	mid := newEntry(2)
	l.PushBack(&mid.node)
	l.InsertBefore(&mid.node, &newEntry(1).node)
	l.InsertAfter(&mid.node, &newEntry(3).node)

	require.Equal(t, []int{1, 2, 3}, collect(&l))

	// Inserting around interior nodes.
	l.InsertAfter(l.Begin(), &newEntry(10).node)
	l.InsertBefore(l.End(), &newEntry(20).node)
	require.Equal(t, []int{1, 10, 2, 20, 3}, collect(&l))
	require.Equal(t, 5, l.Size())
}

func TestEraseAnywhere(t *testing.T) {
	var l List[*entry]
	es := make([]*entry, 5)
	for i := range es {
		es[i] = newEntry(i)
		l.PushBack(&es[i].node)
	}

	l.Erase(&es[2].node) // middle
	l.Erase(&es[0].node) // head
	l.Erase(&es[4].node) // tail

	require.Equal(t, []int{1, 3}, collect(&l))
	require.Equal(t, 2, l.Size())

	// Erased nodes are fully unlinked and reusable.
	require.Nil(t, es[2].node.Next())
	require.Nil(t, es[2].node.Prev())
	l.PushBack(&es[2].node)
	require.Equal(t, []int{1, 3, 2}, collect(&l))
}

func TestMigrate(t *testing.T) {
	var dst, src List[*entry]
	for i := 0; i < 3; i++ {
		dst.PushBack(&newEntry(i).node)
	}
	for i := 10; i < 13; i++ {
		src.PushBack(&newEntry(i).node)
	}

	dst.Migrate(&src)
	require.Equal(t, []int{0, 1, 2, 10, 11, 12}, collect(&dst))
	require.Equal(t, 6, dst.Size())
	require.Equal(t, 0, src.Size())
	require.Nil(t, src.Begin())

	// Migrating an empty list is a no-op.
	dst.Migrate(&src)
	require.Equal(t, 6, dst.Size())

	// Migrating into an empty list adopts the source wholesale.
	var empty List[*entry]
	empty.Migrate(&dst)
	require.Equal(t, []int{0, 1, 2, 10, 11, 12}, collect(&empty))
	require.Equal(t, 0, dst.Size())
}
