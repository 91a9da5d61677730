package pydec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopTop(t *testing.T) {
	s := newState(0)
	_, err := s.pop()
	require.ErrorIs(t, err, errStackUnderflow)
	_, err = s.top()
	require.ErrorIs(t, err, errStackUnderflow)

	a := newInt(0, 1)
	b := newInt(0, 2)
	s.push(a)
	s.push(b)

	top, err := s.top()
	require.NoError(t, err)
	require.Same(t, b, top)

	popped, err := s.pop()
	require.NoError(t, err)
	require.Same(t, b, popped)

	popped, err = s.pop()
	require.NoError(t, err)
	require.Same(t, a, popped)
}

func TestPopN(t *testing.T) {
	s := newState(0)
	_, err := s.popN(1)
	require.ErrorIs(t, err, errStackUnderflow)

	a, b, c := newInt(0, 1), newInt(0, 2), newInt(0, 3)
	s.push(a)
	s.push(b)
	s.push(c)

	items, err := s.popN(2)
	require.NoError(t, err)
	require.Equal(t, []*Obj{b, c}, items)
	require.Len(t, s.stack, 1)
	require.Same(t, a, s.stack[0])
}

func TestMarkAndCloseMark(t *testing.T) {
	s := newState(0)
	a := newInt(0, 1)
	s.push(a)

	s.mark()
	require.Len(t, s.stack, 0)
	require.Len(t, s.metastack, 1)

	b, c := newInt(0, 2), newInt(0, 3)
	s.push(b)
	s.push(c)

	items, err := s.closeMark()
	require.NoError(t, err)
	require.Equal(t, []*Obj{b, c}, items)
	require.Equal(t, []*Obj{a}, s.stack)
	require.Len(t, s.metastack, 0)

	_, err = s.closeMark()
	require.ErrorIs(t, err, errNoMarker)
}

func TestPopMark(t *testing.T) {
	s := newState(0)
	a := newInt(0, 1)
	s.push(a)
	s.mark()

	b := newInt(0, 2)
	s.push(b)

	require.NoError(t, s.popMark())
	require.Equal(t, []*Obj{a}, s.stack)
	require.Equal(t, []*Obj{b}, s.popstack)
}

func TestMemoPutAssignsIDOnce(t *testing.T) {
	s := newState(0)
	obj := newInt(0, 42)
	require.Equal(t, noMemoID, obj.MemoID)

	s.memoPut(3, obj)
	require.Equal(t, int64(3), obj.MemoID)
	require.Equal(t, 2, obj.Refcnt)
	require.Equal(t, int64(4), s.memoCount)

	// re-memoizing the same object under a different slot must not move
	// MemoID off its first-assigned slot.
	s.memoPut(7, obj)
	require.Equal(t, int64(3), obj.MemoID)
	require.Equal(t, 3, obj.Refcnt)
}

func TestMemoGet(t *testing.T) {
	s := newState(0)
	_, err := s.memoGet(0)
	require.ErrorIs(t, err, errMemoMiss)

	obj := newInt(0, 1)
	s.memoPut(0, obj)
	got, err := s.memoGet(0)
	require.NoError(t, err)
	require.Same(t, obj, got)
	require.Equal(t, 3, obj.Refcnt) // newObj(1) + memoPut(+1) + memoGet(+1)
}

func TestShallowFreeOnlyDecrements(t *testing.T) {
	s := newState(0)
	inner := newInt(0, 1)
	outer := newIter(KindList, 0)
	outer.Items = []*Obj{inner}

	s.memoPut(0, outer)
	require.Equal(t, 2, outer.Refcnt)

	s.shallowFree()
	require.Equal(t, 1, outer.Refcnt)
	require.Len(t, s.memo, 0)
	// shallowFree never touches Items.
	require.Len(t, outer.Items, 1)
	require.Same(t, inner, outer.Items[0])
}

func TestDeepFreeBreaksCycles(t *testing.T) {
	s := newState(0)
	self := newIter(KindList, 0)
	self.Items = []*Obj{self}
	s.push(self)

	require.NotPanics(t, func() { s.deepFree() })
	require.Nil(t, self.Items)
	require.Nil(t, s.stack)
}
