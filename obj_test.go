package pydec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIterRejectsScalarKind(t *testing.T) {
	require.Panics(t, func() { newIter(KindInt, 0) })
}

func TestIncrefBumpsRefcount(t *testing.T) {
	o := newInt(0, 42)
	require.Equal(t, 1, o.Refcnt)
	incref(o)
	require.Equal(t, 2, o.Refcnt)
	require.Nil(t, incref(nil))
}

func TestIsOpaque(t *testing.T) {
	plain := newInt(0, 1)
	require.False(t, plain.IsOpaque())

	what := upgradeToWhat(0, plain)
	require.True(t, what.IsOpaque())
	require.False(t, plain.IsOpaque())
}

func TestHasDepth(t *testing.T) {
	require.True(t, hasDepth(KindList))
	require.True(t, hasDepth(KindWhat))
	require.False(t, hasDepth(KindInt))
	require.False(t, hasDepth(KindStr))
}
