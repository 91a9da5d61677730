package pydec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScalarValue(t *testing.T) {
	cases := []struct {
		name string
		obj  *Obj
		want interface{}
		ok   bool
	}{
		{"none", newNone(0), nil, true},
		{"bool", newBool(0, true), true, true},
		{"int", newInt(0, 7), int64(7), true},
		{"float", newFloat(0, 1.5), 1.5, true},
		{"str", newStr(0, []byte("hi")), "hi", true},
		{"tuple is not scalar", newIter(KindTuple, 0), nil, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := c.obj.ScalarValue()
			require.Equal(t, c.ok, ok)
			if ok {
				require.Equal(t, c.want, got)
			}
		})
	}
}

func TestAsInt64(t *testing.T) {
	v, ok := newInt(0, 5).AsInt64()
	require.True(t, ok)
	require.Equal(t, int64(5), v)

	v, ok = newBool(0, true).AsInt64()
	require.True(t, ok)
	require.Equal(t, int64(1), v)

	v, ok = newBool(0, false).AsInt64()
	require.True(t, ok)
	require.Equal(t, int64(0), v)

	_, ok = newStr(0, []byte("x")).AsInt64()
	require.False(t, ok)
}

func TestAsBytes(t *testing.T) {
	b, ok := newStr(0, []byte("payload")).AsBytes()
	require.True(t, ok)
	require.Equal(t, []byte("payload"), b)

	_, ok = newInt(0, 1).AsBytes()
	require.False(t, ok)
}

func TestMemoKey(t *testing.T) {
	require.Equal(t, "0", memoKey(0))
	require.Equal(t, "42", memoKey(42))
}
