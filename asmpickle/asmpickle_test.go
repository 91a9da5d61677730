package asmpickle

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doyensec/r2pickledec"
)

func TestNextSimpleOpcode(t *testing.T) {
	d := New([]byte("]."))
	op, err := d.Next(0)
	require.NoError(t, err)
	require.Equal(t, byte(']'), op.Code)
	require.Equal(t, "empty_list", op.Mnemonic)
	require.Equal(t, 1, op.Length)
}

func TestNextOutOfRangeIsEOF(t *testing.T) {
	d := New([]byte("."))
	_, err := d.Next(5)
	require.ErrorIs(t, err, io.EOF)
}

func TestNextBinint1(t *testing.T) {
	d := New([]byte("K\x2a."))
	op, err := d.Next(0)
	require.NoError(t, err)
	require.Equal(t, int64(42), op.Imm)
	require.Equal(t, 2, op.Length)
}

func TestNextBinfloatBigEndian(t *testing.T) {
	// 1.5 as an 8-byte big-endian IEEE754 double: 0x3FF8000000000000.
	raw := []byte{'G', 0x3f, 0xf8, 0, 0, 0, 0, 0, 0, '.'}
	d := New(raw)
	op, err := d.Next(0)
	require.NoError(t, err)
	require.InDelta(t, 1.5, op.FImm, 0)
	require.Equal(t, 9, op.Length)
}

func TestNextGlobalTwoLines(t *testing.T) {
	d := New([]byte("cos\npath\n."))
	op, err := d.Next(0)
	require.NoError(t, err)
	require.Equal(t, `global "os path"`, op.Mnemonic)
	require.Equal(t, 9, op.Length)
}

func TestNextUnicodeRawLine(t *testing.T) {
	d := New([]byte("Vhello\n."))
	op, err := d.Next(0)
	require.NoError(t, err)
	require.Equal(t, `unicode "hello"`, op.Mnemonic)
}

func TestReadAtBounds(t *testing.T) {
	d := New([]byte("hello"))
	b, err := d.ReadAt(1, 3)
	require.NoError(t, err)
	require.Equal(t, []byte("ell"), b)

	_, err = d.ReadAt(3, 10)
	require.Error(t, err)
}

func TestCountedBytesLargeThresholdPointsAtBuffer(t *testing.T) {
	payload := make([]byte, pydec.LargeStringThreshold+1)
	for i := range payload {
		payload[i] = 'x'
	}
	buf := append([]byte{'U', byte(len(payload))}, payload...)
	d := New(buf)
	op, err := d.Next(0)
	require.NoError(t, err)
	require.Equal(t, int64(2), op.Ptr)
	require.Equal(t, int64(len(payload)), op.PtrSize)

	raw, err := d.ReadAt(op.Ptr, op.PtrSize)
	require.NoError(t, err)
	require.Equal(t, payload, raw)
}

// FuzzNext feeds arbitrary byte slices through Next, checking that
// decoding never panics. Walking stops at the first error or
// non-positive Length (an unrecognized opcode byte yields Length 0 with a
// nil error), the outcomes pydec.Interpreter treats as end of input or a
// decode failure.
func FuzzNext(f *testing.F) {
	f.Add([]byte("]."))
	f.Add([]byte("}\x94]\x94h\x00a."))
	f.Add([]byte("K\x01K\x02K\x03\x87."))
	f.Add([]byte("c__builtin__\neval\n(V1+1\ntR."))

	f.Fuzz(func(t *testing.T, data []byte) {
		d := New(data)
		var offset int64
		for i := 0; i < 10_000; i++ {
			op, err := d.Next(offset)
			if err != nil || op.Length <= 0 {
				// io.EOF (clean end of input) and a non-positive Length
				// with a nil error (an unrecognized opcode byte, §7's
				// decode-failure signal) are both valid terminal outcomes.
				return
			}
			offset += int64(op.Length)
		}
	})
}
