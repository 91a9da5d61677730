package pydec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// codecTestCase represents 1 test case of a coder or decoder.
//
// Under the given transformation function in must be transformed to out.
type codecTestCase struct {
	in, out string
}

func testCodec(t *testing.T, transform func(in string) (string, error), testv []codecTestCase) {
	for _, tt := range testv {
		s, err := transform(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		require.Equal(t, tt.out, s, "input %q", tt.in)
	}
}

func TestPyDecodeStringEscape(t *testing.T) {
	testCodec(t, pydecodeStringEscape, []codecTestCase{
		{`hello`, "hello"},
		{"hello\\\nworld", "helloworld"},
		{`\\`, `\`},
		{`\'\"`, `'"`},
		{`\b\f\t\n\r\v\a`, "\b\f\t\n\r\v\a"},
		{`\000\001\376\377`, "\000\001\376\377"},
		{`\x00\x01\x7f\x80\xfe\xff`, "\x00\x01\x7f\x80\xfe\xff"},
		// vvv stays as is
		{`\u1234\U00001234\c`, `\u1234\U00001234\c`},
	})
}

func TestPyQuote(t *testing.T) {
	require.Equal(t, `"hello"`, pyquote("hello"))
	require.Equal(t, `"a\"b"`, pyquote(`a"b`))
	require.Equal(t, `"a\nb"`, pyquote("a\nb"))
}
