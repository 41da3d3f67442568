package codec

import (
	"mime/quotedprintable"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeQP(t *testing.T, encoded []byte) []byte {
	t.Helper()
	r := quotedprintable.NewReader(strings.NewReader(string(encoded)))
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			break
		}
	}
	return out
}

func TestQPEncode_RoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("hello world"),
		[]byte("héllo wörld with non-ascii"),
		[]byte(strings.Repeat("x", 200)),
		[]byte("line with trailing space \nand another\t\n"),
		[]byte("emoji 😀 payload"),
	}
	for _, c := range cases {
		encoded := QPEncode(c)
		decoded := decodeQP(t, encoded)
		assert.Equal(t, c, decoded)
	}
}

func TestQPEncode_LineLengthAndNoTrailingSpace(t *testing.T) {
	encoded := QPEncode([]byte(strings.Repeat("a", 300)))
	for _, line := range strings.Split(string(encoded), "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
		if line != "" {
			assert.False(t, strings.HasSuffix(line, " "), "line %q ends in bare space", line)
		}
	}
}

func TestQPEncode_TrailingSpaceBeforeNewlineIsEscaped(t *testing.T) {
	encoded := QPEncode([]byte("foo \nbar"))
	require.Contains(t, string(encoded), "foo=20")
}

func TestQPEncode_NeverSplitsEscapeTriplet(t *testing.T) {
	encoded := QPEncode([]byte(strings.Repeat("\x01", 40)))
	decoded := decodeQP(t, encoded)
	assert.Equal(t, strings.Repeat("\x01", 40), string(decoded))
}
