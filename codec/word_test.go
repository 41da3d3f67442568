package codec

import (
	"mime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWord_ASCIIUnchanged(t *testing.T) {
	assert.Equal(t, "Hello", EncodeWord("Hello", KindAuto, 0))
}

func TestEncodeWord_QForm(t *testing.T) {
	encoded := EncodeWord("héllo", KindQ, 0)
	assert.True(t, strings.HasPrefix(encoded, "=?UTF-8?Q?"))
	dec, err := (&mime.WordDecoder{}).Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "héllo", dec)
}

func TestEncodeWord_BForm(t *testing.T) {
	encoded := EncodeWord("日本語", KindB, 0)
	assert.True(t, strings.HasPrefix(encoded, "=?UTF-8?B?"))
	dec, err := (&mime.WordDecoder{}).Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "日本語", dec)
}

func TestEncodeWord_SplitsLongValue(t *testing.T) {
	long := strings.Repeat("é", 200)
	encoded := EncodeWord(long, KindQ, 40)
	words := strings.Split(encoded, " ")
	assert.Greater(t, len(words), 1)
	for _, w := range words {
		assert.LessOrEqual(t, len(w), 40)
	}

	var decoded strings.Builder
	dec := &mime.WordDecoder{}
	for _, w := range words {
		d, err := dec.Decode(w)
		require.NoError(t, err)
		decoded.WriteString(d)
	}
	assert.Equal(t, long, decoded.String())
}

func TestEncodeWords_OnlyEncodesNonASCIISpans(t *testing.T) {
	out := EncodeWords("Hello héllo", KindQ, 0)
	assert.True(t, strings.HasPrefix(out, "Hello =?UTF-8?Q?h"))
	assert.Contains(t, out, "=?UTF-8?Q?")
}
