package mime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURI_Base64(t *testing.T) {
	mt, params, payload, err := ParseDataURI("data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)
	assert.Empty(t, params)
	assert.Equal(t, "hello", string(payload))
}

func TestParseDataURI_PercentEncodedText(t *testing.T) {
	mt, _, payload, err := ParseDataURI("data:text/plain,Hello%20World")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mt)
	assert.Equal(t, "Hello World", string(payload))
}

func TestParseDataURI_DefaultMediaType(t *testing.T) {
	mt, params, payload, err := ParseDataURI("data:,hello")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mt)
	assert.Equal(t, "US-ASCII", params["charset"])
	assert.Equal(t, "hello", string(payload))
}

func TestParseDataURI_WithCharsetParam(t *testing.T) {
	mt, params, _, err := ParseDataURI("data:text/plain;charset=UTF-8;base64,aGk=")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mt)
	assert.Equal(t, "UTF-8", params["charset"])
}

func TestParseDataURI_RejectsNonDataScheme(t *testing.T) {
	_, _, _, err := ParseDataURI("https://example.com/x.png")
	assert.Error(t, err)
}
