package mime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMessageID_Shape(t *testing.T) {
	id := NewMessageID("example.com")
	assert.True(t, strings.HasPrefix(id, "<"))
	assert.True(t, strings.HasSuffix(id, "@example.com>"))
}

func TestNewMessageID_Unique(t *testing.T) {
	a := NewMessageID("example.com")
	b := NewMessageID("example.com")
	assert.NotEqual(t, a, b)
}

func TestEnsureMessageID_PreservesExisting(t *testing.T) {
	root := NewRoot("text/plain")
	root.SetHeader("Message-Id", "<fixed@example.com>")
	assert.Equal(t, "<fixed@example.com>", root.EnsureMessageID("example.com"))
}

func TestEnsureMessageID_GeneratesWhenMissing(t *testing.T) {
	root := NewRoot("text/plain")
	id := root.EnsureMessageID("example.com")
	assert.Equal(t, id, root.GetHeader("Message-Id"))
}
