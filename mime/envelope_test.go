package mime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveEnvelope_FromHeadersOnly(t *testing.T) {
	root := NewRoot("text/plain")
	root.SetHeader("From", "Alice <alice@example.com>")
	root.SetHeader("To", "bob@example.com, carol@example.com")
	env := root.DeriveEnvelope()
	assert.Equal(t, "alice@example.com", env.From)
	assert.ElementsMatch(t, []string{"bob@example.com", "carol@example.com"}, env.To)
}

func TestDeriveEnvelope_FallsBackToSenderWhenNoFrom(t *testing.T) {
	root := NewRoot("text/plain")
	root.SetHeader("Sender", "bounce@example.com")
	env := root.DeriveEnvelope()
	assert.Equal(t, "bounce@example.com", env.From)
}

func TestDeriveEnvelope_IncludesBccButDeduplicates(t *testing.T) {
	root := NewRoot("text/plain")
	root.SetHeader("To", "a@example.com")
	root.SetHeader("Cc", "a@example.com")
	root.SetHeader("Bcc", "b@example.com")
	env := root.DeriveEnvelope()
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, env.To)
}

func TestEstimatedSize_GrowsWithContent(t *testing.T) {
	root := NewRoot("text/plain")
	root.SetContent(ContentSpec{Text: "short"})
	small := root.EstimatedSize()

	root2 := NewRoot("text/plain")
	root2.SetContent(ContentSpec{Text: "a much much longer body of text here"})
	big := root2.EstimatedSize()

	assert.Greater(t, big, small)
}
