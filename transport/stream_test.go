package transport

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailit-dev/gomail/mime"
)

func TestStreamSendReturnsLazyReaderByDefault(t *testing.T) {
	s := &Stream{}
	out, err := s.Send(context.Background(), SendInput{
		Envelope: mime.Envelope{From: "a@example.com", To: []string{"b@example.com"}},
		Open:     func() (io.Reader, error) { return strings.NewReader("raw message"), nil },
	})
	require.NoError(t, err)
	require.NotNil(t, out.Reader)
	assert.Nil(t, out.Raw)

	b, err := io.ReadAll(out.Reader)
	require.NoError(t, err)
	assert.Equal(t, "raw message", string(b))
}

func TestStreamSendBuffersWhenRequested(t *testing.T) {
	s := &Stream{Buffer: true}
	out, err := s.Send(context.Background(), SendInput{
		Envelope: mime.Envelope{From: "a@example.com", To: []string{"b@example.com"}},
		Open:     func() (io.Reader, error) { return strings.NewReader("raw message"), nil },
	})
	require.NoError(t, err)
	assert.Nil(t, out.Reader)
	assert.Equal(t, "raw message", string(out.Raw))
}

func TestStreamSendPropagatesOpenError(t *testing.T) {
	s := &Stream{}
	_, err := s.Send(context.Background(), SendInput{
		Open: func() (io.Reader, error) { return nil, assertErr },
	})
	require.Error(t, err)
}

var assertErr = io.ErrClosedPipe
