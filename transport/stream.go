package transport

import (
	"context"
	"fmt"
	"io"
)

// Stream is the stream/buffer sink: by default it hands back
// the serialised message as a lazy io.Reader for a test harness to pull;
// with Buffer set it reads the whole message into memory and returns a
// single byte buffer instead.
type Stream struct {
	Buffer bool
}

func (s *Stream) Send(ctx context.Context, in SendInput) (SendOutput, error) {
	r, err := in.Open()
	if err != nil {
		return SendOutput{}, fmt.Errorf("transport: open message stream: %w", err)
	}
	out := SendOutput{Accepted: append([]string{}, in.Envelope.To...)}
	if !s.Buffer {
		out.Reader = r
		return out, nil
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return SendOutput{}, fmt.Errorf("transport: buffer message stream: %w", err)
	}
	out.Raw = buf
	return out, nil
}
