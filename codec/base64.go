package codec

import (
	"encoding/base64"
	"io"
)

const base64LineLimit = 76

// Base64Writer wraps base64-encoded output at base64LineLimit characters
// with CRLF, the way attachment and non-text bodies are framed on the wire.
// Unwrapped output (used for short header-adjacent values) is available via
// NewBase64Writer(w, false).
type Base64Writer struct {
	enc    io.WriteCloser
	lw     *lineWrapper
	wrap   bool
	direct io.Writer
}

// NewBase64Writer returns a Base64Writer. When wrap is true, output is
// broken into base64LineLimit-character lines separated by CRLF.
func NewBase64Writer(w io.Writer, wrap bool) *Base64Writer {
	if !wrap {
		return &Base64Writer{enc: base64.NewEncoder(base64.StdEncoding, w), wrap: false, direct: w}
	}
	lw := &lineWrapper{writer: w, lineLen: base64LineLimit}
	return &Base64Writer{enc: base64.NewEncoder(base64.StdEncoding, lw), lw: lw, wrap: true}
}

func (b *Base64Writer) Write(p []byte) (int, error) { return b.enc.Write(p) }

// Close flushes the base64 padding and, if wrapping, trails a final CRLF.
func (b *Base64Writer) Close() error {
	if err := b.enc.Close(); err != nil {
		return err
	}
	if b.wrap && b.lw.current > 0 {
		_, err := b.lw.writer.Write([]byte("\r\n"))
		return err
	}
	return nil
}

// lineWrapper inserts a CRLF every lineLen bytes written to the underlying
// writer, without regard to what the bytes mean (base64 alphabet is
// breakable anywhere on a 4-char boundary, which the base64 encoder already
// guarantees by writing in groups).
type lineWrapper struct {
	writer  io.Writer
	lineLen int
	current int
}

func (lw *lineWrapper) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		remaining := lw.lineLen - lw.current
		if remaining <= 0 {
			if _, err := lw.writer.Write([]byte("\r\n")); err != nil {
				return total, err
			}
			lw.current = 0
			remaining = lw.lineLen
		}

		chunk := p
		if len(chunk) > remaining {
			chunk = p[:remaining]
		}

		n, err := lw.writer.Write(chunk)
		total += n
		lw.current += n
		p = p[n:]
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Base64Encode is a convenience one-shot wrapped encoder for small buffers.
func Base64Encode(src []byte) []byte {
	var buf writerBuf
	w := NewBase64Writer(&buf, true)
	_, _ = w.Write(src)
	_ = w.Close()
	return buf.b
}
