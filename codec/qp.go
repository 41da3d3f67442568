// Package codec implements the streaming byte-level transforms the MIME
// builder and SMTP engine compose on top of: quoted-printable and base64
// content-transfer encoders, the SMTP DATA dot-stuffing stream, newline
// normalisers, and the RFC 2047 / RFC 2231 header encoders.
package codec

import (
	"bufio"
	"io"
	"unicode/utf8"
)

const qpLineLimit = 76

// QPWriter is a streaming quoted-printable encoder (RFC 2045 §6.7) that
// soft-wraps at qpLineLimit columns without ever splitting a "=HH" triplet
// or a multi-byte UTF-8 sequence, and without leaving trailing whitespace
// on a line.
type QPWriter struct {
	w       *bufio.Writer
	col     int
	pending []byte // buffered bytes not yet committed to w (for lookahead)
	err     error
}

// NewQPWriter returns a QPWriter writing encoded output to w.
func NewQPWriter(w io.Writer) *QPWriter {
	return &QPWriter{w: bufio.NewWriter(w)}
}

func (e *QPWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	e.pending = append(e.pending, p...)
	e.drain(false)
	if e.err != nil {
		return 0, e.err
	}
	return len(p), nil
}

// Close flushes any remaining buffered bytes and the underlying writer.
func (e *QPWriter) Close() error {
	if e.err != nil {
		return e.err
	}
	e.drain(true)
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// drain encodes as much of e.pending as is safely decidable. When final is
// true, every remaining byte is encoded (there is no more lookahead coming).
func (e *QPWriter) drain(final bool) {
	for len(e.pending) > 0 {
		// Keep a lookahead window so we never encode a byte that turns out
		// to be the leading byte of a multi-byte UTF-8 sequence we haven't
		// fully received yet.
		if !final && len(e.pending) < utf8.UTFMax {
			return
		}

		b := e.pending[0]
		var tokenLen int
		var token []byte

		switch {
		case b == ' ' || b == '\t':
			// A trailing space/tab must be "="-encoded; only a following
			// CR/LF (or end of stream) makes it trailing, so peek ahead.
			if len(e.pending) < 2 && !final {
				return
			}
			tokenLen = 1
			if len(e.pending) == 1 || e.pending[1] == '\r' || e.pending[1] == '\n' {
				token = []byte{'=', hexDigit(b >> 4), hexDigit(b & 0x0F)}
			} else {
				token = []byte{b}
			}
		case b < utf8.RuneSelf:
			tokenLen = 1
			token = qpEncodeByte(b)
		default:
			r, size := utf8.DecodeRune(e.pending)
			if r == utf8.RuneError && size == 1 && !final {
				// Incomplete sequence; wait for more bytes.
				return
			}
			tokenLen = size
			token = nil
			for i := 0; i < size; i++ {
				token = append(token, qpEncodeByte(e.pending[i])...)
			}
		}

		e.emitToken(token, tokenLen)
		if e.err != nil {
			return
		}
	}
}

// emitToken writes one already-QP-encoded atomic token (a pass-through
// byte, an "=HH" triplet, or the concatenation of triplets for one UTF-8
// rune) and performs the soft line wrap if needed.
func (e *QPWriter) emitToken(token []byte, consumed int) {
	// A bare \n ends the current line unconditionally (trailing whitespace
	// on the line just closed must have already been escaped below).
	if consumed == 1 && e.pending[0] == '\n' {
		e.writeRaw(token)
		e.col = 0
		e.pending = e.pending[consumed:]
		return
	}
	if consumed == 1 && e.pending[0] == '\r' {
		e.writeRaw(token)
		e.pending = e.pending[consumed:]
		return
	}

	// Soft-wrap keeps the whole token (never a half "=HH" or a half UTF-8
	// rune) on one side of the break.
	if e.col+len(token) > qpLineLimit-1 {
		e.writeRaw([]byte("=\r\n"))
		e.col = 0
	}

	e.writeRaw(token)
	e.col += len(token)
	e.pending = e.pending[consumed:]
}

func (e *QPWriter) writeRaw(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

// qpEncodeByte returns the QP representation of a single byte: itself if
// it is tab, LF, CR, or printable ASCII other than '=', else "=HH".
func qpEncodeByte(b byte) []byte {
	if b == '\t' || b == '\n' || b == '\r' || (b >= 0x20 && b <= 0x7E && b != '=') {
		return []byte{b}
	}
	return []byte{'=', hexDigit(b >> 4), hexDigit(b & 0x0F)}
}

func hexDigit(n byte) byte {
	if n < 10 {
		return '0' + n
	}
	return 'A' + (n - 10)
}

// QPEncode is a convenience one-shot encoder for small buffers (headers,
// tests); large bodies should stream through NewQPWriter instead.
func QPEncode(src []byte) []byte {
	var buf writerBuf
	w := NewQPWriter(&buf)
	_, _ = w.Write(src)
	_ = w.Close()
	return buf.b
}

type writerBuf struct{ b []byte }

func (w *writerBuf) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}
