package codec

import "io"

// CRLFWriter converts lone LF and lone CR into CRLF, carrying a one-byte
// lookbehind across Write calls so a CRLF split across two chunks is not
// doubled into CRCRLF.
type CRLFWriter struct {
	w        io.Writer
	lastByte byte
	hasByte  bool
	err      error
}

func NewCRLFWriter(w io.Writer) *CRLFWriter { return &CRLFWriter{w: w} }

func (c *CRLFWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		switch b {
		case '\n':
			if c.hasByte && c.lastByte == '\r' {
				// the preceding CR was already written out as CRLF
				c.lastByte = '\n'
				continue
			}
			c.put('\r')
			c.put('\n')
		case '\r':
			c.put('\r')
			c.put('\n')
			// swallow a following '\n' that would otherwise double up
			c.hasByte = true
			c.lastByte = '\r'
			continue
		default:
			c.put(b)
		}
		c.hasByte = true
		c.lastByte = b
		if c.err != nil {
			return 0, c.err
		}
	}
	if c.err != nil {
		return 0, c.err
	}
	return len(p), nil
}

func (c *CRLFWriter) put(b byte) {
	if c.err != nil {
		return
	}
	_, c.err = c.w.Write([]byte{b})
}

// LFWriter strips CR bytes, leaving bare LF line endings.
type LFWriter struct {
	w   io.Writer
	err error
}

func NewLFWriter(w io.Writer) *LFWriter { return &LFWriter{w: w} }

func (l *LFWriter) Write(p []byte) (int, error) {
	out := make([]byte, 0, len(p))
	for _, b := range p {
		if b != '\r' {
			out = append(out, b)
		}
	}
	if len(out) > 0 {
		if _, err := l.w.Write(out); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// EnsureTrailingNewline buffers the last two bytes seen so that, on Close,
// it can append a CRLF if the stream did not already end in a line break.
// A stream ending in a bare LF counts as terminated and gets nothing
// appended; an empty stream gets a single CRLF.
type EnsureTrailingNewline struct {
	w        io.Writer
	lastTwo  [2]byte
	n        int
	wroteAny bool
}

func NewEnsureTrailingNewline(w io.Writer) *EnsureTrailingNewline {
	return &EnsureTrailingNewline{w: w}
}

func (e *EnsureTrailingNewline) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	e.wroteAny = true
	if len(p) >= 2 {
		e.lastTwo[0], e.lastTwo[1] = p[len(p)-2], p[len(p)-1]
		e.n = 2
	} else {
		e.lastTwo[0] = e.lastTwo[1]
		e.lastTwo[1] = p[0]
		if e.n < 2 {
			e.n++
		}
	}
	return e.w.Write(p)
}

func (e *EnsureTrailingNewline) Close() error {
	if !e.wroteAny {
		_, err := e.w.Write([]byte("\r\n"))
		return err
	}
	if e.n >= 2 && e.lastTwo[0] == '\r' && e.lastTwo[1] == '\n' {
		return nil
	}
	if e.n >= 1 && e.lastTwo[1] == '\n' {
		return nil
	}
	_, err := e.w.Write([]byte("\r\n"))
	return err
}
