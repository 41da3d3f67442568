package codec

import "io"

// DotStuffWriter implements the SMTP DATA transparency procedure
// (RFC 5321 §4.5.2): every line whose first byte is '.' has that dot
// doubled, all line endings are normalised to CRLF, and the stream is
// terminated with CRLF "." CRLF on Close.
type DotStuffWriter struct {
	w         io.Writer
	atLineStt bool // true if the next byte written begins a new line
	lastByte  byte
	hasByte   bool
	err       error
}

// NewDotStuffWriter returns a DotStuffWriter writing the stuffed stream to w.
func NewDotStuffWriter(w io.Writer) *DotStuffWriter {
	return &DotStuffWriter{w: w, atLineStt: true}
}

func (d *DotStuffWriter) Write(p []byte) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	for _, b := range p {
		d.writeByte(b)
		if d.err != nil {
			return 0, d.err
		}
	}
	return len(p), nil
}

func (d *DotStuffWriter) writeByte(b byte) {
	switch b {
	case '\n':
		if d.hasByte && d.lastByte == '\r' {
			// already emitted CR for this CRLF pair below; just emit LF
		} else {
			d.put('\r')
		}
		d.put('\n')
		d.atLineStt = true
		d.hasByte = false
		return
	case '\r':
		d.put('\r')
		d.hasByte = true
		d.lastByte = '\r'
		return
	default:
		if d.atLineStt && b == '.' {
			d.put('.')
		}
		d.put(b)
		d.atLineStt = false
		d.hasByte = true
		d.lastByte = b
	}
}

func (d *DotStuffWriter) put(b byte) {
	if d.err != nil {
		return
	}
	_, d.err = d.w.Write([]byte{b})
}

// Close writes the terminating CRLF "." CRLF, coalescing with a trailing
// newline already present in the stream (i.e. it never emits a blank line
// before the terminator).
func (d *DotStuffWriter) Close() error {
	if d.err != nil {
		return d.err
	}
	if !d.atLineStt {
		d.put('\r')
		d.put('\n')
	}
	d.put('.')
	d.put('\r')
	d.put('\n')
	return d.err
}
