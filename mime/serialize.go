package mime

import (
	"fmt"
	"io"
	"strings"

	"github.com/mailit-dev/gomail/codec"
)

// SerializeOptions controls the final serialisation pass.
type SerializeOptions struct {
	// Newline selects the line-ending normalisation applied to the whole
	// output: "win" (default) normalises to CRLF, "unix" strips CR so
	// only LF remains, and "raw" passes bytes through unchanged.
	Newline string

	// KeepBcc includes the root's Bcc header in the serialised output
	// instead of the default RFC 5321 behaviour of dropping it.
	KeepBcc bool

	ResolveOptions ResolveOptions
}

// NewReader returns a lazy io.Reader that serialises root on demand. The
// tree is walked, and content is resolved and transfer-encoded, from a
// background goroutine writing into an io.Pipe; the pipe's inherent
// backpressure means large attachments are never buffered wholesale in
// memory, and reads stop as soon as the reader stops pulling.
func (root *Node) NewReader(opts SerializeOptions) io.Reader {
	pr, pw := io.Pipe()
	go func() {
		var sink io.Writer = pw
		switch opts.Newline {
		case "unix":
			sink = codec.NewLFWriter(pw)
		case "raw":
			// no normalisation
		default:
			sink = codec.NewCRLFWriter(pw)
		}

		ensure := codec.NewEnsureTrailingNewline(sink)
		err := writeNode(ensure, root, root, opts)
		if err == nil {
			err = ensure.Close()
		}
		pw.CloseWithError(err)
	}()
	return pr
}

func writeNode(w io.Writer, root, n *Node, opts SerializeOptions) error {
	if n.FullMessageRaw {
		_, err := w.Write(n.Raw)
		return err
	}

	if err := writeHeaders(w, root, n, opts); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}

	switch {
	case len(n.ChildNodes) > 0:
		return writeMultipartBody(w, root, n, opts)
	case n.Raw != nil:
		_, err := w.Write(n.Raw)
		return err
	default:
		return writeLeafBody(w, n, opts)
	}
}

func writeHeaders(w io.Writer, root, n *Node, opts SerializeOptions) error {
	for _, h := range n.headers {
		if n == root && strings.EqualFold(h.Key, "Bcc") && !opts.KeepBcc {
			continue
		}
		line := codec.FoldHeader(h.Key, h.Value)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return err
		}
	}
	// A multipart node carries its boundary in ContentType rather than an
	// explicit header entry; synthesise the Content-Type line here so the
	// emitted boundary parameter always matches the delimiters below.
	if n.boundary != "" && n.GetHeader("Content-Type") == "" {
		value := EncodeContentTypeHeader(n.ContentType, map[string]string{"boundary": n.boundary})
		if _, err := io.WriteString(w, codec.FoldHeader("Content-Type", value)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return err
		}
	}
	return nil
}

func writeMultipartBody(w io.Writer, root, n *Node, opts SerializeOptions) error {
	for _, child := range n.ChildNodes {
		if _, err := fmt.Fprintf(w, "--%s\r\n", n.boundary); err != nil {
			return err
		}
		if err := writeNode(w, root, child, opts); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "--%s--\r\n", n.boundary)
	return err
}

func writeLeafBody(w io.Writer, n *Node, opts SerializeOptions) error {
	var reader io.ReadCloser
	var err error
	if n.Content != nil {
		reader, err = n.Content.Resolve(opts.ResolveOptions)
		if err != nil {
			return err
		}
	} else {
		reader = io.NopCloser(strings.NewReader(""))
	}
	defer reader.Close()

	enc := SelectTransferEncoding(n.GetHeader("Content-Transfer-Encoding"), n.ContentType, plainTextOf(n))
	encoder := transferEncodeWriter(w, enc)
	if _, err := io.Copy(encoder, reader); err != nil {
		return err
	}
	return encoder.Close()
}

func plainTextOf(n *Node) *string {
	if n.Content == nil {
		return nil
	}
	if s, ok := n.Content.PlainText(); ok {
		return &s
	}
	return nil
}

func transferEncodeWriter(w io.Writer, enc string) io.WriteCloser {
	switch strings.ToLower(enc) {
	case "quoted-printable":
		return codec.NewQPWriter(w)
	case "base64":
		return codec.NewBase64Writer(w, true)
	default:
		return nopWriteCloser{w}
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
