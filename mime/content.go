package mime

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
)

// ContentSpec describes a leaf node's body before it has been resolved to
// a byte stream. Exactly one of the fields below is expected to be set;
// Resolve tries them in a fixed precedence order.
type ContentSpec struct {
	// Stream is an already-open reader; it is consumed and closed (if it
	// implements io.Closer) as-is.
	Stream io.Reader

	// Href is an http(s) URL fetched with HTTPClient (or http.DefaultClient).
	Href string

	// Path is a local filesystem path, rejected when ResolveOptions.
	// DisableFileAccess is set.
	Path string

	// DataURI is a "data:" URI parsed by ParseDataURI.
	DataURI string

	// Text is an in-memory string, optionally pre-encoded per Encoding
	// ("base64", "hex", or "" for raw text).
	Text     string
	Encoding string

	// Bytes is raw in-memory content, used when none of the above apply.
	Bytes []byte

	HTTPHeaders map[string]string
}

// ResolveOptions gates network/filesystem access for content resolution.
type ResolveOptions struct {
	DisableFileAccess bool
	DisableURLAccess  bool
	HTTPClient        *http.Client
	HTTPTimeout       time.Duration
}

// Resolve turns a ContentSpec into a streamable, closeable reader. Errors
// from a Stream spec are deferred: the first Read surfaces them rather than
// Resolve itself, since a caller-supplied io.Reader may not fail until it
// is actually pumped.
func (c *ContentSpec) Resolve(opts ResolveOptions) (io.ReadCloser, error) {
	switch {
	case c.Stream != nil:
		return toReadCloser(c.Stream), nil

	case c.Href != "":
		if opts.DisableURLAccess {
			return nil, errors.New("mime: content href access disabled")
		}
		return fetchHTTP(c.Href, c.HTTPHeaders, opts)

	case c.Path != "":
		if opts.DisableFileAccess {
			return nil, errors.New("mime: content path access disabled")
		}
		f, err := os.Open(c.Path)
		if err != nil {
			return nil, fmt.Errorf("mime: open %s: %w", c.Path, err)
		}
		return f, nil

	case c.DataURI != "":
		_, _, payload, err := ParseDataURI(c.DataURI)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(payload)), nil

	case c.Text != "":
		return decodeTextSpec(c.Text, c.Encoding)

	default:
		return io.NopCloser(bytes.NewReader(c.Bytes)), nil
	}
}

// PlainText returns the node's content as an in-memory string, for the
// transfer-encoding heuristic to sniff, along with whether sniffing is
// possible without buffering a stream/file/URL body.
func (c *ContentSpec) PlainText() (string, bool) {
	if c == nil {
		return "", false
	}
	if c.Text != "" && (c.Encoding == "" || c.Encoding == "utf8" || c.Encoding == "utf-8") {
		return c.Text, true
	}
	if c.Stream == nil && c.Href == "" && c.Path == "" && c.DataURI == "" && c.Text == "" {
		return string(c.Bytes), true
	}
	return "", false
}

func decodeTextSpec(text, encoding string) (io.ReadCloser, error) {
	switch strings.ToLower(encoding) {
	case "", "utf8", "utf-8":
		return io.NopCloser(strings.NewReader(text)), nil
	case "base64":
		data, err := base64.StdEncoding.DecodeString(strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' || r == ' ' {
				return -1
			}
			return r
		}, text))
		if err != nil {
			return nil, fmt.Errorf("mime: decode base64 content: %w", err)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	case "hex":
		data, err := decodeHex(text)
		if err != nil {
			return nil, fmt.Errorf("mime: decode hex content: %w", err)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	default:
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			return nil, fmt.Errorf("mime: unknown content encoding %q: %w", encoding, err)
		}
		decoded, err := enc.NewDecoder().String(text)
		if err != nil {
			return nil, fmt.Errorf("mime: decode %s content: %w", encoding, err)
		}
		return io.NopCloser(strings.NewReader(decoded)), nil
	}
}

func decodeHex(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' {
			return -1
		}
		return r
	}, s)
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		var b byte
		if _, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &b); err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func fetchHTTP(href string, headers map[string]string, opts ResolveOptions) (io.ReadCloser, error) {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
		if opts.HTTPTimeout > 0 {
			client = &http.Client{Timeout: opts.HTTPTimeout}
		}
	}
	req, err := http.NewRequest(http.MethodGet, href, nil)
	if err != nil {
		return nil, fmt.Errorf("mime: build request for %s: %w", href, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mime: fetch %s: %w", href, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("mime: fetch %s: status %d", href, resp.StatusCode)
	}
	return resp.Body, nil
}

func toReadCloser(r io.Reader) io.ReadCloser {
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}
	return io.NopCloser(r)
}
