package mime

import (
	"strconv"

	"github.com/mailit-dev/gomail/address"
)

// Envelope is the SMTP-level sender/recipient set derived from a message's
// headers, distinct from the RFC 5322 header values themselves (e.g. Bcc
// contributes to the envelope recipient list but must not appear in the
// serialised headers).
type Envelope struct {
	From string
	To   []string
}

// DeriveEnvelope builds the SMTP envelope from root's From (falling back to
// Reply-To, then Sender) and its To/Cc/Bcc headers, which are flattened and
// deduplicated into the envelope recipient list.
func (root *Node) DeriveEnvelope() Envelope {
	from := root.GetHeader("From")
	if from == "" {
		from = root.GetHeader("Reply-To")
	}
	if from == "" {
		from = root.GetHeader("Sender")
	}
	var env Envelope
	if from != "" {
		if a := address.Parse(from); a.Address != "" {
			env.From = a.Address
		} else {
			env.From = from
		}
	}

	seen := map[string]bool{}
	for _, hdr := range []string{"To", "Cc", "Bcc"} {
		v := root.GetHeader(hdr)
		if v == "" {
			continue
		}
		for _, a := range address.Flatten(address.ParseList(v)) {
			if a.Address == "" || seen[a.Address] {
				continue
			}
			seen[a.Address] = true
			env.To = append(env.To, a.Address)
		}
	}
	return env
}

// EstimatedSize returns a rough estimate of the serialised message size in
// bytes for the SMTP SIZE extension, accounting for base64 attachment
// expansion (~4/3) on leaves whose encoding will be base64.
func (root *Node) EstimatedSize() int {
	var total int
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, h := range n.headers {
			total += len(h.Key) + len(h.Value) + 4
		}
		if n.Raw != nil {
			total += len(n.Raw)
		}
		if len(n.ChildNodes) > 0 {
			total += len(n.boundary) * (len(n.ChildNodes) + 1) * 2
		}
		for _, c := range n.ChildNodes {
			walk(c)
		}
		if n.Content != nil {
			if s, ok := n.Content.PlainText(); ok {
				if SelectTransferEncoding(n.GetHeader("Content-Transfer-Encoding"), n.ContentType, &s) == "base64" {
					total += len(s) * 4 / 3
				} else {
					total += len(s)
				}
			} else if n.Content.Bytes != nil {
				total += len(n.Content.Bytes) * 4 / 3
			}
		}
	}
	walk(root)
	return total
}

// sizeParam renders an integer as a Content-Length-style decimal string.
// Nothing in the module calls it; smtp.Client.MailFrom formats SIZE= itself.
func sizeParam(n int) string { return strconv.Itoa(n) }
