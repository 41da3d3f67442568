package mime

import (
	"fmt"

	"github.com/google/uuid"
)

// NewMessageID generates a Message-ID header value in "<uuid@domain>"
// form. Callers that already set an explicit Message-Id header should
// prefer that value; NewMessageID is for composer/mailer code filling in
// the default.
func NewMessageID(domain string) string {
	if domain == "" {
		domain = "localhost"
	}
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}

// EnsureMessageID sets a generated Message-Id header on root if one is not
// already present, and returns the resulting value.
func (root *Node) EnsureMessageID(domain string) string {
	if v := root.GetHeader("Message-Id"); v != "" {
		return v
	}
	id := NewMessageID(domain)
	root.SetHeader("Message-Id", id)
	return id
}
