package composer

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/mailit-dev/gomail/address"
	"github.com/mailit-dev/gomail/mime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderTree(t *testing.T, root *mime.Node) string {
	t.Helper()
	data, err := io.ReadAll(root.NewReader(mime.SerializeOptions{}))
	require.NoError(t, err)
	return string(data)
}

func TestCompose_TextOnlyIsSingleLeaf(t *testing.T) {
	root := Compose(MailDescription{
		From: address.Address{Address: "a@example.com"},
		To:   []address.Address{{Address: "b@example.com"}},
		Text: "hello",
	})
	assert.Equal(t, "text/plain", root.ContentType)
	assert.Empty(t, root.ChildNodes)
	out := renderTree(t, root)
	assert.Contains(t, out, "hello")
}

func TestCompose_TextAndHTMLUsesAlternative(t *testing.T) {
	root := Compose(MailDescription{
		From: address.Address{Address: "a@example.com"},
		To:   []address.Address{{Address: "b@example.com"}},
		Text: "hello",
		HTML: "<p>hello</p>",
	})
	assert.Equal(t, "multipart/alternative", root.ContentType)
	assert.Len(t, root.ChildNodes, 2)
}

func TestCompose_HTMLWithCidAttachmentUsesRelated(t *testing.T) {
	root := Compose(MailDescription{
		From: address.Address{Address: "a@example.com"},
		To:   []address.Address{{Address: "b@example.com"}},
		HTML: `<img src="cid:logo">`,
		Attachments: []Attachment{
			{ContentType: "image/png", CID: "logo", Content: mime.ContentSpec{Bytes: []byte{1, 2, 3}}},
		},
	})
	assert.Equal(t, "multipart/related", root.ContentType)
	assert.Len(t, root.ChildNodes, 2)
}

func TestCompose_AttachmentWithoutCidUsesMixed(t *testing.T) {
	root := Compose(MailDescription{
		From: address.Address{Address: "a@example.com"},
		To:   []address.Address{{Address: "b@example.com"}},
		Text: "hello",
		Attachments: []Attachment{
			{ContentType: "application/pdf", Filename: "report.pdf", Content: mime.ContentSpec{Bytes: []byte("pdf")}},
		},
	})
	assert.Equal(t, "multipart/mixed", root.ContentType)
	assert.Len(t, root.ChildNodes, 2)
}

func TestCompose_TextHTMLAndAttachmentNestsAlternativeInMixed(t *testing.T) {
	root := Compose(MailDescription{
		From: address.Address{Address: "a@example.com"},
		To:   []address.Address{{Address: "b@example.com"}},
		Text: "hello",
		HTML: "<p>hello</p>",
		Attachments: []Attachment{
			{ContentType: "application/pdf", Filename: "report.pdf", Content: mime.ContentSpec{Bytes: []byte("pdf")}},
		},
	})
	require.Equal(t, "multipart/mixed", root.ContentType)
	require.Len(t, root.ChildNodes, 2)
	assert.Equal(t, "multipart/alternative", root.ChildNodes[0].ContentType)
}

func TestCompose_ICalEventAppearsTwice(t *testing.T) {
	root := Compose(MailDescription{
		From: address.Address{Address: "a@example.com"},
		To:   []address.Address{{Address: "b@example.com"}},
		Text: "hello",
		ICalEvent: &ICalEvent{
			Method:  "REQUEST",
			Content: mime.ContentSpec{Text: "BEGIN:VCALENDAR"},
		},
	})
	out := renderTree(t, root)
	assert.Contains(t, out, "text/calendar")
	assert.Contains(t, out, `method=REQUEST`)
	assert.Contains(t, out, "invite.ics")
}

func TestCompose_RawShortCircuits(t *testing.T) {
	root := Compose(MailDescription{Raw: []byte("Subject: x\r\n\r\nbody\r\n")})
	out := renderTree(t, root)
	assert.Equal(t, "Subject: x\r\n\r\nbody\r\n", out)
}

func TestCompose_HeadersIncludeFromToSubject(t *testing.T) {
	root := Compose(MailDescription{
		From:    address.Address{Name: "Alice", Address: "a@example.com"},
		To:      []address.Address{{Address: "b@example.com"}},
		Subject: "Hi there",
		Text:    "hello",
	})
	assert.Equal(t, "Alice <a@example.com>", root.GetHeader("From"))
	assert.Equal(t, "b@example.com", root.GetHeader("To"))
	assert.Equal(t, "Hi there", root.GetHeader("Subject"))
	assert.Equal(t, "1.0", root.GetHeader("MIME-Version"))
	assert.NotEmpty(t, root.GetHeader("Message-Id"))
	assert.NotEmpty(t, root.GetHeader("Date"))
}

func TestCompose_PriorityHighSetsHeaders(t *testing.T) {
	root := Compose(MailDescription{
		From:     address.Address{Address: "a@example.com"},
		To:       []address.Address{{Address: "b@example.com"}},
		Text:     "hello",
		Priority: PriorityHigh,
	})
	assert.Equal(t, "1 (Highest)", root.GetHeader("X-Priority"))
	assert.Equal(t, "high", root.GetHeader("Importance"))
}

func TestDeriveFilename_FromHref(t *testing.T) {
	name, omit := deriveFilename(Attachment{
		ContentType: "image/png",
		Content:     mime.ContentSpec{Href: "https://example.com/path/logo.png?x=1"},
	})
	assert.False(t, omit)
	assert.Equal(t, "logo.png", name)
}

func TestDeriveFilename_InfersExtensionFromContentType(t *testing.T) {
	name, _ := deriveFilename(Attachment{
		ContentType: "application/pdf",
		Content:     mime.ContentSpec{Href: "https://example.com/download/report"},
	})
	assert.Equal(t, "report.pdf", name)
}

func TestDeriveFilename_ExplicitOmit(t *testing.T) {
	_, omit := deriveFilename(Attachment{FilenameOmitted: true, Content: mime.ContentSpec{Path: "/tmp/x.pdf"}})
	assert.True(t, omit)
}

func TestCompose_BoundaryThreadingUsesConfiguredBase(t *testing.T) {
	root := Compose(MailDescription{
		From: address.Address{Address: "a@example.com"},
		To:   []address.Address{{Address: "b@example.com"}},
		Text: "hello",
		HTML: "<p>hello</p>",
		Attachments: []Attachment{
			{ContentType: "application/pdf", Filename: "r.pdf", Content: mime.ContentSpec{Bytes: []byte{1}}},
		},
		BaseBoundary:   "fixedbase",
		BoundaryPrefix: "--_GoMail",
	})
	require.Equal(t, "multipart/mixed", root.ContentType)

	var boundaries []string
	var walk func(n *mime.Node)
	walk = func(n *mime.Node) {
		if n.Boundary() != "" {
			boundaries = append(boundaries, n.Boundary())
		}
		for _, c := range n.ChildNodes {
			walk(c)
		}
	}
	walk(root)
	require.Len(t, boundaries, 2) // mixed root plus nested alternative

	seen := map[string]bool{}
	for _, b := range boundaries {
		assert.True(t, strings.HasPrefix(b, "--_GoMailfixedbase-Part_"), b)
		assert.False(t, seen[b], "duplicate boundary %s", b)
		seen[b] = true
	}

	out := renderTree(t, root)
	assert.Contains(t, out, "boundary=")
	assert.Contains(t, out, "--_GoMailfixedbase-Part_")
}

func TestCompose_MessageIDDomainFromFromAddress(t *testing.T) {
	root := Compose(MailDescription{
		From: address.Address{Address: "a@sender.example"},
		To:   []address.Address{{Address: "b@example.com"}},
		Text: "hello",
	})
	assert.True(t, strings.HasSuffix(root.GetHeader("Message-Id"), "@sender.example>"),
		root.GetHeader("Message-Id"))
}

func TestCompose_MessageIDDomainFallsBackToConfiguredHostname(t *testing.T) {
	root := Compose(MailDescription{
		To:            []address.Address{{Address: "b@example.com"}},
		Text:          "hello",
		HostnameForID: "mailer.example.com",
	})
	assert.True(t, strings.HasSuffix(root.GetHeader("Message-Id"), "@mailer.example.com>"),
		root.GetHeader("Message-Id"))
}

func TestMessageIDDomain_OSHostnameFallback(t *testing.T) {
	got := messageIDDomain(MailDescription{})
	if host, err := os.Hostname(); err == nil && strings.Contains(host, ".") {
		assert.Equal(t, host, got)
	} else {
		assert.Equal(t, "[127.0.0.1]", got)
	}
}
