// Package composer maps a high-level MailDescription onto a mime.Node
// tree, choosing mixed/alternative/related structure from the bodies
// and attachments present.
package composer

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mailit-dev/gomail/address"
	"github.com/mailit-dev/gomail/mime"
)

// Priority is the value of the optional X-Priority / Importance headers.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Alternative is one text/html/amp/watchHtml/icalEvent/explicit-alternative
// body candidate.
type Alternative struct {
	ContentType string
	Content     mime.ContentSpec
	Params      map[string]string
}

// Attachment is one file-like part, either attached (multipart/mixed) or
// inlined by cid (multipart/related).
type Attachment struct {
	Content                 mime.ContentSpec
	ContentType             string
	Filename                string
	FilenameOmitted         bool
	CID                     string
	ContentTransferEncoding string
	Disposition             string
	Headers                 map[string]string
}

// MailDescription is the input record the composer turns into a MIME tree.
type MailDescription struct {
	From      address.Address
	Sender    address.Address
	To        []address.Address
	Cc        []address.Address
	Bcc       []address.Address
	ReplyTo   []address.Address
	InReplyTo string
	References []string
	Subject   string
	MessageID string
	Date      time.Time

	Headers map[string]string
	List    map[string]string
	Priority Priority
	XMailer string

	Text       string
	HTML       string
	WatchHTML  string
	AMP        string
	ICalEvent  *ICalEvent
	Alternatives []Alternative
	Attachments  []Attachment
	Raw          []byte

	DSN               *DSN
	DisableFileAccess bool
	DisableURLAccess  bool
	TextEncoding      string // "Q" or "B"
	Encoding          string // default CTE for text parts
	BaseBoundary      string
	BoundaryPrefix    string
	Newline           string // win/unix/raw
	KeepBcc           bool
	HostnameForID     string
	AttachDataURLs    bool // rewrite inline data: image src into CID attachments
}

// ICalEvent is emitted twice when present: a text/calendar alternative and
// an application/ics attachment named invite.ics.
type ICalEvent struct {
	Method  string
	Content mime.ContentSpec
}

// DSN carries Delivery Status Notification hints through to the envelope.
type DSN struct {
	Ret   string // "FULL" or "HDRS"
	Envid string
	Notify []string // "NEVER", "SUCCESS", "FAILURE", "DELAY"
}

// Compose builds the MIME tree for md, returning its root node.
func Compose(md MailDescription) *mime.Node {
	if md.Raw != nil {
		root := mime.NewRoot("message/rfc822")
		root.FullMessageRaw = true
		root.SetRaw(md.Raw)
		return root
	}

	alts := collectAlternatives(md)
	attachments := md.Attachments
	if md.ICalEvent != nil {
		attachments = append(append([]Attachment{}, attachments...), Attachment{
			ContentType: "application/ics",
			Filename:    "invite.ics",
			Content:     md.ICalEvent.Content,
		})
	}
	related, attached := partitionAttachments(attachments)

	useRelated := hasHTMLAlternative(alts) && len(related) > 0
	if !useRelated {
		// cid attachments with no HTML alternative to relate to are just
		// attached directly, same as any other attachment.
		attached = append(attached, related...)
		related = nil
	}
	useAlternative := len(alts) > 1
	useMixed := len(attached) > 1 || (len(attached) > 0 && len(alts) > 0)

	var body *mime.Node
	switch {
	case useAlternative:
		body = buildAlternative(alts)
	case useRelated:
		body = buildRelated(alts, related)
		related = nil
	case len(alts) == 1:
		body = buildLeaf(alts[0])
	default:
		body = mime.NewRoot("text/plain")
		body.SetContent(mime.ContentSpec{Text: ""})
	}

	if useRelated && useAlternative {
		body = wrapRelated(body, related)
		related = nil
	}

	var root *mime.Node
	switch {
	case useMixed:
		root = mime.NewRoot("multipart/mixed")
		root.AppendChild(body)
		for _, a := range attached {
			root.AppendChild(buildAttachment(a))
		}
	default:
		root = body
		for _, a := range related {
			root.AppendChild(buildAttachment(a))
		}
	}

	if md.BoundaryPrefix != "" || md.BaseBoundary != "" {
		root.SetBoundaryDefaults(md.BoundaryPrefix, md.BaseBoundary)
	}

	applyHeaders(root, md)
	return root
}

func collectAlternatives(md MailDescription) []Alternative {
	var alts []Alternative
	if md.Text != "" {
		alts = append(alts, Alternative{ContentType: "text/plain", Content: mime.ContentSpec{Text: md.Text}, Params: map[string]string{"charset": "utf-8"}})
	}
	if md.WatchHTML != "" {
		alts = append(alts, Alternative{ContentType: "text/watch-html", Content: mime.ContentSpec{Text: md.WatchHTML}, Params: map[string]string{"charset": "utf-8"}})
	}
	if md.AMP != "" {
		alts = append(alts, Alternative{ContentType: "text/x-amp-html", Content: mime.ContentSpec{Text: md.AMP}, Params: map[string]string{"charset": "utf-8"}})
	}
	if md.HTML != "" {
		alts = append(alts, Alternative{ContentType: "text/html", Content: mime.ContentSpec{Text: md.HTML}, Params: map[string]string{"charset": "utf-8"}})
	}
	if md.ICalEvent != nil {
		method := md.ICalEvent.Method
		if method == "" {
			method = "PUBLISH"
		}
		alts = append(alts, Alternative{
			ContentType: "text/calendar",
			Content:     md.ICalEvent.Content,
			Params:      map[string]string{"charset": "utf-8", "method": method},
		})
	}
	alts = append(alts, md.Alternatives...)
	return alts
}

func hasHTMLAlternative(alts []Alternative) bool {
	for _, a := range alts {
		if a.ContentType == "text/html" {
			return true
		}
	}
	return false
}

func partitionAttachments(all []Attachment) (related, attached []Attachment) {
	for _, a := range all {
		if a.CID != "" {
			related = append(related, a)
		} else {
			attached = append(attached, a)
		}
	}
	return
}

func buildLeaf(a Alternative) *mime.Node {
	n := mime.NewRoot(a.ContentType)
	n.SetHeader("Content-Type", mime.EncodeContentTypeHeader(a.ContentType, a.Params))
	n.SetContent(a.Content)
	return n
}

func buildAlternative(alts []Alternative) *mime.Node {
	root := mime.NewRoot("multipart/alternative")
	for _, a := range alts {
		child := root.CreateChild(a.ContentType)
		child.SetHeader("Content-Type", mime.EncodeContentTypeHeader(a.ContentType, a.Params))
		child.SetContent(a.Content)
	}
	return root
}

func buildRelated(alts []Alternative, related []Attachment) *mime.Node {
	root := mime.NewRoot("multipart/related")
	var htmlNode *mime.Node
	if len(alts) == 1 {
		htmlNode = root.CreateChild(alts[0].ContentType)
		htmlNode.SetHeader("Content-Type", mime.EncodeContentTypeHeader(alts[0].ContentType, alts[0].Params))
		htmlNode.SetContent(alts[0].Content)
	} else {
		alt := root.CreateChild("multipart/alternative")
		for _, a := range alts {
			child := alt.CreateChild(a.ContentType)
			child.SetHeader("Content-Type", mime.EncodeContentTypeHeader(a.ContentType, a.Params))
			child.SetContent(a.Content)
		}
	}
	for _, a := range related {
		root.AppendChild(buildAttachment(a))
	}
	return root
}

func wrapRelated(altRoot *mime.Node, related []Attachment) *mime.Node {
	root := mime.NewRoot("multipart/related")
	root.AppendChild(altRoot)
	for _, a := range related {
		root.AppendChild(buildAttachment(a))
	}
	return root
}

func buildAttachment(a Attachment) *mime.Node {
	node := mime.NewRoot(a.ContentType)
	filename, omit := deriveFilename(a)

	params := map[string]string{}
	if !omit && filename != "" {
		params["name"] = filename
	}
	node.SetHeader("Content-Type", mime.EncodeContentTypeHeader(a.ContentType, params))

	disposition := a.Disposition
	if disposition == "" {
		disposition = defaultDisposition(a)
	}
	dispParams := map[string]string{}
	if !omit && filename != "" {
		dispParams["filename"] = filename
	}
	node.SetHeader("Content-Disposition", mime.EncodeDispositionHeader(disposition, dispParams))

	if a.CID != "" {
		node.SetHeader("Content-Id", "<"+strings.Trim(a.CID, "<>")+">")
	}

	cte := a.ContentTransferEncoding
	if cte == "" && strings.HasPrefix(a.ContentType, "message/") {
		cte = "7bit"
	}
	if cte != "" {
		node.SetHeader("Content-Transfer-Encoding", cte)
	}
	for k, v := range a.Headers {
		node.SetHeader(k, v)
	}
	node.SetContent(a.Content)
	return node
}

func defaultDisposition(a Attachment) string {
	if a.CID != "" && (strings.HasPrefix(a.ContentType, "image/") || strings.HasPrefix(a.ContentType, "message/")) {
		return "inline"
	}
	return "attachment"
}

func deriveFilename(a Attachment) (name string, omit bool) {
	if a.FilenameOmitted {
		return "", true
	}
	if a.Filename != "" {
		return a.Filename, false
	}
	href := ""
	if a.Content.Href != "" {
		href = a.Content.Href
	} else if a.Content.Path != "" {
		href = a.Content.Path
	}
	if href == "" {
		return "", false
	}
	if q := strings.IndexByte(href, '?'); q >= 0 {
		href = href[:q]
	}
	base := href
	if idx := strings.LastIndexByte(href, '/'); idx >= 0 {
		base = href[idx+1:]
	}
	if base == "" {
		return "", false
	}
	if !strings.Contains(base, ".") {
		if ext := extensionForContentType(a.ContentType); ext != "" {
			base += ext
		}
	}
	return base, false
}

func applyHeaders(root *mime.Node, md MailDescription) {
	if !md.From.IsGroup() && md.From.Address != "" {
		root.SetHeader("From", mime.EncodeAddressList([]address.Address{md.From}))
	}
	if md.Sender.Address != "" {
		root.SetHeader("Sender", mime.EncodeAddressList([]address.Address{md.Sender}))
	}
	if len(md.To) > 0 {
		root.SetHeader("To", mime.EncodeAddressList(md.To))
	}
	if len(md.Cc) > 0 {
		root.SetHeader("Cc", mime.EncodeAddressList(md.Cc))
	}
	if len(md.Bcc) > 0 {
		root.SetHeader("Bcc", mime.EncodeAddressList(md.Bcc))
	}
	if len(md.ReplyTo) > 0 {
		root.SetHeader("Reply-To", mime.EncodeAddressList(md.ReplyTo))
	}
	if md.Subject != "" {
		root.SetHeader("Subject", mime.EncodeGenericHeader(md.Subject))
	}
	if md.InReplyTo != "" {
		root.SetHeader("In-Reply-To", wrapMessageID(md.InReplyTo))
	}
	if len(md.References) > 0 {
		wrapped := make([]string, len(md.References))
		for i, r := range md.References {
			wrapped[i] = wrapMessageID(r)
		}
		root.SetHeader("References", mime.EncodeReferences(wrapped))
	}
	if !md.Date.IsZero() {
		root.SetHeader("Date", mime.EncodeDate(md.Date))
	} else {
		root.SetHeader("Date", mime.EncodeDate(time.Now().UTC()))
	}
	if md.MessageID != "" {
		root.SetHeader("Message-Id", wrapMessageID(md.MessageID))
	} else {
		root.EnsureMessageID(messageIDDomain(md))
	}
	root.SetHeader("MIME-Version", "1.0")

	xMailer := md.XMailer
	if xMailer == "" {
		xMailer = "gomail"
	}
	root.SetHeader("X-Mailer", xMailer)

	switch md.Priority {
	case PriorityHigh:
		root.SetHeader("X-Priority", "1 (Highest)")
		root.SetHeader("Importance", "high")
	case PriorityLow:
		root.SetHeader("X-Priority", "5 (Lowest)")
		root.SetHeader("Importance", "low")
	}

	for _, k := range orderedListKeys(md.List) {
		root.SetHeader(fmt.Sprintf("List-%s", k), md.List[k])
	}
	for k, v := range md.Headers {
		root.SetHeader(k, mime.EncodeGenericHeader(v))
	}
}

func orderedListKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// messageIDDomain picks the domain for a generated Message-Id: the From
// (or Sender) address's domain first, then the configured hostname, then
// the OS hostname, using the bracketed loopback form when the OS hostname
// is not an FQDN.
func messageIDDomain(md MailDescription) string {
	from := md.From.Address
	if from == "" {
		from = md.Sender.Address
	}
	if at := strings.LastIndexByte(from, '@'); at >= 0 && at < len(from)-1 {
		return from[at+1:]
	}
	if md.HostnameForID != "" {
		return md.HostnameForID
	}
	host, err := os.Hostname()
	if err != nil || !strings.Contains(host, ".") {
		return "[127.0.0.1]"
	}
	return host
}

func wrapMessageID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return id
	}
	if !strings.HasPrefix(id, "<") {
		id = "<" + id
	}
	if !strings.HasSuffix(id, ">") {
		id = id + ">"
	}
	return id
}
