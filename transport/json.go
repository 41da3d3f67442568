package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mailit-dev/gomail/mime"
)

// JSON is the JSON sink: it never touches the network, instead
// encoding the composed mail description (with attachment content
// resolved and base64-encoded) as a single JSON payload.
type JSON struct {
	// SkipEncoding, when true, leaves attachment content as raw bytes in
	// the marshalled structure (still delivered as JSON bytes, since Go
	// has no "unencoded object" return value distinct from its JSON
	// serialisation) instead of base64-encoding each attachment body.
	SkipEncoding bool

	ResolveOptions mime.ResolveOptions
}

type jsonAttachment struct {
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	CID         string `json:"cid,omitempty"`
	Content     string `json:"content"`
	Encoding    string `json:"encoding"`
}

type jsonMessage struct {
	Subject     string           `json:"subject,omitempty"`
	Text        string           `json:"text,omitempty"`
	HTML        string           `json:"html,omitempty"`
	Attachments []jsonAttachment `json:"attachments,omitempty"`
}

func (j *JSON) Send(ctx context.Context, in SendInput) (SendOutput, error) {
	md := in.Mail
	msg := jsonMessage{Subject: md.Subject, Text: md.Text, HTML: md.HTML}

	for _, a := range md.Attachments {
		rc, err := a.Content.Resolve(j.ResolveOptions)
		if err != nil {
			return SendOutput{}, fmt.Errorf("transport: resolve attachment %q: %w", a.Filename, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return SendOutput{}, fmt.Errorf("transport: read attachment %q: %w", a.Filename, err)
		}
		att := jsonAttachment{Filename: a.Filename, ContentType: a.ContentType, CID: a.CID, Encoding: "base64"}
		if j.SkipEncoding {
			att.Content = string(data)
			att.Encoding = ""
		} else {
			att.Content = base64.StdEncoding.EncodeToString(data)
		}
		msg.Attachments = append(msg.Attachments, att)
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return SendOutput{}, fmt.Errorf("transport: marshal JSON message: %w", err)
	}
	return SendOutput{
		Accepted: append([]string{}, in.Envelope.To...),
		Raw:      raw,
	}, nil
}
