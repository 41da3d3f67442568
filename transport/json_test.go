package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailit-dev/gomail/composer"
	"github.com/mailit-dev/gomail/mime"
)

func TestJSONSendEncodesMessageAndAttachments(t *testing.T) {
	j := &JSON{}
	md := composer.MailDescription{
		Subject: "hi",
		Text:    "body",
		Attachments: []composer.Attachment{
			{
				Filename:    "note.txt",
				ContentType: "text/plain",
				CID:         "cid1",
				Content:     mime.ContentSpec{Text: "hello world"},
			},
		},
	}

	out, err := j.Send(context.Background(), SendInput{
		Envelope: mime.Envelope{From: "a@example.com", To: []string{"b@example.com"}},
		Mail:     md,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b@example.com"}, out.Accepted)

	var decoded jsonMessage
	require.NoError(t, json.Unmarshal(out.Raw, &decoded))
	assert.Equal(t, "hi", decoded.Subject)
	assert.Equal(t, "body", decoded.Text)
	require.Len(t, decoded.Attachments, 1)
	assert.Equal(t, "note.txt", decoded.Attachments[0].Filename)
	assert.Equal(t, "base64", decoded.Attachments[0].Encoding)

	raw, err := base64.StdEncoding.DecodeString(decoded.Attachments[0].Content)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(raw))
}

func TestJSONSendSkipEncodingLeavesRawContent(t *testing.T) {
	j := &JSON{SkipEncoding: true}
	md := composer.MailDescription{
		Attachments: []composer.Attachment{
			{Filename: "note.txt", Content: mime.ContentSpec{Text: "plain"}},
		},
	}

	out, err := j.Send(context.Background(), SendInput{
		Envelope: mime.Envelope{From: "a@example.com", To: []string{"b@example.com"}},
		Mail:     md,
	})
	require.NoError(t, err)

	var decoded jsonMessage
	require.NoError(t, json.Unmarshal(out.Raw, &decoded))
	require.Len(t, decoded.Attachments, 1)
	assert.Equal(t, "plain", decoded.Attachments[0].Content)
	assert.Empty(t, decoded.Attachments[0].Encoding)
}

func TestJSONSendFailsOnUnresolvableAttachment(t *testing.T) {
	j := &JSON{}
	md := composer.MailDescription{
		Attachments: []composer.Attachment{
			{Filename: "missing.txt", Content: mime.ContentSpec{Path: "/does/not/exist/at/all"}},
		},
	}
	_, err := j.Send(context.Background(), SendInput{
		Envelope: mime.Envelope{From: "a@example.com", To: []string{"b@example.com"}},
		Mail:     md,
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing.txt"))
}
