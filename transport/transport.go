// Package transport implements the message sinks: a common Transport
// contract plus JSON, stream/buffer, and local-pipe (sendmail) transports,
// a documentation-only hosted-mail-API contract (hostedapi.go, no client
// code), and the connection-URL parser used to
// configure the SMTP transport. The primary SMTP/LMTP
// transport (smtp.go) adapts a pool.Pool to the same contract so the
// mailer package can dispatch to any of them interchangeably.
package transport

import (
	"context"
	"io"

	"github.com/mailit-dev/gomail/composer"
	"github.com/mailit-dev/gomail/mime"
	"github.com/mailit-dev/gomail/smtp"
)

// SendInput is everything a Transport needs to deliver one message. Open
// is called exactly once per delivery attempt and must return a fresh
// reader each time it is called (a transport that retries internally,
// such as the pool-backed SMTP transport, calls it again on retry).
type SendInput struct {
	Envelope  mime.Envelope
	MessageID string
	Open      func() (io.Reader, error)
	// Send carries the MAIL FROM/RCPT TO extension parameters (DSN,
	// SMTPUTF8, SIZE, 8BITMIME) for the wire transports; non-wire sinks
	// ignore it.
	Send smtp.SendOptions
	// Mail is the original composed description, carried through for
	// sinks (JSON) that serialise structured fields instead of raw
	// RFC 822 bytes.
	Mail composer.MailDescription
}

// SendOutput is a Transport's report of one delivery attempt.
type SendOutput struct {
	Accepted       []string
	Rejected       []string
	RejectedErrors map[string]error
	Response       string
	// Raw carries a sink's non-streamed payload (the JSON sink's encoded
	// message, or the buffer-mode stream sink's single buffer).
	Raw []byte
	// Reader carries the stream sink's non-buffered payload.
	Reader io.Reader
}

// Transport is the contract every sink satisfies: SMTP/LMTP, JSON,
// stream/buffer, local-pipe, and the hosted-API driver contract.
type Transport interface {
	Send(ctx context.Context, in SendInput) (SendOutput, error)
}
