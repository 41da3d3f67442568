// Package mailer is the orchestrator: it runs compile-stage plugins over
// a MailDescription, hands the result to the composer, wraps the
// serialised stream through stream-stage plugins (DKIM signing is one
// such plugin), and hands the final reader to a chosen
// transport.Transport.
package mailer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mailit-dev/gomail/composer"
	"github.com/mailit-dev/gomail/mime"
	"github.com/mailit-dev/gomail/smtp"
	"github.com/mailit-dev/gomail/transport"
)

// CompilePlugin mutates a MailDescription before the composer builds the
// MIME tree (the built-in data-URL image rewriter is one such plugin).
type CompilePlugin func(md *composer.MailDescription) error

// StreamPlugin wraps the serialised message reader (the DKIM signer is
// one such plugin), returning a new reader that produces the transformed
// bytes.
type StreamPlugin func(r io.Reader) (io.Reader, error)

// Config wires a Mailer's transport and plugin pipeline.
type Config struct {
	Transport transport.Transport

	// CompilePlugins run after the built-in data-URL rewriter, in order.
	CompilePlugins []CompilePlugin
	// StreamPlugins run in registration order, after the built-ins
	// (currently none) and before the optional DKIM signer.
	StreamPlugins []StreamPlugin

	// DKIM, if set, appends a signing stream plugin as the final stage.
	DKIM *DKIMConfig
}

// Mailer runs the compile/compose/stream/transport pipeline for SendMail.
type Mailer struct {
	cfg        Config
	logger     *slog.Logger
	tracer     trace.Tracer
	dkimPlugin StreamPlugin
}

// New builds a Mailer. If cfg.DKIM is set, its signing key is parsed once
// here so a malformed key surfaces at construction rather than on every
// send.
func New(cfg Config, logger *slog.Logger) (*Mailer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mailer{cfg: cfg, logger: logger, tracer: otel.Tracer("github.com/mailit-dev/gomail/mailer")}
	if cfg.DKIM != nil {
		plugin, err := newDKIMStreamPlugin(*cfg.DKIM)
		if err != nil {
			return nil, fmt.Errorf("mailer: configure DKIM: %w", err)
		}
		m.dkimPlugin = plugin
	}
	return m, nil
}

// SendMailResult is the outcome of one SendMail call.
type SendMailResult struct {
	Envelope       mime.Envelope
	MessageID      string
	Accepted       []string
	Rejected       []string
	RejectedErrors map[string]error
	Response       string
	MessageSize    int
	MessageTime    time.Duration
	EnvelopeTime   time.Duration

	// Raw and Reader carry a non-wire sink's payload: the JSON sink's
	// encoded message or the buffer-mode stream sink's bytes (Raw), or
	// the stream sink's lazy reader (Reader). Wire transports leave both
	// unset.
	Raw    []byte
	Reader io.Reader
}

// sendOptionsFor maps the mail description's transport hints onto the
// MAIL FROM/RCPT TO extension parameters: DSN fields pass through,
// SMTPUTF8 is requested when any envelope address carries non-ASCII
// bytes, and the estimated message size feeds the SIZE parameter. The
// connection only emits each parameter when the server advertises the
// matching extension.
func sendOptionsFor(md composer.MailDescription, envelope mime.Envelope, size int) smtp.SendOptions {
	opts := smtp.SendOptions{Size: size}
	if md.DSN != nil {
		opts.DSNRet = md.DSN.Ret
		opts.DSNEnvID = md.DSN.Envid
		opts.DSNNotify = md.DSN.Notify
	}
	for _, a := range append([]string{envelope.From}, envelope.To...) {
		for i := 0; i < len(a); i++ {
			if a[i] >= 0x80 {
				opts.SMTPUTF8 = true
				return opts
			}
		}
	}
	return opts
}

// SendMail runs the full pipeline: built-in then user compile plugins,
// composition, stream plugins (user then DKIM), and dispatch to the
// configured transport.
func (m *Mailer) SendMail(ctx context.Context, md composer.MailDescription) (SendMailResult, error) {
	ctx, span := m.tracer.Start(ctx, "gomail.send_mail")
	defer span.End()

	start := time.Now()
	if err := RewriteDataURLImages(&md); err != nil {
		return SendMailResult{}, fmt.Errorf("mailer: rewrite data URL images: %w", err)
	}
	for _, p := range m.cfg.CompilePlugins {
		if err := p(&md); err != nil {
			return SendMailResult{}, fmt.Errorf("mailer: compile plugin: %w", err)
		}
	}

	root := composer.Compose(md)
	envelope := root.DeriveEnvelope()
	envelopeTime := time.Since(start)
	messageID := root.GetHeader("Message-Id")

	serializeOpts := mime.SerializeOptions{
		Newline: md.Newline,
		KeepBcc: md.KeepBcc,
		ResolveOptions: mime.ResolveOptions{
			DisableFileAccess: md.DisableFileAccess,
			DisableURLAccess:  md.DisableURLAccess,
		},
	}

	open := func() (io.Reader, error) {
		var r io.Reader = root.NewReader(serializeOpts)
		for _, p := range m.cfg.StreamPlugins {
			var err error
			r, err = p(r)
			if err != nil {
				return nil, fmt.Errorf("mailer: stream plugin: %w", err)
			}
		}
		if m.dkimPlugin != nil {
			var err error
			r, err = m.dkimPlugin(r)
			if err != nil {
				return nil, fmt.Errorf("mailer: dkim plugin: %w", err)
			}
		}
		return r, nil
	}

	sendStart := time.Now()
	out, err := m.cfg.Transport.Send(ctx, transport.SendInput{
		Envelope:  envelope,
		MessageID: messageID,
		Open:      open,
		Send:      sendOptionsFor(md, envelope, root.EstimatedSize()),
		Mail:      md,
	})
	messageTime := time.Since(sendStart)

	result := SendMailResult{
		Envelope:       envelope,
		MessageID:      messageID,
		Accepted:       out.Accepted,
		Rejected:       out.Rejected,
		RejectedErrors: out.RejectedErrors,
		Response:       out.Response,
		Raw:            out.Raw,
		Reader:         out.Reader,
		MessageSize:    root.EstimatedSize(),
		MessageTime:    messageTime,
		EnvelopeTime:   envelopeTime,
	}
	if err != nil {
		m.logger.ErrorContext(ctx, "send mail failed", "error", err, "message_id", messageID)
		return result, err
	}
	m.logger.DebugContext(ctx, "sent mail", "message_id", messageID, "accepted", len(result.Accepted), "rejected", len(result.Rejected))
	return result, nil
}
