package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailit-dev/gomail/pool"
	"github.com/mailit-dev/gomail/smtp"
)

// SMTP adapts a pool.Pool (SMTP/LMTP over a bounded connection pool) to
// the Transport contract: one Send call blocks until the pool's single
// completion callback fires for this message, or ctx is done.
type SMTP struct {
	Pool *pool.Pool
}

// NewSMTP wraps p as a Transport.
func NewSMTP(p *pool.Pool) *SMTP { return &SMTP{Pool: p} }

func (t *SMTP) Send(ctx context.Context, in SendInput) (SendOutput, error) {
	done := make(chan pool.Result, 1)
	t.Pool.Send(pool.Job{
		From:      in.Envelope.From,
		To:        in.Envelope.To,
		MessageID: in.MessageID,
		Open:      in.Open,
		Send:      in.Send,
	}, func(r pool.Result) { done <- r })

	select {
	case r := <-done:
		return SendOutput{
			Accepted:       r.Envelope.Accepted,
			Rejected:       r.Envelope.Rejected,
			RejectedErrors: r.Envelope.RejectedErrors,
			Response:       recipientResponseSummary(r.Responses),
		}, r.Err
	case <-ctx.Done():
		return SendOutput{}, ctx.Err()
	}
}

// recipientResponseSummary renders LMTP per-recipient responses (if any)
// into a single human-readable line; a plain SMTP send has none.
func recipientResponseSummary(responses []smtp.RecipientResponse) string {
	if len(responses) == 0 {
		return ""
	}
	parts := make([]string, len(responses))
	for i, r := range responses {
		parts[i] = fmt.Sprintf("%s: %d %s", r.Recipient, r.Code, r.Message)
	}
	return strings.Join(parts, "; ")
}
