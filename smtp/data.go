package smtp

import (
	"io"
	"net/textproto"

	"github.com/mailit-dev/gomail/codec"
)

// RecipientResponse is one LMTP per-recipient DATA outcome.
type RecipientResponse struct {
	Recipient string
	Accepted  bool
	Code      int
	Message   string
}

// Data sends the DATA command, awaits the 354 go-ahead, streams r through
// dot-stuffing, and reads the final response(s). For a plain SMTP session
// there is exactly one response; for LMTP there is one response per
// recipient in env.Accepted order, each of which can independently demote
// that recipient from accepted to rejected.
func (c *Client) Data(r io.Reader, env *Envelope) ([]RecipientResponse, error) {
	c.stage = StageSending
	defer func() { c.stage = StageIdle }()

	code, msg, err := c.cmd("DATA", EMESSAGE, "DATA")
	if err != nil {
		return nil, err
	}
	if code != 354 && code/100 != 2 && code/100 != 3 {
		return nil, responseError(EMESSAGE, "DATA", code, msg)
	}

	w := codec.NewDotStuffWriter(c.text.Writer.W)
	if _, err := io.Copy(w, r); err != nil {
		return nil, newError(ESTREAM, "DATA", err)
	}
	if err := w.Close(); err != nil {
		return nil, newError(ESTREAM, "DATA", err)
	}
	if err := c.text.Writer.W.Flush(); err != nil {
		return nil, newError(ESOCKET, "DATA", err)
	}

	if !c.lmtp {
		code, msg, err := c.text.ReadResponse(0)
		if err != nil {
			tpErr, ok := err.(*textproto.Error)
			if !ok {
				return nil, newError(EMESSAGE, "DATA", err)
			}
			code, msg = tpErr.Code, tpErr.Msg
		}
		if code/100 != 2 {
			return nil, responseError(classifyResponseCode("DATA", code), "DATA", code, msg)
		}
		return nil, nil
	}

	return c.readLMTPResponses(env)
}

func (c *Client) readLMTPResponses(env *Envelope) ([]RecipientResponse, error) {
	results := make([]RecipientResponse, 0, len(env.Accepted))
	stillAccepted := env.Accepted[:0]
	for _, rcpt := range env.Accepted {
		code, msg, err := c.text.ReadResponse(0)
		if err != nil {
			tpErr, isProtoErr := err.(*textproto.Error)
			if !isProtoErr {
				return results, newError(EMESSAGE, "DATA", err)
			}
			code, msg = tpErr.Code, tpErr.Msg
		}
		ok := code/100 == 2
		results = append(results, RecipientResponse{Recipient: rcpt, Accepted: ok, Code: code, Message: msg})
		if ok {
			stillAccepted = append(stillAccepted, rcpt)
		} else {
			env.Rejected = append(env.Rejected, rcpt)
			env.RejectedErrors[rcpt] = responseError(classifyResponseCode("DATA", code), "DATA", code, msg)
		}
	}
	env.Accepted = stillAccepted
	return results, nil
}
