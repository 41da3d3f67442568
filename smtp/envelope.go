package smtp

import (
	"fmt"
	"strconv"
	"strings"
)

// Envelope describes one send attempt's outcome, populated by RcptTo and,
// for LMTP, updated by Data.
type Envelope struct {
	From           string
	Accepted       []string
	Rejected       []string
	RejectedErrors map[string]error
}

// SendOptions carries the extension parameters available to MAIL FROM.
type SendOptions struct {
	SMTPUTF8    bool
	Use8BitMime bool
	Size        int
	DSNRet      string // "FULL" or "HDRS"
	DSNEnvID    string
	DSNNotify   []string // per-recipient NOTIFY= values applied to every RCPT
}

// validateAddress rejects envelope addresses containing characters that
// would break out of the MAIL FROM/RCPT TO command line.
func validateAddress(addr string) error {
	if strings.ContainsAny(addr, "\r\n<>") {
		return responseError(EENVELOPE, "ENVELOPE", 0, "invalid address: "+addr)
	}
	return nil
}

// MailFrom issues MAIL FROM with whichever extension parameters the
// server advertised and the caller requested.
func (c *Client) MailFrom(from string, opts SendOptions) error {
	if err := validateAddress(from); err != nil {
		return err
	}
	// A message known to exceed the advertised SIZE limit fails here,
	// before any envelope or DATA bytes reach the wire.
	if opts.Size > 0 && c.maxSize > 0 && opts.Size > c.maxSize {
		return responseError(EMESSAGE, "MAIL", 0,
			fmt.Sprintf("message size %d exceeds server limit %d", opts.Size, c.maxSize))
	}
	var params []string
	if opts.SMTPUTF8 && c.hasExt("SMTPUTF8") && containsNonASCII(from) {
		params = append(params, "SMTPUTF8")
	}
	if opts.Use8BitMime && c.hasExt("8BITMIME") {
		params = append(params, "BODY=8BITMIME")
	}
	if opts.Size > 0 && c.hasExt("SIZE") {
		params = append(params, "SIZE="+strconv.Itoa(opts.Size))
	}
	if c.hasExt("DSN") {
		if opts.DSNRet != "" {
			params = append(params, "RET="+opts.DSNRet)
		}
		if opts.DSNEnvID != "" {
			params = append(params, "ENVID="+xtextEncode(opts.DSNEnvID))
		}
	}

	line := "MAIL FROM:<" + from + ">"
	if len(params) > 0 {
		line += " " + strings.Join(params, " ")
	}
	code, msg, err := c.cmd("MAIL", EENVELOPE, "%s", line)
	if err != nil {
		return err
	}
	if code/100 != 2 {
		return responseError(classifyResponseCode("MAIL", code), "MAIL", code, msg)
	}
	return nil
}

// RcptTo sends RCPT TO for every recipient, pipelining all of them
// back-to-back when PIPELINING is advertised; otherwise sending and
// awaiting each in turn. Per-recipient acceptance populates the returned
// Envelope; if every recipient is rejected, Envelope is still returned but
// callers should treat an empty Accepted list as a failed send.
func (c *Client) RcptTo(recipients []string, opts SendOptions) (*Envelope, error) {
	env := &Envelope{RejectedErrors: map[string]error{}}
	for _, r := range recipients {
		if err := validateAddress(r); err != nil {
			return nil, err
		}
	}

	notify := ""
	if len(opts.DSNNotify) > 0 && c.hasExt("DSN") {
		notify = " NOTIFY=" + strings.Join(opts.DSNNotify, ",")
	}

	if c.hasExt("PIPELINING") {
		ids := make([]uint, len(recipients))
		var err error
		for i, r := range recipients {
			ids[i], err = c.writeLine("RCPT TO:<%s>%s", r, notify)
			if err != nil {
				return nil, newError(EENVELOPE, "RCPT", err)
			}
		}
		for i, r := range recipients {
			code, msg, rerr := c.readPipelined(ids[i], "RCPT", EENVELOPE)
			if rerr != nil {
				return nil, rerr
			}
			recordRcptResult(env, r, code, msg)
		}
	} else {
		for _, r := range recipients {
			code, msg, err := c.cmd("RCPT", EENVELOPE, "RCPT TO:<%s>%s", r, notify)
			if err != nil {
				return nil, err
			}
			recordRcptResult(env, r, code, msg)
		}
	}

	if len(env.Accepted) == 0 {
		return env, responseError(EENVELOPE, "RCPT", 0, "all recipients rejected")
	}
	return env, nil
}

func recordRcptResult(env *Envelope, recipient string, code int, msg string) {
	if code/100 == 2 {
		env.Accepted = append(env.Accepted, recipient)
		return
	}
	env.Rejected = append(env.Rejected, recipient)
	env.RejectedErrors[recipient] = responseError(classifyResponseCode("RCPT", code), "RCPT", code, msg)
}

func containsNonASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	return false
}

// xtextEncode applies the minimal xtext encoding RFC 3461 requires for
// ENVID: '+', '=', and control/non-ASCII bytes become "+HH".
func xtextEncode(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '+' || c == '=' || c < '!' || c > '~' {
			b.WriteByte('+')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0xF])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
