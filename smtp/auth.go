package smtp

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Credentials selects and parameterises a SASL mechanism.
type Credentials struct {
	Method   string // explicit mechanism name, or "" to auto-select
	Username string
	Password string

	// OAuth2Token, if set, selects XOAUTH2 unless Method overrides it.
	OAuth2Token string

	// Custom, if set, is invoked instead of a built-in mechanism.
	Custom AuthHandler
}

// AuthHandler lets a caller implement an arbitrary SASL exchange: send
// issues a line and returns the server's parsed continuation.
type AuthHandler func(send func(line string) (AuthResponse, error)) error

// AuthResponse is one parsed continuation line from the server during an
// AUTH exchange.
type AuthResponse struct {
	Status int
	Code   string
	Text   string
}

// Authenticate runs the SASL exchange chosen per creds and the server's
// advertised mechanism list: an explicit Method wins, else XOAUTH2 when
// only an OAuth2Token was given, else the first server-advertised
// mechanism, else PLAIN.
func (c *Client) Authenticate(creds Credentials) error {
	method := strings.ToUpper(creds.Method)
	if method == "" {
		switch {
		case creds.OAuth2Token != "" && creds.Custom == nil:
			method = "XOAUTH2"
		case len(c.authMechs) > 0:
			method = strings.ToUpper(c.authMechs[0])
		default:
			method = "PLAIN"
		}
	}

	var err error
	switch method {
	case "PLAIN":
		err = c.authPlain(creds.Username, creds.Password)
	case "LOGIN":
		err = c.authLogin(creds.Username, creds.Password)
	case "CRAM-MD5":
		err = c.authCRAMMD5(creds.Username, creds.Password)
	case "XOAUTH2":
		err = c.authXOAUTH2(creds.Username, creds.OAuth2Token)
	default:
		if creds.Custom != nil {
			err = creds.Custom(c.authSend)
		} else {
			err = newError(EAUTH, "AUTH", fmt.Errorf("unsupported mechanism %q", method))
		}
	}
	if err != nil {
		return err
	}
	c.stage = StageAuthenticated
	return nil
}

func (c *Client) authSend(line string) (AuthResponse, error) {
	code, msg, err := c.cmd("AUTH", EAUTH, "%s", line)
	if err != nil {
		return AuthResponse{}, err
	}
	resp := AuthResponse{Status: code, Text: msg}
	if i := strings.IndexByte(msg, ' '); i > 0 && strings.Count(msg[:i], ".") == 2 {
		resp.Code, resp.Text = msg[:i], msg[i+1:]
	}
	return resp, nil
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func (c *Client) authPlain(user, pass string) error {
	payload := "\x00" + user + "\x00" + pass
	code, msg, err := c.cmd("AUTH", EAUTH, "AUTH PLAIN %s", b64(payload))
	if err != nil {
		return err
	}
	return authCompletion(code, msg)
}

func (c *Client) authLogin(user, pass string) error {
	code, msg, err := c.cmd("AUTH", EAUTH, "AUTH LOGIN %s", b64(user))
	if err != nil {
		return err
	}
	if code != 334 {
		return responseError(EAUTH, "AUTH", code, msg)
	}
	code, msg, err = c.cmd("AUTH", EAUTH, "%s", b64(pass))
	if err != nil {
		return err
	}
	return authCompletion(code, msg)
}

func (c *Client) authCRAMMD5(user, pass string) error {
	code, msg, err := c.cmd("AUTH", EAUTH, "AUTH CRAM-MD5")
	if err != nil {
		return err
	}
	if code != 334 {
		return responseError(EAUTH, "AUTH", code, msg)
	}
	challenge, decErr := base64.StdEncoding.DecodeString(msg)
	if decErr != nil {
		return newError(EAUTH, "AUTH", decErr)
	}
	mac := hmac.New(md5.New, []byte(pass))
	mac.Write(challenge)
	digest := hex.EncodeToString(mac.Sum(nil))

	code, msg, err = c.cmd("AUTH", EAUTH, "%s", b64(user+" "+digest))
	if err != nil {
		return err
	}
	return authCompletion(code, msg)
}

func (c *Client) authXOAUTH2(user, token string) error {
	payload := fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", user, token)
	code, msg, err := c.cmd("AUTH", EAUTH, "AUTH XOAUTH2 %s", b64(payload))
	if err != nil {
		return err
	}
	if code == 334 {
		// Server rejected the token and is asking for an empty response to
		// terminate the exchange cleanly; callers that can refresh the
		// token should retry Authenticate with a new one.
		code, msg, err = c.cmd("AUTH", EAUTH, "")
		if err != nil {
			return err
		}
	}
	return authCompletion(code, msg)
}

func authCompletion(code int, msg string) error {
	if code/100 == 2 {
		return nil
	}
	return responseError(EAUTH, "AUTH", code, msg)
}
