package smtp

import (
	"strconv"
	"strings"
)

// ehloOrHelo sends EHLO (or LHLO for LMTP), parsing capability lines into
// c.ext and c.authMechs. If EHLO/LHLO fails outright, it falls back to
// HELO, unless RequireTLS is set, since a HELO response carries no
// capability list and STARTTLS could never be negotiated.
func (c *Client) ehloOrHelo(name string) error {
	verb := "EHLO"
	if c.lmtp {
		verb = "LHLO"
	}
	code, lines, err := c.multilineCmd(verb, name)
	if err != nil || code != 250 {
		if c.opts.RequireTLS {
			return responseError(EPROTOCOL, verb, code, strings.Join(lines, " "))
		}
		_, _, helloErr := c.cmd("HELO", EPROTOCOL, "HELO %s", name)
		if helloErr != nil {
			return helloErr
		}
		return nil
	}
	c.parseCapabilities(lines)
	return nil
}

// multilineCmd sends a command expecting a multi-line response ("250-" for
// every line but the last, "250 " for the last) and returns every line
// after the status code.
func (c *Client) multilineCmd(verb string, arg string) (int, []string, error) {
	id, err := c.text.Cmd("%s %s", verb, arg)
	if err != nil {
		return 0, nil, newError(EPROTOCOL, verb, err)
	}
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)
	code, msg, err := c.text.ReadResponse(0)
	if err != nil {
		return code, nil, nil
	}
	return code, strings.Split(msg, "\n"), nil
}

func (c *Client) parseCapabilities(lines []string) {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		key := strings.ToUpper(fields[0])
		switch key {
		case "AUTH":
			c.authMechs = append(c.authMechs, fields[1:]...)
			c.ext["AUTH"] = strings.Join(fields[1:], " ")
		case "SIZE":
			c.ext["SIZE"] = ""
			c.maxSize = 0
			if len(fields) > 1 {
				c.ext["SIZE"] = fields[1]
				if n, err := strconv.Atoi(fields[1]); err == nil {
					c.maxSize = n
				}
			}
		default:
			c.ext[key] = strings.Join(fields[1:], " ")
		}
	}
}

// hasExt reports whether the server advertised the named EHLO capability.
func (c *Client) hasExt(name string) bool {
	_, ok := c.ext[strings.ToUpper(name)]
	return ok
}

// maybeStartTLS upgrades the connection under STARTTLS when offered (or
// required), then re-issues EHLO per RFC 3207 (the post-upgrade session
// discards any pre-TLS capability advertisement).
func (c *Client) maybeStartTLS(name string) error {
	if c.tlsOn || c.opts.IgnoreTLS {
		return nil
	}
	offered := c.hasExt("STARTTLS")
	if !offered {
		if c.opts.RequireTLS {
			return newError(ETLS, "STARTTLS", nil)
		}
		return nil
	}

	code, msg, err := c.cmd("STARTTLS", ETLS, "STARTTLS")
	if err != nil {
		return err
	}
	if code/100 != 2 {
		if c.opts.RequireTLS {
			return responseError(ETLS, "STARTTLS", code, msg)
		}
		return nil
	}

	upgraded, err := c.upgradeTLS(c.conn, c.opts.Host)
	if err != nil {
		if c.opts.Opportunistic && !c.opts.RequireTLS {
			return nil
		}
		return err
	}
	c.conn = upgraded
	c.text = newTextConn(c.conn)
	c.ext = map[string]string{}
	c.authMechs = nil
	c.maxSize = 0
	return c.ehloOrHelo(name)
}
