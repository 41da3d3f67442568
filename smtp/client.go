package smtp

import (
	"context"
	"crypto/tls"
	"net"
	"net/textproto"
	"os"
	"strconv"
	"time"
)

// Stage is the SmtpSession lifecycle position.
type Stage int

const (
	StageInit Stage = iota
	StageConnected
	StageGreeted
	StageAuthenticated
	StageIdle
	StageSending
	StageClosing
)

// Options configures a single SMTP/LMTP connection attempt.
type Options struct {
	Host string
	Port int

	Secure        bool // implicit TLS from connect
	RequireTLS    bool
	IgnoreTLS     bool
	TLSConfig     *tls.Config
	Opportunistic bool // continue unencrypted if STARTTLS upgrade fails

	LocalAddress string
	Socket       net.Conn // pre-created duplex, e.g. from a proxy dialer

	ConnectionTimeout time.Duration
	GreetingTimeout   time.Duration
	SocketTimeout     time.Duration
	DNSTimeout        time.Duration

	Name string // HELO/EHLO identity; defaults to a FQDN or "[ip]"
	LMTP bool

	AllowInternalNetworkInterfaces bool

	Resolver *Resolver
}

// Client is a single SMTP/LMTP session over one duplex connection.
type Client struct {
	opts Options
	conn net.Conn
	text *textproto.Conn

	stage Stage
	lmtp  bool
	tlsOn bool

	ext       map[string]string
	authMechs []string
	maxSize   int
}

func newTextConn(conn net.Conn) *textproto.Conn { return textproto.NewConn(conn) }

func defaultName() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "localhost"
}

// Dial connects to opts.Host:opts.Port (or adopts opts.Socket), performs
// DNS resolution if needed, completes the greeting, and negotiates
// capabilities via EHLO/HELO, returning a Client in StageGreeted (or
// StageAuthenticated is reached separately via Authenticate).
func Dial(ctx context.Context, opts Options) (*Client, error) {
	c := &Client{opts: opts, lmtp: opts.LMTP, ext: map[string]string{}}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.stage = StageConnected

	if opts.SocketTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(opts.SocketTimeout))
	}
	c.text = textproto.NewConn(conn)

	if err := c.readGreeting(); err != nil {
		c.conn.Close()
		return nil, err
	}
	c.stage = StageGreeted

	name := opts.Name
	if name == "" {
		name = defaultName()
	}
	if err := c.ehloOrHelo(name); err != nil {
		c.conn.Close()
		return nil, err
	}

	if err := c.maybeStartTLS(name); err != nil {
		c.conn.Close()
		return nil, err
	}

	return c, nil
}

func (c *Client) connect(ctx context.Context) (net.Conn, error) {
	if c.opts.Socket != nil {
		conn := c.opts.Socket
		if c.opts.Secure {
			return c.upgradeTLS(conn, c.opts.Host)
		}
		return conn, nil
	}

	host := c.opts.Host
	addr := net.JoinHostPort(host, strconv.Itoa(c.opts.Port))

	if ip := net.ParseIP(host); ip == nil {
		resolver := c.opts.Resolver
		if resolver == nil {
			resolver = NewResolver(nil)
		}
		dnsCtx := ctx
		var cancel context.CancelFunc
		if c.opts.DNSTimeout > 0 {
			dnsCtx, cancel = context.WithTimeout(ctx, c.opts.DNSTimeout)
			defer cancel()
		}
		ips, err := resolver.Resolve(dnsCtx, host)
		if err != nil {
			return nil, err
		}
		if len(ips) > 0 {
			addr = net.JoinHostPort(ips[0].String(), strconv.Itoa(c.opts.Port))
		}
	}

	dialer := net.Dialer{Timeout: c.opts.ConnectionTimeout}
	if c.opts.LocalAddress != "" {
		if lip := net.ParseIP(c.opts.LocalAddress); lip != nil {
			dialer.LocalAddr = &net.TCPAddr{IP: lip}
		}
	}

	dialCtx := ctx
	if c.opts.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.opts.ConnectionTimeout)
		defer cancel()
	}

	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, newError(ECONNECTION, "CONNECT", err)
	}
	if c.opts.Secure {
		return c.upgradeTLS(conn, host)
	}
	return conn, nil
}

func (c *Client) upgradeTLS(conn net.Conn, host string) (net.Conn, error) {
	cfg := c.opts.TLSConfig
	if cfg == nil {
		cfg = &tls.Config{ServerName: host}
	} else if cfg.ServerName == "" {
		clone := cfg.Clone()
		clone.ServerName = host
		cfg = clone
	}
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(context.Background()); err != nil {
		conn.Close()
		return nil, newError(ETLS, "TLS", err)
	}
	c.tlsOn = true
	return tlsConn, nil
}

func (c *Client) readGreeting() error {
	if c.opts.GreetingTimeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.GreetingTimeout))
	}
	code, msg, err := c.text.ReadResponse(220)
	if err != nil {
		return responseOrProtocolError("GREETING", code, msg, err)
	}
	return nil
}

func responseOrProtocolError(cmd string, code int, msg string, err error) error {
	if code > 0 {
		return responseError(classifyResponseCode(cmd, code), cmd, code, msg)
	}
	return newError(EPROTOCOL, cmd, err)
}

// Stage returns the session's current lifecycle stage.
func (c *Client) Stage() Stage { return c.stage }

// TLS reports whether the underlying connection is encrypted.
func (c *Client) TLS() bool { return c.tlsOn }

// Extensions returns the set of advertised EHLO capability keywords.
func (c *Client) Extensions() map[string]string { return c.ext }

// MaxAllowedSize returns the server's advertised SIZE limit in bytes, or
// 0 when the server did not advertise one.
func (c *Client) MaxAllowedSize() int { return c.maxSize }

// AuthMechanisms returns the advertised AUTH mechanism list, in the order
// the server sent them.
func (c *Client) AuthMechanisms() []string { return c.authMechs }

// cmd sends a single command line and reads back one response. A read/
// write failure is reported as errCode; a parsed non-2xx/3xx reply is
// returned as (code, msg, nil) for the caller to classify, since the same
// reply code means different things for different commands (e.g. a 550 on
// RCPT is per-recipient, not fatal).
func (c *Client) cmd(command string, errCode Code, format string, args ...interface{}) (int, string, error) {
	id, err := c.text.Cmd(format, args...)
	if err != nil {
		return 0, "", newError(errCode, command, err)
	}
	return c.readPipelined(id, command, errCode)
}

// writeLine issues a raw command line without waiting for a response, used
// to pipeline MAIL/RCPT when the server advertises PIPELINING. Pair it
// with readPipelined in the same send order: textproto.Pipeline (embedded
// in textproto.Conn) guarantees request/response ordering over one
// connection.
func (c *Client) writeLine(format string, args ...interface{}) (uint, error) {
	return c.text.Cmd(format, args...)
}

func (c *Client) readPipelined(id uint, command string, errCode Code) (int, string, error) {
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)
	code, msg, err := c.text.ReadResponse(0)
	if err != nil {
		if tpErr, ok := err.(*textproto.Error); ok {
			return tpErr.Code, tpErr.Msg, nil
		}
		return 0, "", newError(errCode, command, err)
	}
	return code, msg, nil
}

// Quit sends QUIT and closes the connection. Close is idempotent.
func (c *Client) Quit() error {
	if c.stage == StageClosing {
		return nil
	}
	c.stage = StageClosing
	_, _, _ = c.cmd("QUIT", EPROTOCOL, "QUIT")
	return c.Close()
}

// Close tears down the underlying connection without sending QUIT.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Verify dials a fresh connection with opts (greeting, EHLO/HELO and
// STARTTLS as in Dial), issues QUIT, and reports whether the round trip
// succeeded. It does not authenticate; pool.Pool.Verify is the check that
// also runs AUTH with the pool's credentials.
func Verify(ctx context.Context, opts Options) error {
	c, err := Dial(ctx, opts)
	if err != nil {
		return err
	}
	return c.Quit()
}
