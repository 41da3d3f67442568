package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Options is the flattened result of parsing a connection URL: the
// scheme selects Secure/Direct, user:pass becomes Username/Password,
// and query keys become either top-level Extra entries or, for a
// "tls.<key>" key, an entry in TLS.
type Options struct {
	Host     string
	Port     int
	Secure   bool // smtps:// (implicit TLS)
	Direct   bool // direct:// (connect straight to the given host, no relay semantics implied)
	Username string
	Password string

	// Extra holds every other top-level query key, value-converted per
	// the true/false/numeric rules below.
	Extra map[string]interface{}
	// TLS holds every "tls.<key>" query key, same value conversion, with
	// the "tls." prefix stripped.
	TLS map[string]interface{}
}

// ParseURL parses a connection URL of the form
// "scheme://[user[:pass]@]host[:port][/?query]" into Options.
// Supported schemes are "smtp" (Secure=false), "smtps" (Secure=true),
// and "direct".
func ParseURL(raw string) (Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Options{}, fmt.Errorf("transport: parse connection URL: %w", err)
	}

	opts := Options{
		Host:  u.Hostname(),
		Extra: map[string]interface{}{},
		TLS:   map[string]interface{}{},
	}
	switch strings.ToLower(u.Scheme) {
	case "smtp":
		opts.Secure = false
	case "smtps":
		opts.Secure = true
	case "direct":
		opts.Direct = true
	case "":
		return Options{}, fmt.Errorf("transport: connection URL missing scheme")
	default:
		return Options{}, fmt.Errorf("transport: unsupported connection URL scheme %q", u.Scheme)
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Options{}, fmt.Errorf("transport: invalid port %q: %w", p, err)
		}
		opts.Port = port
	}

	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}

	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		v := coerceQueryValue(values[0])
		if strings.HasPrefix(key, "tls.") {
			opts.TLS[strings.TrimPrefix(key, "tls.")] = v
			continue
		}
		opts.Extra[key] = v
	}

	return opts, nil
}

// coerceQueryValue maps "true"/"false" to booleans and numeric strings
// to numbers, leaving everything else a string.
func coerceQueryValue(s string) interface{} {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n
	}
	return s
}
