package mailer

import (
	"context"
	"net"
)

// GetSocketFunc is the proxy-binding contract: given a target host/port,
// produce a connected duplex byte stream or an error. An HTTP CONNECT or
// SOCKS4/4a/5 resolver is an external collaborator; this package defines
// only the function type a caller's resolver must satisfy and implements
// neither proxy protocol itself. Nothing in the package calls a
// GetSocketFunc or passes its connection to smtp.Options.Socket; a caller
// that dials through a proxy sets smtp.Options.Socket itself.
type GetSocketFunc func(ctx context.Context, network, address string) (net.Conn, error)
