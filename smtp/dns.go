package smtp

import (
	"context"
	"net"
	"sync"
	"time"
)

// hostCacheTTL is the staleness window for resolved host addresses.
const hostCacheTTL = 5 * time.Minute

type hostCacheEntry struct {
	ips     []net.IP
	expires time.Time
}

// Resolver resolves a configured transport host to a connectable IP,
// caching results for hostCacheTTL with a stale-on-failure fallback. MX
// lookups for direct delivery are out of scope; this only resolves the
// A/AAAA records of an already-chosen host.
type Resolver struct {
	mu    sync.Mutex
	cache map[string]hostCacheEntry
	res   *net.Resolver
}

// NewResolver returns a Resolver using net's default resolver unless r is
// supplied (tests can inject a net.Resolver pointed at a fake server).
func NewResolver(r *net.Resolver) *Resolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &Resolver{cache: map[string]hostCacheEntry{}, res: r}
}

// Resolve returns host's IPs, trying A then AAAA, preferring a fresh cache
// hit. A host that is already a literal IP is returned unchanged. DNS
// errors that mean "no record" (NXDOMAIN-equivalent) or are temporary are
// non-fatal and yield no addresses and a nil error; anything else is
// wrapped as EDNS.
func (r *Resolver) Resolve(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}

	r.mu.Lock()
	entry, ok := r.cache[host]
	r.mu.Unlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.ips, nil
	}

	ips, err := r.res.LookupIP(ctx, "ip", host)
	if err != nil {
		if ok {
			// Stale-fallback: prefer an outdated-but-known-good answer over
			// a hard failure on a transient DNS blip.
			return entry.ips, nil
		}
		if isNoDataDNSError(err) {
			return nil, nil
		}
		return nil, newError(EDNS, "DNS", err)
	}

	r.mu.Lock()
	r.cache[host] = hostCacheEntry{ips: ips, expires: time.Now().Add(hostCacheTTL)}
	r.mu.Unlock()
	return ips, nil
}

func isNoDataDNSError(err error) bool {
	dnsErr, ok := err.(*net.DNSError)
	if !ok {
		return false
	}
	return dnsErr.IsNotFound || dnsErr.IsTemporary
}
