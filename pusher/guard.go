package pusher

import (
	"context"
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/kbukum/broadband/errors"
)

// DefaultDeniedCIDRs are address ranges a pusher URL may never point at:
// unspecified, loopback, private, shared, link-local, documentation,
// benchmarking, multicast and reserved space.
var DefaultDeniedCIDRs = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.0.0.0/24",
	"192.0.2.0/24",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"198.51.100.0/24",
	"203.0.113.0/24",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"::/128",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
	"2001:db8::/32",
	"ff00::/8",
}

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Guard rejects pusher URLs that are not plain http(s) or that target a
// denied address range.
type Guard struct {
	denied   []netip.Prefix
	resolver Resolver
}

// NewGuard parses cidrs into a guard. A nil resolver disables CheckResolved.
func NewGuard(cidrs []string, resolver Resolver) (*Guard, error) {
	denied := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(strings.TrimSpace(c))
		if err != nil {
			return nil, errors.InvalidParam("denied_cidrs", fmt.Sprintf("%q is not a CIDR prefix", c)).WithCause(err)
		}
		denied = append(denied, p.Masked())
	}
	return &Guard{denied: denied, resolver: resolver}, nil
}

// CheckURL parses raw and returns it with an IDNA-normalised host. It fails
// with INVALID_PARAM when raw is not an absolute http or https URL and with
// FORBIDDEN_ADDRESS when the host is a literal IP inside a denied range.
// Host names are not resolved.
func (g *Guard) CheckURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.InvalidParam("url", "not a valid URL").WithCause(err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, errors.InvalidParam("url", "not an http or https URL").WithDetail("url", raw)
	}

	host := u.Hostname()
	if host == "" {
		return nil, errors.InvalidParam("url", "missing host").WithDetail("url", raw)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if g.Denied(addr) {
			return nil, errors.ForbiddenAddress(host)
		}
		return u, nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return nil, errors.InvalidParam("url", "host is not a valid domain name").WithCause(err)
	}
	if ascii != host {
		if port := u.Port(); port != "" {
			u.Host = ascii + ":" + port
		} else {
			u.Host = ascii
		}
	}
	return u, nil
}

// CheckResolved resolves the host of u and fails with FORBIDDEN_ADDRESS if
// any of its addresses is denied.
func (g *Guard) CheckResolved(ctx context.Context, u *url.URL) error {
	host := u.Hostname()
	if _, err := netip.ParseAddr(host); err == nil || g.resolver == nil {
		return nil
	}
	addrs, err := g.resolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return errors.ConnectionFailed(host, err)
	}
	for _, addr := range addrs {
		if g.Denied(addr) {
			return errors.ForbiddenAddress(host).WithDetail("address", addr.String())
		}
	}
	return nil
}

// Denied reports whether addr lies in a denied range. IPv4-mapped IPv6
// addresses are checked as IPv4.
func (g *Guard) Denied(addr netip.Addr) bool {
	addr = addr.Unmap().WithZone("")
	for _, p := range g.denied {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
