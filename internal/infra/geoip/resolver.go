// Package geoip maps client addresses to ISO country codes for locale detection.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/oschwald/geoip2-golang"
)

// ErrUnavailable is returned when no database is loaded.
var ErrUnavailable = errors.New("geoip resolver unavailable")

// Country looks up MaxMind country records.
type Country struct {
	reader *geoip2.Reader
}

// Open loads the database at path. An empty path disables lookups and
// returns a nil *Country, which is safe to call.
func Open(path string) (*Country, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	return &Country{reader: reader}, nil
}

// CountryCode returns the upper-case ISO code for addr, which may carry a
// port. Loopback, private and link-local addresses resolve to "" with no
// error so callers fall back to other hints.
func (c *Country) CountryCode(addr string) (string, error) {
	ip, err := ParseAddr(addr)
	if err != nil {
		return "", err
	}
	if !Public(ip) {
		return "", nil
	}
	if c == nil || c.reader == nil {
		return "", ErrUnavailable
	}
	record, err := c.reader.Country(net.IP(ip.AsSlice()))
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	if record == nil {
		return "", nil
	}
	return strings.ToUpper(record.Country.IsoCode), nil
}

// Close releases the database.
func (c *Country) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// ParseAddr accepts "ip", "ip:port" and "[ipv6]:port".
func ParseAddr(addr string) (netip.Addr, error) {
	addr = strings.TrimSpace(addr)
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().Unmap(), nil
	}
	ip, err := netip.ParseAddr(strings.Trim(addr, "[]"))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("geoip: invalid ip %q", addr)
	}
	return ip.Unmap(), nil
}

// Public reports whether ip is worth a database lookup.
func Public(ip netip.Addr) bool {
	return ip.IsValid() &&
		!ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsUnspecified() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsMulticast()
}
