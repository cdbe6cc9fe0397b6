// Package security validates crawl targets before kura fetches them.
//
// The URL validator prevents SSRF (Server-Side Request Forgery): a crawl
// root or discovered link must not lead the crawler into private
// networks, loopback interfaces, or cloud metadata endpoints.
package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// URL validates URLs before the crawler fetches them.
//
// Blocked targets:
//   - Private IP ranges (RFC 1918): 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16
//   - Loopback: 127.0.0.0/8, ::1
//   - Link-local: 169.254.0.0/16, fe80::/10
//   - Cloud metadata: 169.254.169.254
//   - Known dangerous hostnames: localhost, metadata.google.internal
type URL struct {
	allowedSchemes map[string]struct{}
	blockedHosts   map[string]struct{}
}

// NewURL creates a URL validator with default settings.
func NewURL() *URL {
	return &URL{
		allowedSchemes: map[string]struct{}{
			"http":  {},
			"https": {},
		},
		blockedHosts: map[string]struct{}{
			"localhost":                {},
			"metadata.google.internal": {},
			"metadata.gce.internal":    {},
			"metadata.internal":        {},
		},
	}
}

// Validate checks if a URL is safe to fetch.
//
// This performs static validation only. For protection against DNS
// rebinding, fetch through SafeTransport as well.
func (v *URL) Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if _, ok := v.allowedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return fmt.Errorf("unsupported scheme: %s (allowed: http, https)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty hostname")
	}

	return v.validateHost(host)
}

func (v *URL) validateHost(host string) error {
	if _, blocked := v.blockedHosts[strings.ToLower(host)]; blocked {
		return fmt.Errorf("blocked host: %s", host)
	}

	if ip := net.ParseIP(host); ip != nil {
		return v.checkIP(ip)
	}

	// Hostname, not an IP. The resolved addresses are checked by
	// SafeTransport at dial time.
	return nil
}

// checkIP validates that an IP address is not in a blocked range.
func (v *URL) checkIP(ip net.IP) error {
	// Normalize IPv6-mapped IPv4 addresses (::ffff:127.0.0.1 -> 127.0.0.1)
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}

	if ip.IsLoopback() {
		return fmt.Errorf("loopback address not allowed: %s", ip)
	}
	if ip.IsPrivate() {
		return fmt.Errorf("private IP not allowed: %s", ip)
	}
	if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
		return fmt.Errorf("link-local address not allowed: %s", ip)
	}
	if ip.IsUnspecified() {
		return fmt.Errorf("unspecified address not allowed: %s", ip)
	}
	// Link-local already covers this, but the metadata endpoint is the
	// single most valuable SSRF target, so it gets its own message.
	if ip.String() == "169.254.169.254" {
		return fmt.Errorf("cloud metadata endpoint blocked: %s", ip)
	}

	return nil
}

// SafeTransport returns an http.Transport that validates IP addresses
// during DNS resolution, which closes the DNS-rebinding gap Validate
// alone leaves open.
func (v *URL) SafeTransport() *http.Transport {
	return &http.Transport{
		DialContext:         v.safeDialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// safeDialContext validates resolved IPs before connecting.
func (v *URL) safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	if ip := net.ParseIP(host); ip != nil {
		if err := v.checkIP(ip); err != nil {
			return nil, fmt.Errorf("SSRF blocked: %w", err)
		}
		return (&net.Dialer{}).DialContext(ctx, network, addr)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed: %w", err)
	}
	for _, ip := range ips {
		if err := v.checkIP(ip); err != nil {
			return nil, fmt.Errorf("SSRF blocked (resolved %s -> %s): %w", host, ip, err)
		}
	}

	return (&net.Dialer{}).DialContext(ctx, network, addr)
}
