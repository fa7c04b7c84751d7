package webhooks

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// EndpointChecker validates a webhook URL before any outbound request.
type EndpointChecker interface {
	CheckEndpoint(ctx context.Context, rawURL string) error
}

// EgressPolicy blocks outbound requests to internal infrastructure. Endpoints
// are registrant-supplied, so every delivery re-validates: the scheme must be
// https, and the host must not be (or resolve to) a loopback, link-local,
// private, or otherwise reserved address, nor match the hostname denylist.
type EgressPolicy struct {
	// LookupIP resolves a hostname. Defaults to net.DefaultResolver.
	LookupIP func(ctx context.Context, host string) ([]net.IP, error)
}

// Hostnames and suffixes that never receive deliveries regardless of what
// they resolve to.
var deniedHosts = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
	"metadata":                 true,
}

var deniedSuffixes = []string{".localhost", ".internal", ".local", ".localdomain"}

func (p *EgressPolicy) CheckEndpoint(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}

	if u.Scheme != "https" {
		return fmt.Errorf("webhook url must use https, got %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("webhook url has no host")
	}

	if deniedHosts[host] {
		return fmt.Errorf("webhook host %q is not allowed", host)
	}
	for _, suffix := range deniedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return fmt.Errorf("webhook host %q is not allowed", host)
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		if blockedIP(ip) {
			return fmt.Errorf("webhook host %s is a reserved address", ip)
		}
		return nil
	}

	lookup := p.LookupIP
	if lookup == nil {
		lookup = defaultLookupIP
	}
	ips, err := lookup(ctx, host)
	if err != nil {
		return fmt.Errorf("resolving webhook host %q: %w", host, err)
	}
	for _, ip := range ips {
		if blockedIP(ip) {
			return fmt.Errorf("webhook host %q resolves to reserved address %s", host, ip)
		}
	}

	return nil
}

func defaultLookupIP(ctx context.Context, host string) ([]net.IP, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	ips := make([]net.IP, len(addrs))
	for i, a := range addrs {
		ips[i] = a.IP
	}
	return ips, nil
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}
