package util

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
)

const StunScheme = "stun://"

// NormalizeStun turns "host", "host:port" or "stun://host[:port]" into
// "stun://host:port". Applying it twice yields the same string.
func NormalizeStun(addr string, defaultPort int) (string, error) {
	rest := strings.TrimPrefix(strings.TrimSpace(addr), StunScheme)
	if rest == "" {
		return "", fmt.Errorf("empty stun server address %q", addr)
	}
	if strings.Contains(rest, "://") {
		return "", fmt.Errorf("unsupported scheme in stun server address %q", addr)
	}

	host, port, err := net.SplitHostPort(rest)
	if err != nil {
		// no port: a bare host, or an IPv6 literal with or without brackets
		host, port = strings.Trim(rest, "[]"), ""
		if strings.Contains(host, ":") {
			if _, err := netip.ParseAddr(host); err != nil {
				return "", fmt.Errorf("invalid stun server address %q", addr)
			}
		}
	}
	if port == "" {
		port = strconv.Itoa(defaultPort)
	}
	if host == "" {
		return "", fmt.Errorf("missing host in stun server address %q", addr)
	}
	if !validHost(host) {
		return "", fmt.Errorf("invalid host in stun server address %q", addr)
	}
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return "", fmt.Errorf("invalid port in stun server address %q", addr)
	}
	return StunScheme + net.JoinHostPort(host, port), nil
}

// validHost accepts IP literals and DNS names.
func validHost(host string) bool {
	if _, err := netip.ParseAddr(host); err == nil {
		return true
	}
	if len(host) > 253 {
		return false
	}
	for _, r := range host {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '.', r == '_':
		default:
			return false
		}
	}
	return true
}
