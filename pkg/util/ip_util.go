package util

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
)

// StripPrefix drops a /len suffix: "172.18.0.2/16" -> "172.18.0.2".
func StripPrefix(ip string) string {
	addr, _, _ := strings.Cut(ip, "/")
	return addr
}

// CheckIPv4 reports whether ip is an IPv4 address, optionally with a prefix length.
func CheckIPv4(ip string) bool {
	if strings.Contains(ip, "/") {
		p, err := netip.ParsePrefix(ip)
		return err == nil && p.Addr().Is4()
	}
	a, err := netip.ParseAddr(ip)
	return err == nil && a.Is4()
}

// ParseSubnet parses an IPv4 CIDR and returns it masked to its network address.
func ParseSubnet(cidr string) (*net.IPNet, error) {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CIDR %q: %w", cidr, err)
	}
	if ipNet.IP.To4() == nil {
		return nil, fmt.Errorf("only IPv4 subnets are supported, got %s", cidr)
	}
	return ipNet, nil
}

// NormalizeMAC returns mac in the lowercase colon separated form the engine reports.
func NormalizeMAC(mac string) (string, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return "", err
	}
	if len(hw) != 6 {
		return "", fmt.Errorf("not an ethernet address: %s", mac)
	}
	return hw.String(), nil
}
