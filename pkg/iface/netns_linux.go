//go:build linux

package iface

import (
	"context"
	"fmt"
	"strings"

	"github.com/containernetworking/plugins/pkg/ns"
	"github.com/vishvananda/netlink"

	"nind/api"
	"nind/pkg/util"
)

// NetnsPath is the network namespace of a running container's init process.
func NetnsPath(pid int) string {
	return fmt.Sprintf("/proc/%d/ns/net", pid)
}

// DoInNetns runs fn inside the network namespace of c.
func DoInNetns(c *api.Container, fn func(ns.NetNS) error) error {
	if !c.Running || c.Pid == 0 {
		return fmt.Errorf("container %s is not running", c.Name)
	}
	containerNs, err := ns.GetNS(NetnsPath(c.Pid))
	if err != nil {
		return fmt.Errorf("failed to get namespace for container %s: %w", c.Name, err)
	}
	defer containerNs.Close()
	return containerNs.Do(fn)
}

// NetnsResolver reads links with netlink from the container's namespace.
// Needs root on the engine host.
type NetnsResolver struct{}

func NewNetnsResolver() *NetnsResolver {
	return &NetnsResolver{}
}

func (r *NetnsResolver) Resolve(_ context.Context, c *api.Container, mac string) (string, error) {
	want, err := util.NormalizeMAC(mac)
	if err != nil {
		return "", fmt.Errorf("interface for mac %q in %s: %w: %v", mac, c.Name, api.ErrNotFound, err)
	}

	var found string
	err = DoInNetns(c, func(_ ns.NetNS) error {
		links, err := netlink.LinkList()
		if err != nil {
			return fmt.Errorf("failed to list links: %w", err)
		}
		found = matchLink(links, want)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("resolve interface in %s: %w", c.Name, err)
	}
	if found == "" {
		return "", fmt.Errorf("interface for mac %s in %s: %w", want, c.Name, api.ErrNotFound)
	}
	return found, nil
}

func matchLink(links []netlink.Link, mac string) string {
	for _, l := range links {
		attrs := l.Attrs()
		if attrs == nil || attrs.HardwareAddr == nil {
			continue
		}
		if strings.EqualFold(attrs.HardwareAddr.String(), mac) {
			return TrimLinkSuffix(attrs.Name)
		}
	}
	return ""
}
