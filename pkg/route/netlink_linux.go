//go:build linux

package route

import (
	"context"
	"fmt"
	"net"

	"github.com/containernetworking/plugins/pkg/ns"
	"github.com/vishvananda/netlink"

	"nind/api"
	"nind/pkg/iface"
)

// NetlinkInstaller adds the route with netlink from the host, inside the
// container's network namespace.
type NetlinkInstaller struct{}

func NewNetlinkInstaller() *NetlinkInstaller {
	return &NetlinkInstaller{}
}

func (i *NetlinkInstaller) Install(_ context.Context, c *api.Container, r Route) error {
	r, err := r.Validate()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", api.ErrRouteInstall, c.Name, err)
	}
	_, dst, err := net.ParseCIDR(r.Dst)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", api.ErrRouteInstall, c.Name, err)
	}

	err = iface.DoInNetns(c, func(_ ns.NetNS) error {
		link, err := netlink.LinkByName(r.Device)
		if err != nil {
			return fmt.Errorf("failed to get link by name %s: %w", r.Device, err)
		}
		return netlink.RouteAdd(&netlink.Route{
			LinkIndex: link.Attrs().Index,
			Dst:       dst,
			Gw:        net.ParseIP(r.Gateway),
		})
	})
	if err != nil {
		return fmt.Errorf("%w: %s in %s: %w", api.ErrRouteInstall, r, c.Name, err)
	}
	return nil
}
