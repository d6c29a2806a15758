//go:build linux

package nat

import (
	"context"
	"fmt"
	"net"

	"github.com/containernetworking/plugins/pkg/ns"
	"github.com/google/nftables"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"

	"nind/api"
	"nind/pkg/iface"
)

const (
	TableName = "nind"
	ChainName = "postrouting"
)

// NftablesInstaller programs the rule over netlink in the container's
// network namespace. It owns the "nind" table and flushes it first, so the
// table always holds exactly one rule.
type NftablesInstaller struct{}

func NewNftablesInstaller() *NftablesInstaller {
	return &NftablesInstaller{}
}

func (i *NftablesInstaller) Install(_ context.Context, c *api.Container, rule Rule) error {
	rule, err := rule.Validate()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", api.ErrRuleInstall, c.Name, err)
	}
	exprs, err := snatExprs(rule)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", api.ErrRuleInstall, c.Name, err)
	}

	err = iface.DoInNetns(c, func(target ns.NetNS) error {
		conn, err := nftables.New(nftables.WithNetNSFd(int(target.Fd())))
		if err != nil {
			return fmt.Errorf("failed to connect to nftables: %w", err)
		}

		table := conn.AddTable(&nftables.Table{
			Family: nftables.TableFamilyIPv4,
			Name:   TableName,
		})
		conn.FlushTable(table)

		chain := conn.AddChain(&nftables.Chain{
			Name:     ChainName,
			Table:    table,
			Type:     nftables.ChainTypeNAT,
			Hooknum:  nftables.ChainHookPostrouting,
			Priority: nftables.ChainPriorityNATSource,
		})
		conn.AddRule(&nftables.Rule{
			Table: table,
			Chain: chain,
			Exprs: exprs,
		})
		return conn.Flush()
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", api.ErrRuleInstall, c.Name, err)
	}
	return nil
}

// ifname pads an interface name to IFNAMSIZ for comparison with meta oifname.
func ifname(name string) []byte {
	b := make([]byte, unix.IFNAMSIZ)
	copy(b, name)
	return b
}

// snatExprs builds: ip saddr <subnet> oifname <iface> snat to <addr>
func snatExprs(r Rule) ([]expr.Any, error) {
	_, subnet, err := net.ParseCIDR(r.Subnet)
	if err != nil {
		return nil, err
	}
	to := net.ParseIP(r.ToSource).To4()
	if to == nil {
		return nil, fmt.Errorf("invalid source address %q", r.ToSource)
	}
	if len(r.OutInterface) >= unix.IFNAMSIZ {
		return nil, fmt.Errorf("interface name %q too long", r.OutInterface)
	}

	return []expr.Any{
		&expr.Meta{Key: expr.MetaKeyOIFNAME, Register: 1},
		&expr.Cmp{
			Op:       expr.CmpOpEq,
			Register: 1,
			Data:     ifname(r.OutInterface),
		},
		// source address, offset 12 in the IPv4 header
		&expr.Payload{
			DestRegister: 1,
			Base:         expr.PayloadBaseNetworkHeader,
			Offset:       12,
			Len:          4,
		},
		&expr.Bitwise{
			SourceRegister: 1,
			DestRegister:   1,
			Len:            4,
			Mask:           subnet.Mask,
			Xor:            []byte{0, 0, 0, 0},
		},
		&expr.Cmp{
			Op:       expr.CmpOpEq,
			Register: 1,
			Data:     subnet.IP.To4(),
		},
		&expr.Immediate{
			Register: 1,
			Data:     to,
		},
		&expr.NAT{
			Type:       expr.NATTypeSourceNAT,
			Family:     unix.NFPROTO_IPV4,
			RegAddrMin: 1,
		},
	}, nil
}
