package nat

import (
	"context"
	"errors"
	"fmt"

	"nind/api"
	"nind/pkg/runtime"
	"nind/pkg/util"
)

// Rule rewrites the source of packets from Subnet leaving through
// OutInterface to ToSource.
type Rule struct {
	Subnet       string
	OutInterface string
	ToSource     string
}

func (r Rule) String() string {
	return fmt.Sprintf("snat %s -o %s -> %s", r.Subnet, r.OutInterface, r.ToSource)
}

// Validate checks the rule fields and returns the subnet in its masked form.
func (r Rule) Validate() (Rule, error) {
	ipNet, err := util.ParseSubnet(r.Subnet)
	if err != nil {
		return r, err
	}
	if r.OutInterface == "" {
		return r, errors.New("missing egress interface")
	}
	if !util.CheckIPv4(r.ToSource) || r.ToSource != util.StripPrefix(r.ToSource) {
		return r, fmt.Errorf("invalid source address %q", r.ToSource)
	}
	r.Subnet = ipNet.String()
	return r, nil
}

// Installer puts a Rule into the packet filter of a running container.
// Installing the same rule twice must leave a single copy.
type Installer interface {
	Install(ctx context.Context, c *api.Container, rule Rule) error
}

type Execer interface {
	ContainerExec(ctx context.Context, id string, cmd []string) (string, error)
}

// DefaultIptables is the binary used inside router images.
const DefaultIptables = "iptables-legacy"

// IptablesInstaller runs iptables inside the container.
type IptablesInstaller struct {
	Exec   Execer
	Binary string
}

func NewIptablesInstaller(e Execer) *IptablesInstaller {
	return &IptablesInstaller{Exec: e, Binary: DefaultIptables}
}

// Args renders the rule for the nat table POSTROUTING chain.
// op is -A, -C or -D.
func (i *IptablesInstaller) Args(op string, r Rule) []string {
	return []string{
		i.Binary,
		"-t", "nat",
		op, "POSTROUTING",
		"-s", r.Subnet,
		"-o", r.OutInterface,
		"-j", "SNAT",
		"--to-source", r.ToSource,
	}
}

func (i *IptablesInstaller) Install(ctx context.Context, c *api.Container, rule Rule) error {
	rule, err := rule.Validate()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", api.ErrRuleInstall, c.Name, err)
	}

	// -C exits 1 when the rule is missing, anything else is a real failure
	_, err = i.Exec.ContainerExec(ctx, c.ID, i.Args("-C", rule))
	if err == nil {
		return nil
	}
	var execErr *runtime.ExecError
	if !errors.As(err, &execErr) || execErr.ExitCode != 1 {
		return fmt.Errorf("%w: check rule in %s: %w", api.ErrRuleInstall, c.Name, err)
	}

	if _, err = i.Exec.ContainerExec(ctx, c.ID, i.Args("-A", rule)); err != nil {
		return fmt.Errorf("%w: append rule in %s: %w", api.ErrRuleInstall, c.Name, err)
	}
	return nil
}
