package iface

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"nind/api"
	"nind/pkg/util"
)

// Resolver maps a MAC address to the interface name seen inside a container's
// network namespace. A miss is reported as api.ErrNotFound.
type Resolver interface {
	Resolve(ctx context.Context, c *api.Container, mac string) (string, error)
}

// Execer runs a command inside a container and returns its stdout.
type Execer interface {
	ContainerExec(ctx context.Context, id string, cmd []string) (string, error)
}

// ListLinksCmd prints one line per link: name, state, MAC, flags.
var ListLinksCmd = []string{"ip", "-br", "link", "show"}

// ExecResolver lists links with iproute2 inside the container.
type ExecResolver struct {
	Exec Execer
}

func NewExecResolver(e Execer) *ExecResolver {
	return &ExecResolver{Exec: e}
}

func (r *ExecResolver) Resolve(ctx context.Context, c *api.Container, mac string) (string, error) {
	want, err := util.NormalizeMAC(mac)
	if err != nil {
		return "", fmt.Errorf("interface for mac %q in %s: %w: %v", mac, c.Name, api.ErrNotFound, err)
	}
	out, err := r.Exec.ContainerExec(ctx, c.ID, ListLinksCmd)
	if err != nil {
		return "", fmt.Errorf("list links in %s: %w", c.Name, err)
	}
	name, ok := ParseBriefLinks(out, want)
	if !ok {
		return "", fmt.Errorf("interface for mac %s in %s: %w", want, c.Name, api.ErrNotFound)
	}
	return name, nil
}

// ParseBriefLinks scans `ip -br link` output for the first link whose address
// equals mac and returns its name without the "@peer" suffix.
func ParseBriefLinks(out, mac string) (string, bool) {
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		if !strings.EqualFold(fields[2], mac) {
			continue
		}
		return TrimLinkSuffix(fields[0]), true
	}
	return "", false
}

// TrimLinkSuffix turns "eth0@if12" into "eth0".
func TrimLinkSuffix(name string) string {
	base, _, _ := strings.Cut(name, "@")
	return base
}
