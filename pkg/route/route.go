package route

import (
	"context"
	"fmt"

	"nind/api"
	"nind/pkg/util"
)

// Route sends Dst via Gateway out of Device.
type Route struct {
	Dst     string
	Gateway string
	Device  string
}

func (r Route) String() string {
	return fmt.Sprintf("%s via %s dev %s", r.Dst, r.Gateway, r.Device)
}

func (r Route) Validate() (Route, error) {
	ipNet, err := util.ParseSubnet(r.Dst)
	if err != nil {
		return r, err
	}
	if !util.CheckIPv4(r.Gateway) || r.Gateway != util.StripPrefix(r.Gateway) {
		return r, fmt.Errorf("invalid gateway %q", r.Gateway)
	}
	if r.Device == "" {
		return r, fmt.Errorf("missing device")
	}
	r.Dst = ipNet.String()
	return r, nil
}

// Installer adds a static route inside a running container.
type Installer interface {
	Install(ctx context.Context, c *api.Container, r Route) error
}

type Execer interface {
	ContainerExec(ctx context.Context, id string, cmd []string) (string, error)
}

// ExecInstaller runs iproute2 inside the container.
type ExecInstaller struct {
	Exec Execer
}

func NewExecInstaller(e Execer) *ExecInstaller {
	return &ExecInstaller{Exec: e}
}

func Cmd(r Route) []string {
	return []string{"ip", "route", "add", r.Dst, "via", r.Gateway, "dev", r.Device}
}

func (i *ExecInstaller) Install(ctx context.Context, c *api.Container, r Route) error {
	r, err := r.Validate()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", api.ErrRouteInstall, c.Name, err)
	}
	if _, err = i.Exec.ContainerExec(ctx, c.ID, Cmd(r)); err != nil {
		return fmt.Errorf("%w: %s in %s: %w", api.ErrRouteInstall, r, c.Name, err)
	}
	return nil
}
