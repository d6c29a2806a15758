package pkg

import (
	"context"
	"errors"
	"fmt"

	"nind/api"
	"nind/pkg/log"
	"nind/pkg/nat"
	"nind/pkg/util"
)

const capNetAdmin = "NET_ADMIN"

// RouterOptions selects the networks and container for CreateRouter.
// Empty fields fall back to the manager config or generated names.
type RouterOptions struct {
	Wan   string
	Lan   string
	Name  string
	Image string
}

// RouterResult names the resources an operator needs to place nodes behind the router.
type RouterResult struct {
	Lan        string
	Router     string
	RouterID   string
	LanCreated bool
	Rule       nat.Rule
}

// String renders the flags create_node takes to join this router.
func (r RouterResult) String() string {
	return fmt.Sprintf("-l %s -r %s", r.Lan, r.Router)
}

// CreateRouter creates (or reuses) a LAN network, starts a router container
// attached to both LAN and WAN, and installs the SNAT rule on it.
// Nothing is rolled back on failure.
func (m *Manager) CreateRouter(ctx context.Context, opts RouterOptions) (*RouterResult, error) {
	if opts.Wan == "" {
		opts.Wan = m.cfg.Wan
	}
	if opts.Image == "" {
		opts.Image = m.cfg.RouterImage
	}
	if opts.Name == "" {
		opts.Name = util.GenerateName(util.RouterPrefix)
	}
	log := log.WithContainer(log.WithComponent(m.log, "router"), opts.Name)

	wan, err := m.rt.NetworkByName(ctx, opts.Wan)
	if err != nil {
		return nil, fmt.Errorf("create router %s: resolve wan network: %w", opts.Name, err)
	}

	lan, created, err := m.ensureLan(ctx, opts.Lan)
	if err != nil {
		return nil, fmt.Errorf("create router %s: %w", opts.Name, err)
	}
	if created {
		log.Info().Str("network", lan.Name).Str("subnet", lan.Subnet).Msg("Created LAN network")
	}
	if lan.ID == wan.ID {
		return nil, fmt.Errorf("create router %s: lan and wan are the same network %s: %w", opts.Name, lan.Name, api.ErrAttachment)
	}

	id, err := m.rt.ContainerCreate(ctx, &api.ContainerSpec{
		Image:    opts.Image,
		Name:     opts.Name,
		CapAdd:   []string{capNetAdmin},
		Sysctls:  map[string]string{"net.ipv4.ip_forward": "1"},
		Networks: []string{lan.Name},
		Labels:   api.RoleLabels(api.RoleRouter),
	})
	if err != nil {
		return nil, fmt.Errorf("create router %s: %w", opts.Name, err)
	}
	if err = m.rt.NetworkConnect(ctx, wan.ID, id); err != nil {
		return nil, fmt.Errorf("create router %s: attach wan %s: %w", opts.Name, wan.Name, err)
	}
	if err = m.rt.ContainerStart(ctx, id); err != nil {
		return nil, fmt.Errorf("create router %s: %w", opts.Name, err)
	}

	router, err := m.rt.ContainerInspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create router %s: reload: %w", opts.Name, err)
	}

	wanEp, err := m.endpoint(ctx, router, wan.Name)
	if err != nil {
		return nil, fmt.Errorf("create router %s: resolve wan interface: %w", opts.Name, err)
	}
	lanEp, err := m.endpoint(ctx, router, lan.Name)
	if err != nil {
		return nil, fmt.Errorf("create router %s: resolve lan interface: %w", opts.Name, err)
	}
	if wanEp.NetworkID == lanEp.NetworkID || wanEp.Interface == lanEp.Interface {
		return nil, fmt.Errorf("create router %s: wan and lan resolve to the same attachment: %w", opts.Name, api.ErrAttachment)
	}

	log.Info().Str("id", router.ID).Msg("Router container started")
	log.Info().
		Str("network", wan.Name).Str("ifname", wanEp.Interface).
		Str("ip", wanEp.IPAddress).Str("mac", wanEp.MacAddress).Msg("wan")
	log.Info().
		Str("network", lan.Name).Str("ifname", lanEp.Interface).
		Str("ip", lanEp.IPAddress).Str("mac", lanEp.MacAddress).Msg("lan")

	if lan.Subnet == "" {
		if lan, err = m.rt.NetworkByID(ctx, lan.ID); err != nil {
			return nil, fmt.Errorf("create router %s: reload lan: %w", opts.Name, err)
		}
	}
	if lan.Subnet == "" {
		return nil, fmt.Errorf("create router %s: lan %s has no IPv4 subnet: %w", opts.Name, lan.Name, api.ErrAttachment)
	}

	rule := nat.Rule{
		Subnet:       lan.Subnet,
		OutInterface: wanEp.Interface,
		ToSource:     wanEp.IPAddress,
	}
	log.Info().Stringer("rule", rule).Msg("Configuring SNAT")
	if err = m.nat.Install(ctx, router, rule); err != nil {
		return nil, fmt.Errorf("create router %s: %w", opts.Name, err)
	}

	return &RouterResult{
		Lan:        lan.Name,
		Router:     router.Name,
		RouterID:   router.ID,
		LanCreated: created,
		Rule:       rule,
	}, nil
}

// ensureLan looks up the named network, creating it when missing.
// An empty name always creates a network with a generated name.
func (m *Manager) ensureLan(ctx context.Context, name string) (*api.Network, bool, error) {
	if name == "" {
		name = util.GenerateName(util.NetworkPrefix)
	} else {
		nw, err := m.rt.NetworkByName(ctx, name)
		if err == nil {
			return nw, false, nil
		}
		if !errors.Is(err, api.ErrNotFound) {
			return nil, false, fmt.Errorf("resolve lan network: %w", err)
		}
	}

	nw, err := m.rt.NetworkCreate(ctx, name, api.OwnerLabels())
	if err != nil {
		return nil, false, fmt.Errorf("create lan network: %w", err)
	}
	return nw, true, nil
}
