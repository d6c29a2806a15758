package pkg

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"nind/api"
	"nind/pkg/log"
	"nind/pkg/route"
	"nind/pkg/util"
)

// Environment injected into node containers.
const (
	EnvStunServers = "ICE_SERVERS"
	EnvKey         = "ETH_KEY"
	EnvBacktrace   = "RUST_BACKTRACE"

	// DebugMountPoint is where the live source tree lands in debug mode.
	DebugMountPoint = "/src/bns-node"
)

var (
	NodeCmd  = []string{"bns-node", "run", "-b", "0.0.0.0:50000"}
	DebugCmd = []string{"cargo", "run", "--", "run", "-b", "0.0.0.0:50000"}
)

type NodeOptions struct {
	Lan    string
	Router string
	Image  string
	Name   string
	Stun   string
	Key    string
	Debug  bool
}

func (o NodeOptions) Validate() error {
	if o.Lan == "" {
		return errors.New("lan network is required")
	}
	if o.Router == "" {
		return errors.New("router container is required")
	}
	if o.Stun == "" {
		return errors.New("stun server is required")
	}
	return nil
}

type NodeResult struct {
	Lan    string
	Node   string
	NodeID string
	Stun   string
	Route  route.Route
}

func (r NodeResult) String() string {
	return r.Lan + " " + r.Node
}

// routerView is what a node needs to know about the router it sits behind.
type routerView struct {
	WanSubnet string
	Gateway   string
}

// inspectRouter finds the WAN on the far side of router and the router's
// address on lan.
func (m *Manager) inspectRouter(ctx context.Context, router *api.Container, lan *api.Network) (routerView, error) {
	if _, ok := router.AttachmentByID(lan.ID); !ok {
		return routerView{}, fmt.Errorf("router %s is not attached to %s: %w", router.Name, lan.Name, api.ErrAttachment)
	}
	if len(router.Networks) != 2 {
		return routerView{}, fmt.Errorf("router %s has %d networks, want 2: %w", router.Name, len(router.Networks), api.ErrAttachment)
	}

	var wanID string
	for _, a := range router.Networks {
		if a.NetworkID != lan.ID {
			wanID = a.NetworkID
		}
	}
	if wanID == "" {
		return routerView{}, fmt.Errorf("router %s has no network besides %s: %w", router.Name, lan.Name, api.ErrAttachment)
	}
	wan, err := m.rt.NetworkByID(ctx, wanID)
	if err != nil {
		return routerView{}, fmt.Errorf("resolve wan network of %s: %w", router.Name, err)
	}
	if wan.Subnet == "" {
		return routerView{}, fmt.Errorf("wan %s has no IPv4 subnet: %w", wan.Name, api.ErrAttachment)
	}

	gw := util.StripPrefix(lan.Containers[router.ID])
	if gw == "" {
		return routerView{}, fmt.Errorf("router %s has no address on %s: %w", router.Name, lan.Name, api.ErrAttachment)
	}
	return routerView{WanSubnet: wan.Subnet, Gateway: gw}, nil
}

// CreateNode starts a node on an existing LAN and routes the router's WAN
// subnet through the router.
func (m *Manager) CreateNode(ctx context.Context, opts NodeOptions) (*NodeResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	stun, err := util.NormalizeStun(opts.Stun, m.cfg.StunPort)
	if err != nil {
		return nil, err
	}

	router, err := m.rt.ContainerByName(ctx, opts.Router)
	if err != nil {
		return nil, fmt.Errorf("create node: resolve router %s: %w", opts.Router, err)
	}
	lan, err := m.rt.NetworkByName(ctx, opts.Lan)
	if err != nil {
		return nil, fmt.Errorf("create node: resolve lan %s: %w", opts.Lan, err)
	}
	view, err := m.inspectRouter(ctx, router, lan)
	if err != nil {
		return nil, fmt.Errorf("create node: %w", err)
	}

	if opts.Name == "" {
		opts.Name = util.GenerateName(util.NodePrefix)
	}
	if opts.Key == "" {
		opts.Key = util.GenerateKey()
	}
	if opts.Image == "" {
		opts.Image = m.cfg.NodeImage
	}

	spec := &api.ContainerSpec{
		Image:  opts.Image,
		Name:   opts.Name,
		Cmd:    NodeCmd,
		CapAdd: []string{capNetAdmin},
		Env: map[string]string{
			EnvStunServers: stun,
			EnvKey:         opts.Key,
			EnvBacktrace:   "1",
		},
		Networks: []string{lan.Name},
		Labels:   api.RoleLabels(api.RoleNode),
	}
	if opts.Debug {
		src, err := filepath.Abs(m.cfg.DebugSource)
		if err != nil {
			return nil, fmt.Errorf("create node: debug source: %w", err)
		}
		// cargo writes into the tree, so the bind stays read-write
		spec.Binds = []string{src + ":" + DebugMountPoint + ":rw"}
		spec.Cmd = DebugCmd
		spec.Image = m.cfg.BuilderImage
		spec.Name = opts.Name + util.DebugSuffix
	}
	log := log.WithContainer(log.WithComponent(m.log, "node"), spec.Name)

	id, err := m.rt.ContainerCreate(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("create node %s: %w", spec.Name, err)
	}
	if err = m.rt.ContainerStart(ctx, id); err != nil {
		return nil, fmt.Errorf("create node %s: %w", spec.Name, err)
	}
	node, err := m.rt.ContainerInspect(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create node %s: reload: %w", spec.Name, err)
	}

	ep, err := m.endpoint(ctx, node, lan.Name)
	if err != nil {
		return nil, fmt.Errorf("create node %s: resolve lan interface: %w", spec.Name, err)
	}
	log.Info().Str("id", node.ID).Msg("Node container started")
	log.Info().Str("network", lan.Name).Str("ifname", ep.Interface).Str("ip", ep.IPAddress).Msg("lan")

	r := route.Route{Dst: view.WanSubnet, Gateway: view.Gateway, Device: ep.Interface}
	log.Info().Stringer("route", r).Msg("Adding route")
	if err = m.routes.Install(ctx, node, r); err != nil {
		return nil, fmt.Errorf("create node %s: %w", spec.Name, err)
	}

	return &NodeResult{
		Lan:    lan.Name,
		Node:   node.Name,
		NodeID: node.ID,
		Stun:   stun,
		Route:  r,
	}, nil
}
