package pkg

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"nind/api"
	"nind/pkg/config"
	"nind/pkg/iface"
	"nind/pkg/nat"
	"nind/pkg/route"
	"nind/pkg/runtime"
)

// Manager provisions routers and nodes against a container runtime.
// It holds no state between calls besides its collaborators.
type Manager struct {
	rt       runtime.Runtime
	resolver iface.Resolver
	nat      nat.Installer
	routes   route.Installer
	cfg      config.Config
	log      zerolog.Logger
}

// NewManager wires the in-container backends selected by cfg.Mode.
func NewManager(rt runtime.Runtime, cfg config.Config, logger zerolog.Logger) *Manager {
	m := &Manager{
		rt:  rt,
		cfg: cfg,
		log: logger,
	}
	switch cfg.Mode {
	case config.ModeNetns:
		m.resolver = iface.NewNetnsResolver()
		m.nat = nat.NewNftablesInstaller()
		m.routes = route.NewNetlinkInstaller()
	default:
		m.resolver = iface.NewExecResolver(rt)
		m.nat = nat.NewIptablesInstaller(rt)
		m.routes = route.NewExecInstaller(rt)
	}
	return m
}

// endpoint is a container attachment together with the interface name it
// has inside the container.
type endpoint struct {
	api.Attachment
	Interface string
}

func (m *Manager) tryEndpoint(ctx context.Context, c *api.Container, network string) (endpoint, error) {
	att, ok := c.Networks[network]
	if !ok || att.MacAddress == "" || att.IPAddress == "" {
		return endpoint{}, fmt.Errorf("%s has no address on network %s: %w", c.Name, network, api.ErrNotFound)
	}
	name, err := m.resolver.Resolve(ctx, c, att.MacAddress)
	if err != nil {
		return endpoint{}, err
	}
	return endpoint{Attachment: att, Interface: name}, nil
}

// endpoint resolves the attachment of c on network. Attachment metadata can
// lag right after a connect, so a miss reloads c once and tries again.
// On reload c is updated in place.
func (m *Manager) endpoint(ctx context.Context, c *api.Container, network string) (endpoint, error) {
	ep, err := m.tryEndpoint(ctx, c, network)
	if err == nil || !errors.Is(err, api.ErrNotFound) {
		return ep, err
	}

	m.log.Debug().Err(err).Str("container", c.Name).Str("network", network).Msg("reloading container metadata")
	fresh, rerr := m.rt.ContainerInspect(ctx, c.ID)
	if rerr != nil {
		return endpoint{}, rerr
	}
	*c = *fresh

	ep, err = m.tryEndpoint(ctx, c, network)
	if errors.Is(err, api.ErrNotFound) {
		return endpoint{}, fmt.Errorf("%w: %w", api.ErrAttachment, err)
	}
	return ep, err
}
