package pkg

import (
	"context"
	"errors"
	"fmt"

	"nind/api"
	"nind/pkg/log"
)

type CleanResult struct {
	Containers []string
	Networks   []string
}

// Clean force-removes every owned container and prunes owned networks.
// Running it on a clean engine removes nothing and succeeds.
func (m *Manager) Clean(ctx context.Context) (*CleanResult, error) {
	log := log.WithComponent(m.log, "cleanup")
	res := &CleanResult{}

	containers, err := m.rt.ContainerList(ctx, api.OwnerLabels())
	if err != nil {
		return res, fmt.Errorf("clean: %w", err)
	}
	for _, c := range containers {
		err := m.rt.ContainerRemove(ctx, c.ID)
		if errors.Is(err, api.ErrNotFound) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("clean: %w", err)
		}
		log.Info().Str("container", c.Name).Msg("Removed container")
		res.Containers = append(res.Containers, c.Name)
	}

	res.Networks, err = m.rt.NetworksPrune(ctx, api.OwnerLabels())
	if err != nil {
		return res, fmt.Errorf("clean: %w", err)
	}
	for _, n := range res.Networks {
		log.Info().Str("network", n).Msg("Removed network")
	}
	return res, nil
}
