package pkg

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"nind/api"
)

// Calculator applies declarative topologies and reports what the tool owns.
type Calculator struct {
	m   *Manager
	out io.Writer
}

func NewCalculator(m *Manager, out io.Writer) *Calculator {
	return &Calculator{m: m, out: out}
}

func (c *Calculator) ApplyTopoConfig(ctx context.Context, filepath string) error {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("error reading YAML file: %w", err)
	}

	var topoCfg api.TopoConfig
	if err = yaml.Unmarshal(data, &topoCfg); err != nil {
		return fmt.Errorf("error unmarshaling YAML file: %w", err)
	}
	return c.ApplyTopology(ctx, topoCfg)
}

func validateTopology(topo api.TopoConfig) error {
	routers := make(map[string]bool)
	for i, r := range topo.Routers {
		if r.Name == "" {
			continue
		}
		if routers[r.Name] {
			return fmt.Errorf("router %d: duplicate name %s", i, r.Name)
		}
		routers[r.Name] = true
	}
	for i, n := range topo.Nodes {
		if n.Router == "" {
			return fmt.Errorf("node %d: router is required", i)
		}
		if n.Stun == "" {
			return fmt.Errorf("node %d: stun is required", i)
		}
		if !routers[n.Router] && n.Lan == "" {
			return fmt.Errorf("node %d: router %s is not defined here, lan is required", i, n.Router)
		}
	}
	return nil
}

// ApplyTopology creates the routers, then the nodes, stopping at the first failure.
func (c *Calculator) ApplyTopology(ctx context.Context, topo api.TopoConfig) error {
	if err := validateTopology(topo); err != nil {
		return err
	}

	lans := make(map[string]string) // router name -> lan
	for _, r := range topo.Routers {
		res, err := c.m.CreateRouter(ctx, RouterOptions{
			Wan:   r.Wan,
			Lan:   r.Lan,
			Name:  r.Name,
			Image: r.Image,
		})
		if err != nil {
			return err
		}
		lans[res.Router] = res.Lan
		fmt.Fprintln(c.out, res)
	}

	for _, n := range topo.Nodes {
		lan := n.Lan
		if l, ok := lans[n.Router]; ok && lan == "" {
			lan = l
		}
		res, err := c.m.CreateNode(ctx, NodeOptions{
			Lan:    lan,
			Router: n.Router,
			Image:  n.Image,
			Name:   n.Name,
			Stun:   n.Stun,
			Key:    n.Key,
			Debug:  n.Debug,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, res)
	}
	return nil
}

func (c *Calculator) ShowContainers(ctx context.Context) error {
	containers, err := c.m.rt.ContainerList(ctx, api.OwnerLabels())
	if err != nil {
		return err
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].Name < containers[j].Name })
	for _, ct := range containers {
		nets := make([]string, 0, len(ct.Networks))
		for name, a := range ct.Networks {
			nets = append(nets, name+"="+a.IPAddress)
		}
		sort.Strings(nets)
		role := ct.Labels[api.RoleLabelKey]
		if role == "" {
			role = "-"
		}
		fmt.Fprintf(c.out, "Container: %s, Role: %s, Running: %t, Networks: %s\n",
			ct.Name, role, ct.Running, strings.Join(nets, " "))
	}
	return nil
}

func (c *Calculator) ShowNetworks(ctx context.Context) error {
	networks, err := c.m.rt.NetworkList(ctx, api.OwnerLabels())
	if err != nil {
		return err
	}
	sort.Slice(networks, func(i, j int) bool { return networks[i].Name < networks[j].Name })
	for _, nw := range networks {
		fmt.Fprintf(c.out, "Network: %s, Subnet: %s, Containers: %d\n", nw.Name, nw.Subnet, len(nw.Containers))
	}
	return nil
}
