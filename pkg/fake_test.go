package pkg

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"nind/api"
	"nind/pkg/config"
	"nind/pkg/runtime"
)

// fakeRuntime is an in-memory engine. Exec understands the handful of
// commands the exec backends send: ip -br link, iptables-legacy and ip route.
type fakeRuntime struct {
	mu sync.Mutex

	networks   map[string]*fakeNetwork // by id
	containers map[string]*fakeContainer
	seq        int

	// hideOnFirstInspect drops this network from the first inspect of each container.
	hideOnFirstInspect string
	// hideLinks makes ip -br link report only the loopback.
	hideLinks bool
	failRoute bool

	inspects      map[string]int
	networkCreate int
	builds        []string
}

type fakeNetwork struct {
	id, name, subnet string
	labels           map[string]string
	hostSeq          int
}

type fakeLink struct {
	netID, ifname, ip, mac string
}

type fakeContainer struct {
	id, name string
	spec     api.ContainerSpec
	running  bool
	links    []fakeLink
	rules    [][]string
	routes   [][]string
}

func newFakeRuntime() *fakeRuntime {
	f := &fakeRuntime{
		networks:   make(map[string]*fakeNetwork),
		containers: make(map[string]*fakeContainer),
		inspects:   make(map[string]int),
	}
	f.networks["net-bridge"] = &fakeNetwork{id: "net-bridge", name: "bridge", subnet: "172.17.0.0/16"}
	return f
}

func newTestManager(f *fakeRuntime) *Manager {
	cfg := config.Default()
	cfg.DebugSource = "/work/docker/bns-node"
	return NewManager(f, cfg, zerolog.Nop())
}

func matchLabels(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}
	return true
}

func (f *fakeRuntime) networkByNameLocked(name string) *fakeNetwork {
	for _, n := range f.networks {
		if n.name == name || n.id == name {
			return n
		}
	}
	return nil
}

func (f *fakeRuntime) toNetwork(n *fakeNetwork) *api.Network {
	nw := &api.Network{ID: n.id, Name: n.name, Subnet: n.subnet, Labels: n.labels, Containers: map[string]string{}}
	for _, c := range f.containers {
		for _, l := range c.links {
			if l.netID == n.id && c.running {
				nw.Containers[c.id] = l.ip + "/16"
			}
		}
	}
	return nw
}

func (f *fakeRuntime) NetworkByName(_ context.Context, name string) (*api.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.networks {
		if n.name == name {
			return f.toNetwork(n), nil
		}
	}
	return nil, fmt.Errorf("network %s: %w", name, api.ErrNotFound)
}

func (f *fakeRuntime) NetworkByID(_ context.Context, id string) (*api.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.networks[id]
	if !ok {
		return nil, fmt.Errorf("network %s: %w", id, api.ErrNotFound)
	}
	return f.toNetwork(n), nil
}

func (f *fakeRuntime) NetworkCreate(_ context.Context, name string, labels map[string]string) (*api.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.networkByNameLocked(name) != nil {
		return nil, fmt.Errorf("network %s already exists: %w", name, api.ErrRuntime)
	}
	f.seq++
	f.networkCreate++
	n := &fakeNetwork{
		id:     fmt.Sprintf("net-%d", f.seq),
		name:   name,
		subnet: fmt.Sprintf("172.%d.0.0/16", 19+f.seq),
		labels: labels,
	}
	f.networks[n.id] = n
	return f.toNetwork(n), nil
}

func (f *fakeRuntime) NetworkList(_ context.Context, labels map[string]string) ([]*api.Network, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*api.Network
	for _, n := range f.networks {
		if matchLabels(n.labels, labels) {
			out = append(out, f.toNetwork(n))
		}
	}
	return out, nil
}

func (f *fakeRuntime) NetworksPrune(_ context.Context, labels map[string]string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted []string
	for id, n := range f.networks {
		if !matchLabels(n.labels, labels) {
			continue
		}
		inUse := false
		for _, c := range f.containers {
			for _, l := range c.links {
				inUse = inUse || l.netID == id
			}
		}
		if !inUse {
			delete(f.networks, id)
			deleted = append(deleted, n.name)
		}
	}
	sort.Strings(deleted)
	return deleted, nil
}

func (f *fakeRuntime) attachLocked(c *fakeContainer, n *fakeNetwork) {
	n.hostSeq++
	prefix := strings.TrimSuffix(n.subnet, ".0.0/16")
	f.seq++
	c.links = append(c.links, fakeLink{
		netID:  n.id,
		ifname: fmt.Sprintf("eth%d", len(c.links)),
		ip:     fmt.Sprintf("%s.0.%d", prefix, n.hostSeq+1),
		mac:    fmt.Sprintf("02:42:ac:%02x:00:%02x", f.seq, n.hostSeq+1),
	})
}

func (f *fakeRuntime) NetworkConnect(_ context.Context, networkID, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.networkByNameLocked(networkID)
	c, ok := f.containers[containerID]
	if n == nil || !ok {
		return fmt.Errorf("connect %s to %s: %w", containerID, networkID, api.ErrNotFound)
	}
	f.attachLocked(c, n)
	return nil
}

func (f *fakeRuntime) ContainerCreate(_ context.Context, spec *api.ContainerSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.containers {
		if c.name == spec.Name {
			return "", fmt.Errorf("container name %s in use: %w", spec.Name, api.ErrRuntime)
		}
	}
	f.seq++
	c := &fakeContainer{id: fmt.Sprintf("ctr-%d", f.seq), name: spec.Name, spec: *spec}
	if len(spec.Networks) > 0 {
		n := f.networkByNameLocked(spec.Networks[0])
		if n == nil {
			return "", fmt.Errorf("network %s: %w", spec.Networks[0], api.ErrNotFound)
		}
		f.attachLocked(c, n)
	}
	f.containers[c.id] = c
	return c.id, nil
}

func (f *fakeRuntime) ContainerStart(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return fmt.Errorf("container %s: %w", id, api.ErrNotFound)
	}
	c.running = true
	return nil
}

func (f *fakeRuntime) findLocked(ref string) *fakeContainer {
	if c, ok := f.containers[ref]; ok {
		return c
	}
	for _, c := range f.containers {
		if c.name == ref {
			return c
		}
	}
	return nil
}

func (f *fakeRuntime) toContainer(c *fakeContainer, hide string) *api.Container {
	out := &api.Container{
		ID:       c.id,
		Name:     c.name,
		Image:    c.spec.Image,
		Running:  c.running,
		Labels:   c.spec.Labels,
		Networks: make(map[string]api.Attachment),
	}
	if c.running {
		out.Pid = 1000
	}
	for _, l := range c.links {
		n := f.networks[l.netID]
		if n == nil || n.name == hide {
			continue
		}
		out.Networks[n.name] = api.Attachment{NetworkID: n.id, NetworkName: n.name, IPAddress: l.ip, MacAddress: l.mac}
	}
	return out
}

func (f *fakeRuntime) ContainerInspect(_ context.Context, id string) (*api.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.findLocked(id)
	if c == nil {
		return nil, fmt.Errorf("container %s: %w", id, api.ErrNotFound)
	}
	f.inspects[c.id]++
	hide := ""
	if f.inspects[c.id] == 1 {
		hide = f.hideOnFirstInspect
	}
	return f.toContainer(c, hide), nil
}

func (f *fakeRuntime) ContainerByName(ctx context.Context, name string) (*api.Container, error) {
	f.mu.Lock()
	c := f.findLocked(name)
	f.mu.Unlock()
	if c == nil {
		return nil, fmt.Errorf("container %s: %w", name, api.ErrNotFound)
	}
	return f.ContainerInspect(ctx, c.id)
}

func (f *fakeRuntime) ContainerList(_ context.Context, labels map[string]string) ([]*api.Container, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*api.Container
	for _, c := range f.containers {
		if matchLabels(c.spec.Labels, labels) {
			out = append(out, f.toContainer(c, ""))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRuntime) ContainerExec(_ context.Context, id string, cmd []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[id]
	if !ok {
		return "", fmt.Errorf("container %s: %w", id, api.ErrNotFound)
	}
	if !c.running {
		return "", fmt.Errorf("container %s is not running: %w", id, api.ErrRuntime)
	}
	fail := func(code int, msg string) error {
		return &runtime.ExecError{Container: id, Cmd: cmd, ExitCode: code, Stderr: msg}
	}

	joined := strings.Join(cmd, " ")
	switch {
	case joined == "ip -br link show":
		var b strings.Builder
		b.WriteString("lo               UNKNOWN        00:00:00:00:00:00 <LOOPBACK,UP,LOWER_UP>\n")
		for i, l := range c.links {
			if f.hideLinks {
				break
			}
			fmt.Fprintf(&b, "%s@if%d         UP             %s <BROADCAST,MULTICAST,UP,LOWER_UP>\n", l.ifname, 10+i, l.mac)
		}
		return b.String(), nil

	case len(cmd) > 4 && cmd[0] == "iptables-legacy":
		op, spec := cmd[3], append([]string{}, cmd[4:]...)
		switch op {
		case "-C":
			for _, r := range c.rules {
				if strings.Join(r, " ") == strings.Join(spec, " ") {
					return "", nil
				}
			}
			return "", fail(1, "iptables: Bad rule (does a matching rule exist in that chain?).")
		case "-A":
			c.rules = append(c.rules, spec)
			return "", nil
		}

	case len(cmd) > 3 && cmd[0] == "ip" && cmd[1] == "route" && cmd[2] == "add":
		if f.failRoute {
			return "", fail(2, "RTNETLINK answers: Network is unreachable")
		}
		c.routes = append(c.routes, append([]string{}, cmd[3:]...))
		return "", nil
	}
	return "", fail(127, "command not found: "+joined)
}

func (f *fakeRuntime) ContainerRemove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.containers[id]; !ok {
		return fmt.Errorf("container %s: %w", id, api.ErrNotFound)
	}
	delete(f.containers, id)
	return nil
}

func (f *fakeRuntime) ImageBuild(_ context.Context, contextDir, tag, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds = append(f.builds, fmt.Sprintf("%s|%s|%s", contextDir, tag, target))
	return nil
}

func (f *fakeRuntime) Close() error { return nil }

func (f *fakeRuntime) container(name string) *fakeContainer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.findLocked(name)
}

func (f *fakeRuntime) ownedNetworks() int {
	n, _ := f.NetworkList(context.Background(), api.OwnerLabels())
	return len(n)
}

func (f *fakeRuntime) ownedContainers() int {
	c, _ := f.ContainerList(context.Background(), api.OwnerLabels())
	return len(c)
}
