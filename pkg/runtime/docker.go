package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"

	"nind/api"
	"nind/pkg/log"
)

// DockerRuntime talks to a Docker engine through its Go SDK.
type DockerRuntime struct {
	dClient   *client.Client
	log       zerolog.Logger
	buildLogs io.Writer
}

// NewDockerRuntime connects using the DOCKER_HOST family of environment variables.
func NewDockerRuntime(logger zerolog.Logger) (*DockerRuntime, error) {
	dClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w: %w", api.ErrRuntime, err)
	}
	return newDockerRuntime(dClient, logger), nil
}

func newDockerRuntime(dClient *client.Client, logger zerolog.Logger) *DockerRuntime {
	return &DockerRuntime{
		dClient:   dClient,
		log:       log.WithComponent(logger, "docker"),
		buildLogs: os.Stderr,
	}
}

func (d *DockerRuntime) Close() error {
	return d.dClient.Close()
}

// classify maps an engine error onto the api error kinds.
func classify(what string, err error) error {
	if cerrdefs.IsNotFound(err) {
		return fmt.Errorf("%s: %w: %w", what, api.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w: %w", what, api.ErrRuntime, err)
}

func labelArgs(labels map[string]string) filters.Args {
	args := filters.NewArgs()
	for _, l := range LabelFilters(labels) {
		args.Add("label", l)
	}
	return args
}

func (d *DockerRuntime) NetworkByName(ctx context.Context, name string) (*api.Network, error) {
	nws, err := d.dClient.NetworkList(ctx, network.ListOptions{
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return nil, classify("list networks", err)
	}
	// the name filter matches substrings
	for _, nw := range nws {
		if nw.Name == name {
			return d.NetworkByID(ctx, nw.ID)
		}
	}
	return nil, fmt.Errorf("network %s: %w", name, api.ErrNotFound)
}

func (d *DockerRuntime) NetworkByID(ctx context.Context, id string) (*api.Network, error) {
	res, err := d.dClient.NetworkInspect(ctx, id, network.InspectOptions{})
	if err != nil {
		return nil, classify("inspect network "+id, err)
	}
	nw := &api.Network{
		ID:         res.ID,
		Name:       res.Name,
		Labels:     res.Labels,
		Containers: make(map[string]string, len(res.Containers)),
	}
	for _, cfg := range res.IPAM.Config {
		if cfg.Subnet != "" && !strings.Contains(cfg.Subnet, ":") {
			nw.Subnet = cfg.Subnet
			break
		}
	}
	for cid, ep := range res.Containers {
		nw.Containers[cid] = ep.IPv4Address
	}
	return nw, nil
}

func (d *DockerRuntime) NetworkCreate(ctx context.Context, name string, labels map[string]string) (*api.Network, error) {
	res, err := d.dClient.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
		Labels: labels,
	})
	if err != nil {
		return nil, classify("create network "+name, err)
	}
	if res.Warning != "" {
		d.log.Warn().Str("network", name).Msg(res.Warning)
	}
	// IPAM is only allocated after creation, inspect to pick up the subnet
	return d.NetworkByID(ctx, res.ID)
}

func (d *DockerRuntime) NetworkList(ctx context.Context, labels map[string]string) ([]*api.Network, error) {
	nws, err := d.dClient.NetworkList(ctx, network.ListOptions{Filters: labelArgs(labels)})
	if err != nil {
		return nil, classify("list networks", err)
	}
	out := make([]*api.Network, 0, len(nws))
	for _, nw := range nws {
		n, err := d.NetworkByID(ctx, nw.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (d *DockerRuntime) NetworksPrune(ctx context.Context, labels map[string]string) ([]string, error) {
	report, err := d.dClient.NetworksPrune(ctx, labelArgs(labels))
	if err != nil {
		return nil, classify("prune networks", err)
	}
	return report.NetworksDeleted, nil
}

func (d *DockerRuntime) NetworkConnect(ctx context.Context, networkID, containerID string) error {
	if err := d.dClient.NetworkConnect(ctx, networkID, containerID, nil); err != nil {
		return classify(fmt.Sprintf("connect %s to network %s", containerID, networkID), err)
	}
	return nil
}

func (d *DockerRuntime) ContainerCreate(ctx context.Context, spec *api.ContainerSpec) (string, error) {
	env := make([]string, 0, len(spec.Env))
	for k, v := range spec.Env {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)

	hostCfg := &container.HostConfig{
		CapAdd:  spec.CapAdd,
		Sysctls: spec.Sysctls,
		Binds:   spec.Binds,
	}
	var netCfg *network.NetworkingConfig
	if len(spec.Networks) > 0 {
		// the first network is the primary one, like `docker run --network`
		hostCfg.NetworkMode = container.NetworkMode(spec.Networks[0])
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Networks[0]: {},
			},
		}
	}

	res, err := d.dClient.ContainerCreate(ctx, &container.Config{
		Image:  spec.Image,
		Cmd:    spec.Cmd,
		Env:    env,
		Labels: spec.Labels,
	}, hostCfg, netCfg, nil, spec.Name)
	if err != nil {
		return "", classify("create container "+spec.Name, err)
	}
	for _, w := range res.Warnings {
		d.log.Warn().Str("container", spec.Name).Msg(w)
	}
	return res.ID, nil
}

func (d *DockerRuntime) ContainerStart(ctx context.Context, id string) error {
	if err := d.dClient.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return classify("start container "+id, err)
	}
	return nil
}

// ContainerInspect accepts either a container id or a name.
func (d *DockerRuntime) ContainerInspect(ctx context.Context, id string) (*api.Container, error) {
	res, err := d.dClient.ContainerInspect(ctx, id)
	if err != nil {
		return nil, classify("inspect container "+id, err)
	}
	c := &api.Container{
		ID:       res.ID,
		Name:     strings.TrimPrefix(res.Name, "/"),
		Networks: make(map[string]api.Attachment),
	}
	if res.Config != nil {
		c.Image = res.Config.Image
		c.Labels = res.Config.Labels
	}
	if res.State != nil {
		c.Running = res.State.Running
		c.Pid = res.State.Pid
	}
	if res.NetworkSettings != nil {
		for name, ep := range res.NetworkSettings.Networks {
			if ep == nil {
				continue
			}
			c.Networks[name] = api.Attachment{
				NetworkID:   ep.NetworkID,
				NetworkName: name,
				IPAddress:   ep.IPAddress,
				MacAddress:  strings.ToLower(ep.MacAddress),
			}
		}
	}
	return c, nil
}

func (d *DockerRuntime) ContainerByName(ctx context.Context, name string) (*api.Container, error) {
	return d.ContainerInspect(ctx, name)
}

func (d *DockerRuntime) ContainerList(ctx context.Context, labels map[string]string) ([]*api.Container, error) {
	list, err := d.dClient.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: labelArgs(labels),
	})
	if err != nil {
		return nil, classify("list containers", err)
	}
	out := make([]*api.Container, 0, len(list))
	for _, item := range list {
		c, err := d.ContainerInspect(ctx, item.ID)
		if errors.Is(err, api.ErrNotFound) {
			// removed between list and inspect
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ContainerExec runs cmd inside the container and returns its stdout.
func (d *DockerRuntime) ContainerExec(ctx context.Context, id string, cmd []string) (string, error) {
	exec, err := d.dClient.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", classify("exec create in "+id, err)
	}

	resp, err := d.dClient.ContainerExecAttach(ctx, exec.ID, container.ExecAttachOptions{})
	if err != nil {
		return "", classify("exec attach in "+id, err)
	}
	defer resp.Close()

	var stdout, stderr bytes.Buffer
	if _, err = stdcopy.StdCopy(&stdout, &stderr, resp.Reader); err != nil {
		return "", fmt.Errorf("read exec output from %s: %w: %w", id, api.ErrRuntime, err)
	}

	inspect, err := d.dClient.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return "", classify("exec inspect in "+id, err)
	}
	d.log.Debug().Str("container", id).Strs("cmd", cmd).Int("exit", inspect.ExitCode).Msg("exec")
	if inspect.ExitCode != 0 {
		return stdout.String(), &ExecError{
			Container: id,
			Cmd:       cmd,
			ExitCode:  inspect.ExitCode,
			Stderr:    stderr.String(),
		}
	}
	return stdout.String(), nil
}

func (d *DockerRuntime) ContainerRemove(ctx context.Context, id string) error {
	err := d.dClient.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	if err != nil {
		return classify("remove container "+id, err)
	}
	return nil
}

// ImageBuild builds contextDir into tag, optionally stopping at a multi-stage target.
func (d *DockerRuntime) ImageBuild(ctx context.Context, contextDir, tag, target string) error {
	buildCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("archive build context %s: %w", contextDir, err)
	}
	defer buildCtx.Close()

	res, err := d.dClient.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:        []string{tag},
		Target:      target,
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return classify("build image "+tag, err)
	}
	defer res.Body.Close()

	if err = jsonmessage.DisplayJSONMessagesStream(res.Body, d.buildLogs, 0, false, nil); err != nil {
		return fmt.Errorf("build image %s: %w", tag, err)
	}
	return nil
}
