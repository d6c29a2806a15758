package runtime

import (
	"context"
	"fmt"
	"strings"

	"nind/api"
)

// Runtime is the subset of container engine operations the provisioners need.
// Lookups that miss return an error wrapping api.ErrNotFound; failed engine
// calls wrap api.ErrRuntime.
type Runtime interface {
	NetworkByName(ctx context.Context, name string) (*api.Network, error)
	NetworkByID(ctx context.Context, id string) (*api.Network, error)
	NetworkCreate(ctx context.Context, name string, labels map[string]string) (*api.Network, error)
	NetworkList(ctx context.Context, labels map[string]string) ([]*api.Network, error)
	NetworksPrune(ctx context.Context, labels map[string]string) ([]string, error)
	NetworkConnect(ctx context.Context, networkID, containerID string) error

	ContainerCreate(ctx context.Context, spec *api.ContainerSpec) (string, error)
	ContainerStart(ctx context.Context, id string) error
	ContainerInspect(ctx context.Context, id string) (*api.Container, error)
	ContainerByName(ctx context.Context, name string) (*api.Container, error)
	ContainerList(ctx context.Context, labels map[string]string) ([]*api.Container, error)
	ContainerExec(ctx context.Context, id string, cmd []string) (string, error)
	ContainerRemove(ctx context.Context, id string) error

	ImageBuild(ctx context.Context, contextDir, tag, target string) error

	Close() error
}

// ExecError is returned by ContainerExec when the command exits non-zero.
type ExecError struct {
	Container string
	Cmd       []string
	ExitCode  int
	Stderr    string
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("exec %q in %s exited with code %d", strings.Join(e.Cmd, " "), e.Container, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// LabelFilters renders a label map as key=value filter strings.
func LabelFilters(labels map[string]string) []string {
	out := make([]string, 0, len(labels))
	for k, v := range labels {
		out = append(out, k+"="+v)
	}
	return out
}
