package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Mode selects how in-container network state is read and written.
type Mode string

const (
	// ModeExec runs ip/iptables inside the containers through the engine.
	ModeExec Mode = "exec"
	// ModeNetns enters the container network namespaces from the host.
	// Requires root on the same host as the engine.
	ModeNetns Mode = "netns"
)

const DefaultStunPort = 3478

// Config holds the defaults every command falls back to when a flag is unset.
type Config struct {
	RouterImage  string `yaml:"routerImage"`
	NodeImage    string `yaml:"nodeImage"`
	BuilderImage string `yaml:"builderImage"`
	Wan          string `yaml:"wan"`
	StunPort     int    `yaml:"stunPort"`
	Mode         Mode   `yaml:"mode"`
	DebugSource  string `yaml:"debugSource"` // host dir mounted at /src/bns-node in debug mode
	BuildPath    string `yaml:"buildPath"`
}

func Default() Config {
	return Config{
		RouterImage:  "bnsnet/router",
		NodeImage:    "bnsnet/node",
		BuilderImage: "bnsnet/node-builder",
		Wan:          "bridge",
		StunPort:     DefaultStunPort,
		Mode:         ModeExec,
		DebugSource:  "./docker/bns-node",
		BuildPath:    "./docker",
	}
}

// Load overlays the YAML file at path on top of the defaults.
// An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeExec, ModeNetns:
	default:
		return fmt.Errorf("invalid mode %q, want %q or %q", c.Mode, ModeExec, ModeNetns)
	}
	if c.StunPort <= 0 || c.StunPort > 65535 {
		return fmt.Errorf("invalid stun port %d", c.StunPort)
	}
	if c.RouterImage == "" || c.NodeImage == "" || c.BuilderImage == "" {
		return fmt.Errorf("router, node and builder images must be set")
	}
	if c.Wan == "" {
		return fmt.Errorf("wan network must be set")
	}
	return nil
}
