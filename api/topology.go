package api

// TopoConfig is a declarative topology: routers are created first, then nodes.
type TopoConfig struct {
	Routers []RouterConfig `yaml:"routers"`
	Nodes   []NodeConfig   `yaml:"nodes"`
}

type RouterConfig struct {
	Name  string `yaml:"name"`
	Lan   string `yaml:"lan"`
	Wan   string `yaml:"wan"`
	Image string `yaml:"image"`
}

type NodeConfig struct {
	Name   string `yaml:"name"`
	Router string `yaml:"router"` // router entry name, or an existing router container
	Lan    string `yaml:"lan"`    // required only when Router is not defined in the same file
	Image  string `yaml:"image"`
	Stun   string `yaml:"stun"`
	Key    string `yaml:"key"`
	Debug  bool   `yaml:"debug"`
}
