package api

// Network is a container runtime virtual network.
type Network struct {
	ID     string
	Name   string
	Subnet string // first IPv4 IPAM subnet in CIDR form, empty if unknown
	Labels map[string]string

	// Containers maps an attached container id to its IPv4 address
	// as reported by the network (may carry a /prefix).
	Containers map[string]string
}
