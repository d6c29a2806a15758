package api

// Ownership labels attached to every resource this tool creates.
const (
	OwnerLabelKey   = "operator"
	OwnerLabelValue = "nind"
	RoleLabelKey    = "nind.role"

	RoleRouter = "router"
	RoleNode   = "node"
)

// OwnerLabels returns the label set used to discover owned resources.
func OwnerLabels() map[string]string {
	return map[string]string{OwnerLabelKey: OwnerLabelValue}
}

// RoleLabels returns the ownership labels plus the role marker.
func RoleLabels(role string) map[string]string {
	l := OwnerLabels()
	l[RoleLabelKey] = role
	return l
}

// Container is a snapshot of a container's metadata as reported by the runtime.
// Networks is keyed by network name.
type Container struct {
	ID       string
	Name     string
	Image    string
	Running  bool
	Pid      int
	Labels   map[string]string
	Networks map[string]Attachment
}

// Attachment is one network endpoint of a container.
type Attachment struct {
	NetworkID   string
	NetworkName string
	IPAddress   string // without prefix length
	MacAddress  string
}

// AttachmentByID returns the attachment on the network with the given id.
func (c *Container) AttachmentByID(networkID string) (Attachment, bool) {
	for _, a := range c.Networks {
		if a.NetworkID == networkID {
			return a, true
		}
	}
	return Attachment{}, false
}

// ContainerSpec describes a container to create.
// Only the first entry of Networks is attached at creation time,
// the rest must be connected afterwards.
type ContainerSpec struct {
	Image    string
	Name     string
	Cmd      []string
	Env      map[string]string
	CapAdd   []string
	Sysctls  map[string]string
	Binds    []string // host:container[:mode]
	Networks []string // network ids or names
	Labels   map[string]string
}
