package discovery

import (
	"errors"
	"fmt"
	"time"
)

const (
	// ServiceType is the DNS-SD service type for NodeLink nodes.
	ServiceType = "_nodelink._tcp"

	// Domain is the mDNS domain.
	Domain = "local."

	// BrowseTimeout is the default browse duration.
	BrowseTimeout = 10 * time.Second
)

// ErrNotFound indicates no matching node was found.
var ErrNotFound = errors.New("node not found")

// NodeService is one discovered node.
type NodeService struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the node's mDNS hostname, e.g. "kitchen.local.".
	Host string

	// Port is the node's API port.
	Port uint16

	// Addresses holds the node's IP addresses, aggregated across
	// interfaces.
	Addresses []string

	// Name is the node's configured name from the TXT records.
	Name string

	// MACAddress identifies the node hardware.
	MACAddress string

	// Version is the node's advertised firmware version.
	Version string
}

// String returns a one-line description for display.
func (s *NodeService) String() string {
	return fmt.Sprintf("%s (%s:%d, mac=%s, version=%s)",
		s.Name, s.Host, s.Port, s.MACAddress, s.Version)
}
