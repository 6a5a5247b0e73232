package graph

import "fmt"

// PortFlags filters port discovery by direction and kind.
type PortFlags uint8

const (
	// FlagInput selects ports that receive signal (sinks).
	FlagInput PortFlags = 1 << iota
	// FlagOutput selects ports that produce signal (sources).
	FlagOutput
	// FlagPhysical selects ports backed by hardware.
	FlagPhysical
)

// Edge is a directed connection from an output port to an input port.
type Edge struct {
	Source      string
	Destination string
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -> %s", e.Source, e.Destination)
}

// Host is the subset of an audio server used for rewiring. Connect and
// Disconnect are requests; a host may reject them when the edge is already in
// the requested state or a port has vanished.
type Host interface {
	// Ports lists port names matching pattern that carry all of flags, in the
	// host's registration order.
	Ports(pattern string, flags PortFlags) []string
	// Connections lists the ports connected to port: sources for an input
	// port, destinations for an output port.
	Connections(port string) ([]string, error)
	Connect(source, destination string) error
	Disconnect(source, destination string) error
}
