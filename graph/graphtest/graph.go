// Package graphtest provides an in-memory graph.Host with JACK-like
// semantics for tests and dry runs.
package graphtest

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/safelistn/graph"
)

var (
	// ErrNoSuchPort is returned for requests naming an unregistered port.
	ErrNoSuchPort = errors.New("no such port")
	// ErrAlreadyConnected is returned when connecting an existing edge.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrNotConnected is returned when disconnecting a missing edge.
	ErrNotConnected = errors.New("not connected")
	// ErrDirection is returned when an edge does not run output -> input.
	ErrDirection = errors.New("edge must run from an output to an input")
)

// Call is one logged host request.
type Call struct {
	Op   graph.Op
	Edge graph.Edge
	Err  error
}

type port struct {
	name  string
	flags graph.PortFlags
}

// Graph is an in-memory port graph. It is safe for concurrent use.
//
// Port discovery matches pattern as a name prefix. Edges keep their
// insertion order so Connections results are deterministic.
type Graph struct {
	mu    sync.Mutex
	ports []port
	edges []graph.Edge
	calls []Call

	failConnect    map[graph.Edge]error
	failDisconnect map[graph.Edge]error
	failQuery      map[string]error

	applyDelay time.Duration
	pending    sync.WaitGroup
}

// Option configures a Graph.
type Option func(*Graph)

// WithApplyDelay makes accepted Connect and Disconnect requests take effect
// only after d, like a server applying graph changes asynchronously.
func WithApplyDelay(d time.Duration) Option {
	return func(g *Graph) { g.applyDelay = d }
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		failConnect:    make(map[graph.Edge]error),
		failDisconnect: make(map[graph.Edge]error),
		failQuery:      make(map[string]error),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSystem returns a graph with system:playback_1 and system:playback_2
// registered as physical inputs.
func NewSystem(opts ...Option) *Graph {
	g := New(opts...)
	g.AddPort("system:playback_1", graph.FlagInput|graph.FlagPhysical)
	g.AddPort("system:playback_2", graph.FlagInput|graph.FlagPhysical)
	return g
}

// AddPort registers a port. Registering an existing name is a no-op.
func (g *Graph) AddPort(name string, flags graph.PortFlags) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lookup(name) != nil {
		return
	}
	g.ports = append(g.ports, port{name: name, flags: flags})
}

// AddClient registers the four ports of a stereo processor.
func (g *Graph) AddClient(p graph.Ports) {
	g.AddPort(p.InL, graph.FlagInput)
	g.AddPort(p.InR, graph.FlagInput)
	g.AddPort(p.OutL, graph.FlagOutput)
	g.AddPort(p.OutR, graph.FlagOutput)
}

// Link adds an edge directly, bypassing failure injection and the call log.
func (g *Graph) Link(source, destination string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.validate(source, destination); err != nil {
		return err
	}
	e := graph.Edge{Source: source, Destination: destination}
	if !slices.Contains(g.edges, e) {
		g.edges = append(g.edges, e)
	}
	return nil
}

// FailConnect makes Connect(source, destination) return err.
func (g *Graph) FailConnect(source, destination string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failConnect[graph.Edge{Source: source, Destination: destination}] = err
}

// FailDisconnect makes Disconnect(source, destination) return err.
func (g *Graph) FailDisconnect(source, destination string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failDisconnect[graph.Edge{Source: source, Destination: destination}] = err
}

// FailQuery makes Connections(port) return err.
func (g *Graph) FailQuery(port string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failQuery[port] = err
}

// Ports implements graph.Host.
func (g *Graph) Ports(pattern string, flags graph.PortFlags) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var names []string
	for _, p := range g.ports {
		if strings.HasPrefix(p.name, pattern) && p.flags&flags == flags {
			names = append(names, p.name)
		}
	}
	return names
}

// Connections implements graph.Host.
func (g *Graph) Connections(name string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.failQuery[name]; err != nil {
		return nil, err
	}
	p := g.lookup(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchPort, name)
	}

	var peers []string
	for _, e := range g.edges {
		switch {
		case p.flags&graph.FlagInput != 0 && e.Destination == name:
			peers = append(peers, e.Source)
		case p.flags&graph.FlagOutput != 0 && e.Source == name:
			peers = append(peers, e.Destination)
		}
	}
	return peers, nil
}

// Connect implements graph.Host.
func (g *Graph) Connect(source, destination string) error {
	return g.mutate(graph.OpConnect, source, destination)
}

// Disconnect implements graph.Host.
func (g *Graph) Disconnect(source, destination string) error {
	return g.mutate(graph.OpDisconnect, source, destination)
}

// Edges returns a copy of the current edge set in insertion order.
func (g *Graph) Edges() []graph.Edge {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.edges)
}

// EdgesTouching returns the edges with an endpoint in ports.
func (g *Graph) EdgesTouching(ports ...string) []graph.Edge {
	var out []graph.Edge
	for _, e := range g.Edges() {
		if slices.Contains(ports, e.Source) || slices.Contains(ports, e.Destination) {
			out = append(out, e)
		}
	}
	return out
}

// Calls returns the logged Connect and Disconnect requests.
func (g *Graph) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.calls)
}

// Wait blocks until all delayed mutations have been applied.
func (g *Graph) Wait() {
	g.pending.Wait()
}

func (g *Graph) mutate(op graph.Op, source, destination string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := graph.Edge{Source: source, Destination: destination}
	err := g.check(op, e)
	g.calls = append(g.calls, Call{Op: op, Edge: e, Err: err})
	if err != nil {
		return err
	}

	if g.applyDelay <= 0 {
		g.apply(op, e)
		return nil
	}

	g.pending.Add(1)
	time.AfterFunc(g.applyDelay, func() {
		defer g.pending.Done()
		g.mu.Lock()
		defer g.mu.Unlock()
		g.apply(op, e)
	})
	return nil
}

func (g *Graph) check(op graph.Op, e graph.Edge) error {
	failures := g.failConnect
	if op == graph.OpDisconnect {
		failures = g.failDisconnect
	}
	if err := failures[e]; err != nil {
		return err
	}

	if err := g.validate(e.Source, e.Destination); err != nil {
		return err
	}

	present := slices.Contains(g.edges, e)
	switch {
	case op == graph.OpConnect && present:
		return fmt.Errorf("%w: %s", ErrAlreadyConnected, e)
	case op == graph.OpDisconnect && !present:
		return fmt.Errorf("%w: %s", ErrNotConnected, e)
	}
	return nil
}

func (g *Graph) apply(op graph.Op, e graph.Edge) {
	i := slices.Index(g.edges, e)
	switch {
	case op == graph.OpConnect && i < 0:
		g.edges = append(g.edges, e)
	case op == graph.OpDisconnect && i >= 0:
		g.edges = slices.Delete(g.edges, i, i+1)
	}
}

func (g *Graph) validate(source, destination string) error {
	src, dst := g.lookup(source), g.lookup(destination)
	if src == nil {
		return fmt.Errorf("%w: %s", ErrNoSuchPort, source)
	}
	if dst == nil {
		return fmt.Errorf("%w: %s", ErrNoSuchPort, destination)
	}
	if src.flags&graph.FlagOutput == 0 || dst.flags&graph.FlagInput == 0 {
		return fmt.Errorf("%w: %s -> %s", ErrDirection, source, destination)
	}
	return nil
}

func (g *Graph) lookup(name string) *port {
	for i := range g.ports {
		if g.ports[i].name == name {
			return &g.ports[i]
		}
	}
	return nil
}
