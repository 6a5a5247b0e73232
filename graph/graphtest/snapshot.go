package graphtest

import (
	"fmt"

	"github.com/cwbudde/safelistn/graph"
)

// Snapshot copies the part of host's graph a Rewirer would touch: the
// playback ports matching p.Playback, every source connected to them, and
// the processor ports named by p. The copy can be rewired freely without
// affecting host.
func Snapshot(host graph.Host, p graph.Ports) (*Graph, error) {
	pattern := p.Playback
	if pattern == "" {
		pattern = graph.DefaultPlaybackPattern
	}

	g := New()
	g.AddClient(p)

	for _, hw := range host.Ports(pattern, graph.FlagInput) {
		g.AddPort(hw, graph.FlagInput|graph.FlagPhysical)

		sources, err := host.Connections(hw)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s: %w", hw, err)
		}
		for _, src := range sources {
			g.AddPort(src, graph.FlagOutput)
			if err := g.Link(src, hw); err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", hw, err)
			}
		}
	}

	return g, nil
}
