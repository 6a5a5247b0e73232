package session

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/graph"
	"github.com/cwbudde/safelistn/graph/graphtest"
	"github.com/cwbudde/safelistn/internal/config"
)

// DryHost is an AudioHost backed by an in-memory graph. Bind registers the
// processor ports in the graph; no audio is processed.
type DryHost struct {
	*graphtest.Graph

	ports graph.Ports
	rate  float64
}

// NewDryHost wraps g as a host running at sampleRate.
func NewDryHost(g *graphtest.Graph, ports graph.Ports, sampleRate float64) *DryHost {
	return &DryHost{Graph: g, ports: ports, rate: sampleRate}
}

// SampleRate implements AudioHost.
func (h *DryHost) SampleRate() float64 { return h.rate }

// Bind implements AudioHost.
func (h *DryHost) Bind(dynamics.StereoProcessor, *dynamics.Meter) error {
	h.AddClient(h.ports)
	return nil
}

// Activate implements AudioHost.
func (h *DryHost) Activate() error { return nil }

// Deactivate implements AudioHost.
func (h *DryHost) Deactivate() error { return nil }

// Done implements AudioHost. It never fires.
func (h *DryHost) Done() <-chan struct{} { return nil }

// Plan is the wiring a run would produce, captured on a copy of the live
// graph.
type Plan struct {
	Before   []graph.Edge
	Arranged []graph.Edge
	Restored []graph.Edge
	Reports  map[string]*graph.Report
}

// DryRun copies the playback wiring of live and runs a full session on the
// copy, recording the edge set before, while and after the processor is
// spliced in. live is only queried.
func DryRun(ctx context.Context, cfg config.Config, live graph.Host, sampleRate float64, log logrus.FieldLogger) (*Plan, error) {
	snap, err := graphtest.Snapshot(live, cfg.Ports())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	plan := &Plan{
		Before:  snap.Edges(),
		Reports: make(map[string]*graph.Report),
	}

	s := New(cfg, NewDryHost(snap, cfg.Ports(), sampleRate),
		WithLogger(log),
		WithReportObserver(func(phase string, r *graph.Report) {
			plan.Reports[phase] = r
		}),
		WithArranged(func(graph.Record) {
			plan.Arranged = snap.Edges()
			cancel()
		}),
	)

	if err := s.Run(ctx); err != nil {
		return nil, err
	}

	plan.Restored = snap.Edges()
	return plan, nil
}
