package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/graph"
	"github.com/cwbudde/safelistn/graph/graphtest"
	"github.com/cwbudde/safelistn/internal/config"
)

// fakeHost records lifecycle calls and graph mutations in one ordered log.
type fakeHost struct {
	*graphtest.Graph

	ports   graph.Ports
	bindErr error
	done    chan struct{}

	mu     sync.Mutex
	events []string
	proc   dynamics.StereoProcessor
}

func newFakeHost(g *graphtest.Graph) *fakeHost {
	return &fakeHost{
		Graph: g,
		ports: config.Default().Ports(),
		done:  make(chan struct{}),
	}
}

func (h *fakeHost) event(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *fakeHost) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.events)
}

func (h *fakeHost) SampleRate() float64 { return 44100 }

func (h *fakeHost) Bind(p dynamics.StereoProcessor, _ *dynamics.Meter) error {
	h.event("bind")
	if h.bindErr != nil {
		return h.bindErr
	}
	h.proc = p
	h.AddClient(h.ports)
	return nil
}

func (h *fakeHost) Activate() error   { h.event("activate"); return nil }
func (h *fakeHost) Deactivate() error { h.event("deactivate"); return nil }

func (h *fakeHost) Done() <-chan struct{} { return h.done }

func (h *fakeHost) Connect(src, dst string) error {
	h.event("connect " + src + " " + dst)
	return h.Graph.Connect(src, dst)
}

func (h *fakeHost) Disconnect(src, dst string) error {
	h.event("disconnect " + src + " " + dst)
	return h.Graph.Disconnect(src, dst)
}

func playerGraph(t *testing.T) *graphtest.Graph {
	t.Helper()

	g := graphtest.NewSystem()
	g.AddPort("player:out_1", graph.FlagOutput)
	g.AddPort("player:out_2", graph.FlagOutput)
	require.NoError(t, g.Link("player:out_1", "system:playback_1"))
	require.NoError(t, g.Link("player:out_2", "system:playback_2"))
	return g
}

func TestRunSequence(t *testing.T) {
	log, _ := test.NewNullLogger()
	g := playerGraph(t)
	original := g.Edges()
	host := newFakeHost(g)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var arranged []graph.Edge
	s := New(config.Default(), host,
		WithLogger(log),
		WithArranged(func(rec graph.Record) {
			arranged = g.Edges()
			assert.Equal(t, [2]string{"system:playback_1", "system:playback_2"}, rec.Playback)
			cancel()
		}),
	)

	require.NoError(t, s.Run(ctx))

	assert.ElementsMatch(t, []graph.Edge{
		{Source: "player:out_1", Destination: "safelistn:inL"},
		{Source: "player:out_2", Destination: "safelistn:inR"},
		{Source: "safelistn:outL", Destination: "system:playback_1"},
		{Source: "safelistn:outR", Destination: "system:playback_2"},
	}, arranged)
	assert.ElementsMatch(t, original, g.Edges())

	events := host.Events()
	require.GreaterOrEqual(t, len(events), 4)
	assert.Equal(t, []string{"bind", "activate"}, events[:2])
	assert.Equal(t, "disconnect player:out_1 system:playback_1", events[2])
	assert.Equal(t, "deactivate", events[len(events)-1])

	_, isCompressor := host.proc.(*dynamics.Compressor)
	assert.True(t, isCompressor)
}

func TestRunLimiterMode(t *testing.T) {
	log, _ := test.NewNullLogger()
	host := newFakeHost(playerGraph(t))

	cfg := config.Default()
	cfg.Mode = dynamics.ModeLimiter

	ctx, cancel := context.WithCancel(context.Background())
	s := New(cfg, host, WithLogger(log), WithArranged(func(graph.Record) { cancel() }))
	require.NoError(t, s.Run(ctx))

	_, isLimiter := host.proc.(*dynamics.HardLimiter)
	assert.True(t, isLimiter)
}

func TestRunInvalidConfigRegistersNothing(t *testing.T) {
	log, _ := test.NewNullLogger()
	host := newFakeHost(playerGraph(t))

	cfg := config.Default()
	cfg.Dynamics.Ratio = 0.5

	err := New(cfg, host, WithLogger(log)).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, config.ErrCodeInvalidConfig, config.Code(err))
	assert.Empty(t, host.Events())
}

func TestRunBindFailure(t *testing.T) {
	log, _ := test.NewNullLogger()
	host := newFakeHost(playerGraph(t))
	host.bindErr = errors.New("port name taken")

	err := New(config.Default(), host, WithLogger(log)).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, config.ErrCodeHostUnavailable, config.Code(err))
	assert.Equal(t, []string{"bind"}, host.Events())
}

func TestRunPlaybackNotFound(t *testing.T) {
	log, _ := test.NewNullLogger()
	host := newFakeHost(graphtest.New())

	err := New(config.Default(), host, WithLogger(log)).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, config.ErrCodePlaybackNotFound, config.Code(err))
	assert.Equal(t, []string{"bind", "activate", "deactivate"}, host.Events())
}

func TestRunHostShutdownSkipsRestore(t *testing.T) {
	log, hook := test.NewNullLogger()
	g := playerGraph(t)
	host := newFakeHost(g)

	s := New(config.Default(), host,
		WithLogger(log),
		WithArranged(func(graph.Record) { close(host.done) }),
	)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, config.ErrCodeHostUnavailable, config.Code(err))

	events := host.Events()
	assert.NotContains(t, events, "deactivate")
	assert.Contains(t, g.Edges(), graph.Edge{Source: "safelistn:outL", Destination: "system:playback_1"})

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Audio server shut down, skipping restore", hook.LastEntry().Message)
}

func TestRunReportsBothPhases(t *testing.T) {
	log, _ := test.NewNullLogger()
	g := playerGraph(t)
	g.FailDisconnect("player:out_2", "system:playback_2", errors.New("busy"))
	host := newFakeHost(g)

	ctx, cancel := context.WithCancel(context.Background())
	reports := map[string]*graph.Report{}
	var phases []string

	s := New(config.Default(), host,
		WithLogger(log),
		WithReportObserver(func(phase string, r *graph.Report) {
			phases = append(phases, phase)
			reports[phase] = r
		}),
		WithArranged(func(graph.Record) { cancel() }),
	)
	require.NoError(t, s.Run(ctx))

	assert.Equal(t, []string{"arrange", "disarrange"}, phases)
	require.Len(t, reports["arrange"].Failures, 1)
	assert.Equal(t, graph.OpDisconnect, reports["arrange"].Failures[0].Op)
	assert.Equal(t, 1, reports["arrange"].Moved)
}

func TestDryRunLeavesLiveGraphUntouched(t *testing.T) {
	log, _ := test.NewNullLogger()
	live := playerGraph(t)
	before := live.Edges()

	plan, err := DryRun(context.Background(), config.Default(), live, 48000, log)
	require.NoError(t, err)

	assert.Equal(t, before, live.Edges())
	assert.Empty(t, live.Calls())

	assert.ElementsMatch(t, before, plan.Before)
	assert.ElementsMatch(t, before, plan.Restored)
	assert.Contains(t, plan.Arranged, graph.Edge{Source: "player:out_1", Destination: "safelistn:inL"})
	assert.Contains(t, plan.Arranged, graph.Edge{Source: "safelistn:outR", Destination: "system:playback_2"})
	assert.True(t, plan.Reports["arrange"].OK())
	assert.True(t, plan.Reports["disarrange"].OK())
}

func TestDryRunInvalidConfig(t *testing.T) {
	log, _ := test.NewNullLogger()

	cfg := config.Default()
	cfg.Dynamics.AttackMs = 0

	_, err := DryRun(context.Background(), cfg, playerGraph(t), 48000, log)
	require.Error(t, err)
	assert.Equal(t, config.ErrCodeInvalidConfig, config.Code(err))
}
