package graphtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/safelistn/graph"
)

func TestGraphPortsMatchPrefixAndFlags(t *testing.T) {
	g := NewSystem()
	g.AddPort("system:capture_1", graph.FlagOutput|graph.FlagPhysical)
	g.AddPort("mpv:out_0", graph.FlagOutput)
	g.AddPort("system:playback_1", graph.FlagInput) // duplicate, ignored

	assert.Equal(t, []string{"system:playback_1", "system:playback_2"}, g.Ports("system:playback_", graph.FlagInput))
	assert.Equal(t, []string{"system:capture_1"}, g.Ports("system:", graph.FlagOutput|graph.FlagPhysical))
	assert.Len(t, g.Ports("", 0), 4)
}

func TestGraphConnectionSemantics(t *testing.T) {
	g := NewSystem()
	g.AddPort("mpv:out_0", graph.FlagOutput)

	require.NoError(t, g.Connect("mpv:out_0", "system:playback_1"))
	assert.ErrorIs(t, g.Connect("mpv:out_0", "system:playback_1"), ErrAlreadyConnected)
	assert.ErrorIs(t, g.Connect("system:playback_1", "mpv:out_0"), ErrDirection)
	assert.ErrorIs(t, g.Connect("ghost:out", "system:playback_1"), ErrNoSuchPort)

	sources, err := g.Connections("system:playback_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"mpv:out_0"}, sources)

	dests, err := g.Connections("mpv:out_0")
	require.NoError(t, err)
	assert.Equal(t, []string{"system:playback_1"}, dests)

	require.NoError(t, g.Disconnect("mpv:out_0", "system:playback_1"))
	assert.ErrorIs(t, g.Disconnect("mpv:out_0", "system:playback_1"), ErrNotConnected)
	assert.Empty(t, g.Edges())

	_, err = g.Connections("ghost:in")
	assert.ErrorIs(t, err, ErrNoSuchPort)
}

func TestGraphFailureInjection(t *testing.T) {
	g := NewSystem()
	g.AddPort("a:out", graph.FlagOutput)
	boom := errors.New("boom")

	g.FailConnect("a:out", "system:playback_1", boom)
	assert.ErrorIs(t, g.Connect("a:out", "system:playback_1"), boom)
	assert.Empty(t, g.Edges())

	require.NoError(t, g.Link("a:out", "system:playback_1"))
	g.FailDisconnect("a:out", "system:playback_1", boom)
	assert.ErrorIs(t, g.Disconnect("a:out", "system:playback_1"), boom)
	assert.Len(t, g.Edges(), 1)

	g.FailQuery("system:playback_1", boom)
	_, err := g.Connections("system:playback_1")
	assert.ErrorIs(t, err, boom)

	calls := g.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, graph.OpConnect, calls[0].Op)
	assert.ErrorIs(t, calls[1].Err, boom)
}

func TestSnapshotCopiesPlaybackWiring(t *testing.T) {
	live := NewSystem()
	live.AddPort("mpv:out_0", graph.FlagOutput)
	live.AddPort("mpv:out_1", graph.FlagOutput)
	require.NoError(t, live.Link("mpv:out_0", "system:playback_1"))
	require.NoError(t, live.Link("mpv:out_1", "system:playback_2"))

	ports := graph.ClientPorts("safelistn")
	snap, err := Snapshot(live, ports)
	require.NoError(t, err)

	assert.ElementsMatch(t, live.Edges(), snap.Edges())
	assert.Equal(t, []string{ports.InL, ports.InR}, snap.Ports("safelistn:in", graph.FlagInput))

	require.NoError(t, snap.Disconnect("mpv:out_0", "system:playback_1"))
	assert.Len(t, live.Edges(), 2, "snapshot must not alias the live graph")
}

func TestSnapshotQueryFailure(t *testing.T) {
	live := NewSystem()
	live.FailQuery("system:playback_2", errors.New("down"))

	_, err := Snapshot(live, graph.ClientPorts("x"))
	assert.Error(t, err)
}
