package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportErr(t *testing.T) {
	var r Report
	assert.True(t, r.OK())
	assert.NoError(t, r.Err())

	busy := errors.New("busy")
	r.fail(OpDisconnect, Edge{Source: "a:out", Destination: "system:playback_1"}, busy)
	r.fail(OpQuery, Edge{Destination: "system:playback_2"}, errors.New("gone"))

	assert.False(t, r.OK())
	err := r.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, busy)
	assert.Contains(t, err.Error(), "disconnect a:out -> system:playback_1: busy")
	assert.Contains(t, err.Error(), "query system:playback_2: gone")
}

func TestReportUnconfirmedIsNotOK(t *testing.T) {
	r := Report{Unconfirmed: []string{"restore left"}}
	assert.False(t, r.OK())
	assert.NoError(t, r.Err())
}

func TestRecordEdges(t *testing.T) {
	rec := Record{
		Playback: [2]string{"hw:1", "hw:2"},
		Sources:  [2][]string{{"a", "b"}, {"c"}},
	}

	assert.Equal(t, []Edge{
		{Source: "a", Destination: "hw:1"},
		{Source: "b", Destination: "hw:1"},
		{Source: "c", Destination: "hw:2"},
	}, rec.Edges())
}

func TestClientPorts(t *testing.T) {
	p := ClientPorts("safelistn")
	assert.Equal(t, "safelistn:inL", p.InL)
	assert.Equal(t, "safelistn:outR", p.OutR)
	assert.Equal(t, DefaultPlaybackPattern, p.Playback)
}
