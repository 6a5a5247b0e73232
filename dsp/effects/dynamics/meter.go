package dynamics

import (
	"math"
	"sync/atomic"
)

// Meter carries the most recent block's levels from the audio callback to
// readers on other goroutines. Publishing is three atomic stores and one
// atomic add; readers may observe values from two adjacent blocks.
//
// The zero value is ready to use.
type Meter struct {
	inputPeak  atomic.Uint64
	outputPeak atomic.Uint64
	gain       atomic.Uint64
	blocks     atomic.Uint64
}

// MeterSnapshot is a point-in-time copy of a Meter.
type MeterSnapshot struct {
	InputPeak  float64 // Maximum |input| of the last block
	OutputPeak float64 // Maximum |output| of the last block
	Gain       float64 // Minimum linked gain of the last block, makeup excluded
	Blocks     uint64  // Blocks published since start
}

// Publish records one block.
func (m *Meter) Publish(inputPeak, outputPeak, gain float64) {
	m.inputPeak.Store(math.Float64bits(inputPeak))
	m.outputPeak.Store(math.Float64bits(outputPeak))
	m.gain.Store(math.Float64bits(gain))
	m.blocks.Add(1)
}

// Snapshot returns the last published values. Before the first block Gain
// is 1.
func (m *Meter) Snapshot() MeterSnapshot {
	blocks := m.blocks.Load()
	if blocks == 0 {
		return MeterSnapshot{Gain: 1}
	}

	return MeterSnapshot{
		InputPeak:  math.Float64frombits(m.inputPeak.Load()),
		OutputPeak: math.Float64frombits(m.outputPeak.Load()),
		Gain:       math.Float64frombits(m.gain.Load()),
		Blocks:     blocks,
	}
}
