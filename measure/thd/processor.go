package thd

import (
	"fmt"
	"math"

	"github.com/cwbudde/safelistn/dsp/core"
	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/stats/level"
)

// Tone is the steady test signal rendered through a processor.
type Tone struct {
	Frequency float64
	Amplitude float64
	// Settle samples are rendered and discarded so envelope followers
	// reach steady state before analysis.
	Settle int
	// Length is the analysed sample count and FFT size; a power of two.
	Length int
}

// DefaultTone is a 1 kHz sine at -6 dBFS with one second of settling.
func DefaultTone() Tone {
	return Tone{
		Frequency: 1000,
		Amplitude: 0.5,
		Settle:    48000,
		Length:    8192,
	}
}

// Measurement is the outcome of MeasureProcessor.
type Measurement struct {
	Result
	Input  level.Stats
	Output level.Stats
	// GainDB is the steady-state level change, output relative to input.
	GainDB float64
}

// BinCentred moves freq to the nearest bin centre of an n-point FFT.
func BinCentred(freq, sampleRate float64, n int) float64 {
	binHz := sampleRate / float64(n)
	return math.Max(1, math.Round(freq/binHz)) * binHz
}

// Render feeds the same signal to both inputs of p in stream-sized float32
// blocks, as an audio server would, and returns the left output.
func Render(p dynamics.StereoProcessor, signal []float64, stream core.StreamConfig) []float64 {
	in := core.ToFloat32(nil, signal)
	outL := make([]float32, len(in))
	outR := make([]float32, len(in))

	stream.Blocks(len(in), func(start, end int) {
		dynamics.ProcessBlock(p, nil, in[start:end], in[start:end], outL[start:end], outR[start:end])
	})

	return core.ToFloat64(nil, outL)
}

// MeasureProcessor renders tone through p and analyses the settled output.
// The tone frequency is moved to a bin centre of the analysis FFT.
func MeasureProcessor(p dynamics.StereoProcessor, tone Tone, stream core.StreamConfig) (Measurement, error) {
	if tone.Length <= 1 || tone.Length&(tone.Length-1) != 0 {
		return Measurement{}, fmt.Errorf("thd: length must be a power of two > 1: %d", tone.Length)
	}
	if tone.Settle < 0 {
		return Measurement{}, fmt.Errorf("thd: settle must be non-negative: %d", tone.Settle)
	}
	if tone.Amplitude <= 0 || !core.IsFinite(tone.Amplitude) {
		return Measurement{}, fmt.Errorf("thd: amplitude must be positive and finite: %f", tone.Amplitude)
	}
	if stream.SampleRate <= 0 {
		return Measurement{}, fmt.Errorf("thd: sample rate must be positive: %f", stream.SampleRate)
	}

	freq := BinCentred(tone.Frequency, stream.SampleRate, tone.Length)
	if freq >= stream.SampleRate/2 {
		return Measurement{}, fmt.Errorf("thd: frequency %.1f Hz is not below Nyquist", freq)
	}

	total := tone.Settle + tone.Length
	signal := make([]float64, total)
	for i := range signal {
		signal[i] = tone.Amplitude * math.Sin(2*math.Pi*freq*float64(i)/stream.SampleRate)
	}

	out := Render(p, signal, stream)[tone.Settle:]

	m := Measurement{
		Result: AnalyzeSignal(out, Config{
			SampleRate:      stream.SampleRate,
			FFTSize:         tone.Length,
			FundamentalFreq: freq,
			RangeUpperFreq:  math.Min(defaultRangeUpperHz, stream.SampleRate/2),
		}),
		Input:  level.Calculate(signal[tone.Settle:]),
		Output: level.Calculate(out),
	}
	m.GainDB = core.LinearToDB(m.Output.RMS / m.Input.RMS)

	return m, nil
}
