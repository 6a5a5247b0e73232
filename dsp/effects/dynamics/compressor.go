package dynamics

import (
	"fmt"
	"math"

	"github.com/cwbudde/safelistn/dsp/core"
)

const (
	// Default compressor parameters
	DefaultThreshold  = 0.1
	DefaultRatio      = 4.0
	DefaultAttackMs   = 5.0
	DefaultReleaseMs  = 150.0
	DefaultMakeupGain = 1.0

	minCompressorRatio = 1.0
)

// Compressor is a stereo-linked peak compressor.
//
// The detector follows max(|L|, |R|) with first-order exponential smoothing,
// using the attack coefficient while the level rises above the envelope and
// the release coefficient otherwise. Gain above the threshold is
//
//	(threshold + (envelope-threshold)/ratio) / envelope
//
// which is continuous at the threshold and never exceeds 1. The same scalar
// gain, multiplied by the makeup gain, is applied to both channels.
//
// A Compressor is owned by a single goroutine (the audio callback). It is not
// safe for concurrent use.
type Compressor struct {
	threshold  float64
	ratio      float64
	attackMs   float64
	releaseMs  float64
	sampleRate float64
	makeupGain float64

	attackCoeff  float64
	releaseCoeff float64

	// Gain curve above threshold as invRatio + kneeOffset/level.
	invRatio   float64
	kneeOffset float64

	envelope float64
	lastGain float64
}

// NewCompressor validates the parameters and derives the smoothing
// coefficients coeff = exp(-1 / (timeMs * 0.001 * sampleRate)).
//
// threshold is a linear amplitude in (0, 1), ratio must be >= 1, attack and
// release times and the sample rate must be positive, and makeupGain must be
// a positive linear factor.
func NewCompressor(threshold, ratio, attackMs, releaseMs, sampleRate, makeupGain float64) (*Compressor, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return nil, fmt.Errorf("%w: compressor sample rate must be positive and finite: %f", ErrInvalidParameter, sampleRate)
	}
	if threshold <= 0 || threshold >= 1 || !core.IsFinite(threshold) {
		return nil, fmt.Errorf("%w: compressor threshold must be in (0, 1): %f", ErrInvalidParameter, threshold)
	}
	if ratio < minCompressorRatio || !core.IsFinite(ratio) {
		return nil, fmt.Errorf("%w: compressor ratio must be >= %.0f: %f", ErrInvalidParameter, minCompressorRatio, ratio)
	}
	if attackMs <= 0 || !core.IsFinite(attackMs) {
		return nil, fmt.Errorf("%w: compressor attack must be positive: %f", ErrInvalidParameter, attackMs)
	}
	if releaseMs <= 0 || !core.IsFinite(releaseMs) {
		return nil, fmt.Errorf("%w: compressor release must be positive: %f", ErrInvalidParameter, releaseMs)
	}
	if makeupGain <= 0 || !core.IsFinite(makeupGain) {
		return nil, fmt.Errorf("%w: compressor makeup gain must be positive: %f", ErrInvalidParameter, makeupGain)
	}

	c := &Compressor{
		threshold:    threshold,
		ratio:        ratio,
		attackMs:     attackMs,
		releaseMs:    releaseMs,
		sampleRate:   sampleRate,
		makeupGain:   makeupGain,
		attackCoeff:  core.TimeConstantCoeff(attackMs, sampleRate),
		releaseCoeff: core.TimeConstantCoeff(releaseMs, sampleRate),
		lastGain:     1,
	}
	c.invRatio = 1 / ratio
	c.kneeOffset = threshold * (1 - c.invRatio)

	return c, nil
}

// Threshold returns the linear threshold.
func (c *Compressor) Threshold() float64 { return c.threshold }

// Ratio returns the compression ratio.
func (c *Compressor) Ratio() float64 { return c.ratio }

// Attack returns the attack time in milliseconds.
func (c *Compressor) Attack() float64 { return c.attackMs }

// Release returns the release time in milliseconds.
func (c *Compressor) Release() float64 { return c.releaseMs }

// SampleRate returns the sample rate in Hz.
func (c *Compressor) SampleRate() float64 { return c.sampleRate }

// MakeupGain returns the linear makeup gain.
func (c *Compressor) MakeupGain() float64 { return c.makeupGain }

// AttackCoeff returns the per-sample attack smoothing factor.
func (c *Compressor) AttackCoeff() float64 { return c.attackCoeff }

// ReleaseCoeff returns the per-sample release smoothing factor.
func (c *Compressor) ReleaseCoeff() float64 { return c.releaseCoeff }

// Envelope returns the current detector envelope.
func (c *Compressor) Envelope() float64 { return c.envelope }

// LastGain returns the compression gain (without makeup) applied to the most
// recent sample pair.
func (c *Compressor) LastGain() float64 { return c.lastGain }

// ProcessSample compresses one stereo frame.
func (c *Compressor) ProcessSample(left, right float64) (float64, float64) {
	level := math.Max(math.Abs(left), math.Abs(right))
	if !core.IsFinite(level) {
		// Keep the envelope out of NaN/Inf; the frame itself passes through.
		level = c.envelope
	}

	// coeff*env + (1-coeff)*level, written as an increment so a settled
	// envelope stays exactly on the level instead of dithering by one ulp.
	if level > c.envelope {
		c.envelope += (level - c.envelope) * (1 - c.attackCoeff)
	} else {
		c.envelope = core.FlushDenormals(c.envelope + (level-c.envelope)*(1-c.releaseCoeff))
	}

	c.lastGain = c.GainForLevel(c.envelope)
	g := c.lastGain * c.makeupGain

	return left * g, right * g
}

// GainForLevel evaluates the static gain curve (without makeup) for an
// envelope level.
func (c *Compressor) GainForLevel(level float64) float64 {
	if level <= c.threshold {
		return 1
	}

	// Equal to (threshold + (level-threshold)/ratio) / level. With a single
	// rounded division the result never rises as level rises.
	return min(1, c.invRatio+c.kneeOffset/level)
}

// CalculateOutputLevel computes the steady-state output level, makeup
// included, for a constant input magnitude.
func (c *Compressor) CalculateOutputLevel(inputMagnitude float64) float64 {
	inputMagnitude = math.Abs(inputMagnitude)
	return inputMagnitude * c.GainForLevel(inputMagnitude) * c.makeupGain
}

// Reset clears the envelope. A live processor is never reset; this exists for
// offline rendering where one instance analyses several signals.
func (c *Compressor) Reset() {
	c.envelope = 0
	c.lastGain = 1
}
