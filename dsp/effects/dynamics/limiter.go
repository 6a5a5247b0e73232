package dynamics

import (
	"fmt"

	"github.com/cwbudde/safelistn/dsp/core"
)

// HardLimiter folds every sample whose magnitude exceeds the threshold back
// toward it by half of the excess:
//
//	x >  t: t + (x-t)/2
//	x < -t: -t + (x+t)/2
//
// It keeps no state between samples and reacts instantaneously. Channels are
// limited independently, so a loud left channel is reduced while a quiet
// right channel is not; the stereo image moves. Use Compressor when the
// balance must be preserved.
type HardLimiter struct {
	threshold float64
}

// NewHardLimiter returns a limiter folding above threshold (linear, > 0).
func NewHardLimiter(threshold float64) (*HardLimiter, error) {
	if threshold <= 0 || !core.IsFinite(threshold) {
		return nil, fmt.Errorf("%w: limiter threshold must be positive and finite: %f", ErrInvalidParameter, threshold)
	}

	return &HardLimiter{threshold: threshold}, nil
}

// Threshold returns the linear threshold.
func (l *HardLimiter) Threshold() float64 { return l.threshold }

// Clamp limits a single sample.
func (l *HardLimiter) Clamp(x float64) float64 {
	switch {
	case x > l.threshold:
		return l.threshold + (x-l.threshold)/2
	case x < -l.threshold:
		return -l.threshold + (x+l.threshold)/2
	default:
		return x
	}
}

// ProcessSample limits left and right independently.
func (l *HardLimiter) ProcessSample(left, right float64) (float64, float64) {
	return l.Clamp(left), l.Clamp(right)
}

// CalculateOutputLevel returns the limited magnitude of a constant input.
func (l *HardLimiter) CalculateOutputLevel(inputMagnitude float64) float64 {
	if inputMagnitude < 0 {
		inputMagnitude = -inputMagnitude
	}
	return l.Clamp(inputMagnitude)
}

// Reset is a no-op; the limiter is stateless.
func (l *HardLimiter) Reset() {}
