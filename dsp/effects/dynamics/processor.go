package dynamics

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidParameter is wrapped by every constructor validation error.
var ErrInvalidParameter = errors.New("invalid dynamics parameter")

// StereoProcessor transforms one stereo frame at a time.
type StereoProcessor interface {
	ProcessSample(left, right float64) (float64, float64)
	// CalculateOutputLevel returns the steady-state output magnitude for a
	// constant input magnitude.
	CalculateOutputLevel(inputMagnitude float64) float64
	Reset()
}

// GainReporter is implemented by processors that apply a single linked gain
// per frame.
type GainReporter interface {
	LastGain() float64
}

// Sample is the element type of a host audio buffer.
type Sample interface {
	~float32 | ~float64
}

// ProcessBlock runs p over one host block. It processes the frames common to
// all four buffers and silences any output frames beyond them. When m is
// non-nil the block's peaks and minimum gain are published to it.
//
// ProcessBlock does not allocate, lock, or block.
func ProcessBlock[S Sample](p StereoProcessor, m *Meter, inL, inR, outL, outR []S) {
	n := min(len(inL), len(inR), len(outL), len(outR))

	gr, linked := p.(GainReporter)

	var inPeak, outPeak float64
	minGain := 1.0

	for i := range n {
		l, r := float64(inL[i]), float64(inR[i])
		lo, ro := p.ProcessSample(l, r)
		outL[i], outR[i] = S(lo), S(ro)

		inPeak = max(inPeak, math.Abs(l), math.Abs(r))
		outPeak = max(outPeak, math.Abs(lo), math.Abs(ro))
		if linked {
			minGain = min(minGain, gr.LastGain())
		}
	}

	clear(outL[n:])
	clear(outR[n:])

	if m == nil {
		return
	}

	if !linked && inPeak > 0 {
		minGain = min(outPeak/inPeak, 1)
	}

	m.Publish(inPeak, outPeak, minGain)
}

// Mode selects the processor driving the audio callback.
type Mode int

const (
	// ModeCompressor is the stereo-linked envelope compressor.
	ModeCompressor Mode = iota
	// ModeLimiter is the stateless per-channel hard limiter.
	ModeLimiter
)

func (m Mode) String() string {
	switch m {
	case ModeCompressor:
		return "compressor"
	case ModeLimiter:
		return "limiter"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "compressor" or "limiter" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compressor", "comp", "":
		return ModeCompressor, nil
	case "limiter", "limit":
		return ModeLimiter, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidParameter, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Params collects the constructor arguments of both processors.
type Params struct {
	Threshold        float64
	Ratio            float64
	AttackMs         float64
	ReleaseMs        float64
	MakeupGain       float64
	LimiterThreshold float64
}

// DefaultParams returns the compressor defaults and a limiter threshold equal
// to the compressor threshold.
func DefaultParams() Params {
	return Params{
		Threshold:        DefaultThreshold,
		Ratio:            DefaultRatio,
		AttackMs:         DefaultAttackMs,
		ReleaseMs:        DefaultReleaseMs,
		MakeupGain:       DefaultMakeupGain,
		LimiterThreshold: DefaultThreshold,
	}
}

// New builds the processor for mode at sampleRate.
func New(mode Mode, p Params, sampleRate float64) (StereoProcessor, error) {
	switch mode {
	case ModeCompressor:
		return NewCompressor(p.Threshold, p.Ratio, p.AttackMs, p.ReleaseMs, sampleRate, p.MakeupGain)
	case ModeLimiter:
		return NewHardLimiter(p.LimiterThreshold)
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidParameter, int(mode))
	}
}
