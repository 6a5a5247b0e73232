// Package level computes block level statistics of a rendered signal:
// peak, RMS, DC offset and crest factor.
package level

import "math"

// Stats holds level statistics of one signal.
//
//nolint:revive
type Stats struct {
	Length         int
	DC             float64
	RMS            float64
	RMS_dB         float64
	Peak           float64
	Peak_dB        float64
	CrestFactor    float64 // Peak / RMS
	CrestFactor_dB float64
}

func ampTodB(value float64) float64 {
	a := math.Abs(value)
	if a == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(a)
}

// Calculate computes all statistics in one pass. An empty or silent signal
// reports -Inf levels and a zero crest factor.
func Calculate(signal []float64) Stats {
	s := Stats{
		Length:  len(signal),
		RMS_dB:  math.Inf(-1),
		Peak_dB: math.Inf(-1),
	}
	if len(signal) == 0 {
		return s
	}

	var sum, sumSq float64
	for _, x := range signal {
		sum += x
		sumSq += x * x
		s.Peak = max(s.Peak, math.Abs(x))
	}

	n := float64(len(signal))
	s.DC = sum / n
	s.RMS = math.Sqrt(sumSq / n)
	s.RMS_dB = ampTodB(s.RMS)
	s.Peak_dB = ampTodB(s.Peak)

	if s.RMS > 0 {
		s.CrestFactor = s.Peak / s.RMS
		s.CrestFactor_dB = ampTodB(s.CrestFactor)
	}

	return s
}

// RMS returns the root-mean-square of the signal.
func RMS(signal []float64) float64 {
	if len(signal) == 0 {
		return 0
	}

	var sumSq float64
	for _, x := range signal {
		sumSq += x * x
	}

	return math.Sqrt(sumSq / float64(len(signal)))
}

// Peak returns the peak absolute amplitude of the signal.
func Peak(signal []float64) float64 {
	var peak float64
	for _, x := range signal {
		peak = max(peak, math.Abs(x))
	}

	return peak
}

// CrestFactor returns Peak / RMS, or 0 for a silent signal.
func CrestFactor(signal []float64) float64 {
	r := RMS(signal)
	if r == 0 {
		return 0
	}

	return Peak(signal) / r
}
