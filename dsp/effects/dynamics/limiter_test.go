package dynamics

import (
	"errors"
	"math"
	"testing"
)

func TestNewHardLimiter(t *testing.T) {
	for _, threshold := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
		if _, err := NewHardLimiter(threshold); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("NewHardLimiter(%v) error = %v, want ErrInvalidParameter", threshold, err)
		}
	}

	l, err := NewHardLimiter(0.1)
	if err != nil {
		t.Fatalf("NewHardLimiter() error = %v", err)
	}
	if l.Threshold() != 0.1 {
		t.Fatalf("Threshold() = %v, want 0.1", l.Threshold())
	}
}

// TestHardLimiterInRangeUnchanged checks in-range samples are returned as is.
func TestHardLimiterInRangeUnchanged(t *testing.T) {
	l, _ := NewHardLimiter(0.1)

	for _, x := range []float64{0, 0.05, -0.05, 0.1, -0.1, 1e-9} {
		if got := l.Clamp(x); got != x {
			t.Fatalf("Clamp(%v) = %v, want unchanged", x, got)
		}
	}
}

func TestHardLimiterFold(t *testing.T) {
	l, _ := NewHardLimiter(0.1)

	tests := []struct {
		in   float64
		want float64
	}{
		{0.3, 0.2},
		{-0.3, -0.2},
		{1.1, 0.6},
		{-1.1, -0.6},
	}

	for _, tt := range tests {
		if got := l.Clamp(tt.in); math.Abs(got-tt.want) > 1e-15 {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHardLimiterSymmetric(t *testing.T) {
	l, _ := NewHardLimiter(0.25)

	for x := 0.0; x < 2; x += 0.01 {
		if pos, neg := l.Clamp(x), l.Clamp(-x); pos != -neg {
			t.Fatalf("Clamp(%v) = %v but Clamp(%v) = %v", x, pos, -x, neg)
		}
	}
}

// TestHardLimiterChannelsIndependent documents the image shift: only the
// channel above threshold is reduced.
func TestHardLimiterChannelsIndependent(t *testing.T) {
	l, _ := NewHardLimiter(0.1)

	lo, ro := l.ProcessSample(0.5, 0.05)
	if math.Abs(lo-0.3) > 1e-15 {
		t.Fatalf("left = %v, want 0.3", lo)
	}
	if ro != 0.05 {
		t.Fatalf("right = %v, want 0.05 (untouched)", ro)
	}
	if lo/0.5 == ro/0.05 {
		t.Fatal("limiter unexpectedly applied a linked gain")
	}
}

func TestHardLimiterStateless(t *testing.T) {
	l, _ := NewHardLimiter(0.1)

	first, _ := l.ProcessSample(0.7, 0)
	for range 100 {
		l.ProcessSample(1, -1)
	}
	again, _ := l.ProcessSample(0.7, 0)

	if first != again {
		t.Fatalf("output depends on history: %v then %v", first, again)
	}
	if got := l.CalculateOutputLevel(-0.7); got != first {
		t.Fatalf("CalculateOutputLevel(-0.7) = %v, want %v", got, first)
	}
}
