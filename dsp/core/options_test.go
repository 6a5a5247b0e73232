package core

import "testing"

func TestApplyStreamOptions(t *testing.T) {
	cfg := ApplyStreamOptions(WithSampleRate(96000), WithBlockSize(2048))
	if cfg.SampleRate != 96000 {
		t.Fatalf("sample rate = %v, want 96000", cfg.SampleRate)
	}
	if cfg.BlockSize != 2048 {
		t.Fatalf("block size = %d, want 2048", cfg.BlockSize)
	}
}

func TestInvalidOptionsIgnored(t *testing.T) {
	cfg := ApplyStreamOptions(WithSampleRate(0), WithBlockSize(-1), nil)
	def := DefaultStreamConfig()
	if cfg != def {
		t.Fatalf("cfg = %#v, want %#v", cfg, def)
	}
}

func TestBlocksCoversAllFrames(t *testing.T) {
	cfg := ApplyStreamOptions(WithBlockSize(64))

	var ranges [][2]int
	cfg.Blocks(150, func(start, end int) {
		ranges = append(ranges, [2]int{start, end})
	})

	want := [][2]int{{0, 64}, {64, 128}, {128, 150}}
	if len(ranges) != len(want) {
		t.Fatalf("got %d blocks, want %d", len(ranges), len(want))
	}
	for i := range want {
		if ranges[i] != want[i] {
			t.Fatalf("block %d = %v, want %v", i, ranges[i], want[i])
		}
	}
}

func TestBlocksEmpty(t *testing.T) {
	called := false
	DefaultStreamConfig().Blocks(0, func(int, int) { called = true })
	if called {
		t.Fatal("Blocks(0) must not invoke fn")
	}
}

func TestFloatConversionReusesCapacity(t *testing.T) {
	buf := make([]float32, 0, 8)
	out := ToFloat32(buf, []float64{0.25, -0.5})
	if &out[0] != &buf[:1][0] {
		t.Fatal("ToFloat32 did not reuse capacity")
	}
	back := ToFloat64(nil, out)
	if back[0] != 0.25 || back[1] != -0.5 {
		t.Fatalf("round trip = %v", back)
	}
}
