package core

// StreamConfig describes how a signal is cut into host-sized blocks when it
// is rendered outside a running audio server.
type StreamConfig struct {
	SampleRate float64
	BlockSize  int
}

// StreamOption mutates a StreamConfig.
type StreamOption func(*StreamConfig)

// DefaultStreamConfig mirrors a common JACK setup: 48 kHz, 256 frames.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate: 48000,
		BlockSize:  256,
	}
}

// WithSampleRate sets the stream sample rate.
func WithSampleRate(sampleRate float64) StreamOption {
	return func(cfg *StreamConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the frames per block.
func WithBlockSize(blockSize int) StreamOption {
	return func(cfg *StreamConfig) {
		if blockSize > 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// ApplyStreamOptions applies zero or more options to the default config.
func ApplyStreamOptions(opts ...StreamOption) StreamConfig {
	cfg := DefaultStreamConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Blocks calls fn with consecutive [start, end) frame ranges covering n frames.
// The last range may be shorter than BlockSize.
func (c StreamConfig) Blocks(n int, fn func(start, end int)) {
	size := c.BlockSize
	if size <= 0 {
		size = DefaultStreamConfig().BlockSize
	}

	for start := 0; start < n; start += size {
		fn(start, min(start+size, n))
	}
}
