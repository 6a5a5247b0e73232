// Package config holds safelistn's startup configuration: defaults, an
// optional YAML file, and validation that runs before any port is registered.
package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/agilira/go-errors"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/graph"
)

// Error codes for configuration and host startup failures.
const (
	ErrCodeInvalidConfig    = "SAFELISTN_INVALID_CONFIG"
	ErrCodeConfigFile       = "SAFELISTN_CONFIG_FILE"
	ErrCodeHostUnavailable  = "SAFELISTN_HOST_UNAVAILABLE"
	ErrCodePlaybackNotFound = "SAFELISTN_PLAYBACK_NOT_FOUND"
)

// Config is the complete startup configuration.
type Config struct {
	Client   string         `yaml:"client"`
	Mode     dynamics.Mode  `yaml:"mode"`
	Dynamics DynamicsConfig `yaml:"dynamics"`
	Limiter  LimiterConfig  `yaml:"limiter"`
	Routing  RoutingConfig  `yaml:"routing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	LogLevel string         `yaml:"log_level"`
}

// DynamicsConfig configures the compressor. Threshold and makeup gain are
// linear amplitudes.
type DynamicsConfig struct {
	Threshold  float64 `yaml:"threshold"`
	Ratio      float64 `yaml:"ratio"`
	AttackMs   float64 `yaml:"attack_ms"`
	ReleaseMs  float64 `yaml:"release_ms"`
	MakeupGain float64 `yaml:"makeup_gain"`
}

// LimiterConfig configures the hard limiter.
type LimiterConfig struct {
	Threshold float64 `yaml:"threshold"`
}

// RoutingConfig controls the playback splice.
type RoutingConfig struct {
	Playback string `yaml:"playback"`
	// Confirm waits for the server to show each change; otherwise a fixed
	// SettleDelay is slept between teardown steps.
	Confirm       bool          `yaml:"confirm"`
	SettleTimeout time.Duration `yaml:"settle_timeout"`
	SettleDelay   time.Duration `yaml:"settle_delay"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := dynamics.DefaultParams()
	return Config{
		Client: "safelistn",
		Mode:   dynamics.ModeCompressor,
		Dynamics: DynamicsConfig{
			Threshold:  p.Threshold,
			Ratio:      p.Ratio,
			AttackMs:   p.AttackMs,
			ReleaseMs:  p.ReleaseMs,
			MakeupGain: p.MakeupGain,
		},
		Limiter: LimiterConfig{Threshold: p.LimiterThreshold},
		Routing: RoutingConfig{
			Playback:      graph.DefaultPlaybackPattern,
			Confirm:       true,
			SettleTimeout: 2 * time.Second,
			SettleDelay:   500 * time.Millisecond,
		},
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, ErrCodeConfigFile, "failed to read config file "+path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, ErrCodeConfigFile, "failed to parse config file "+path)
	}

	return cfg, nil
}

// Params converts the processor sections for dynamics.New.
func (c Config) Params() dynamics.Params {
	return dynamics.Params{
		Threshold:        c.Dynamics.Threshold,
		Ratio:            c.Dynamics.Ratio,
		AttackMs:         c.Dynamics.AttackMs,
		ReleaseMs:        c.Dynamics.ReleaseMs,
		MakeupGain:       c.Dynamics.MakeupGain,
		LimiterThreshold: c.Limiter.Threshold,
	}
}

// Ports returns the port names of the configured client.
func (c Config) Ports() graph.Ports {
	p := graph.ClientPorts(c.Client)
	if c.Routing.Playback != "" {
		p.Playback = c.Routing.Playback
	}
	return p
}

// Settler returns the settle strategy for the rewirer.
func (c Config) Settler() graph.Settler {
	if c.Routing.Confirm {
		return graph.ConfirmSettler{Timeout: c.Routing.SettleTimeout}
	}
	return graph.DelaySettler{Delay: c.Routing.SettleDelay}
}

// Validate checks everything that can be checked without the audio server.
// The processor parameters are validated by building a processor at a
// nominal 48 kHz; the live sample rate is checked again at startup.
func (c Config) Validate() error {
	if c.Client == "" {
		return errors.New(ErrCodeInvalidConfig, "client name must not be empty")
	}
	if c.Routing.SettleTimeout < 0 || c.Routing.SettleDelay < 0 {
		return errors.New(ErrCodeInvalidConfig, "settle durations must not be negative")
	}
	if _, err := dynamics.New(c.Mode, c.Params(), 48000); err != nil {
		return errors.Wrap(err, ErrCodeInvalidConfig, fmt.Sprintf("invalid %s parameters", c.Mode))
	}
	return nil
}

// Code returns the error code carried by err, or "" if it has none.
func Code(err error) string {
	var coder errors.ErrorCoder
	if stderrors.As(err, &coder) {
		return string(coder.ErrorCode())
	}
	return ""
}
