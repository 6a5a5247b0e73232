package main

import (
	"github.com/agilira/go-errors"
	"github.com/spf13/pflag"

	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/internal/config"
)

// addProcessorFlags registers the flags shared by every command that builds
// a processor.
func addProcessorFlags(fs *pflag.FlagSet) {
	d := config.Default()

	fs.StringP("config", "c", "", "YAML config file")
	fs.StringP("mode", "m", d.Mode.String(), "Processor: compressor or limiter")
	fs.Float64("threshold", d.Dynamics.Threshold, "Compressor threshold (linear, 0..1)")
	fs.Float64("ratio", d.Dynamics.Ratio, "Compressor ratio (>= 1)")
	fs.Float64("attack", d.Dynamics.AttackMs, "Compressor attack time in ms")
	fs.Float64("release", d.Dynamics.ReleaseMs, "Compressor release time in ms")
	fs.Float64("makeup", d.Dynamics.MakeupGain, "Linear makeup gain")
	fs.Float64("limiter-threshold", d.Limiter.Threshold, "Hard limiter threshold (linear)")
}

// addRoutingFlags registers the flags of commands that talk to the server.
func addRoutingFlags(fs *pflag.FlagSet) {
	d := config.Default()

	fs.String("client", d.Client, "JACK client name")
	fs.String("playback", d.Routing.Playback, "Playback port name pattern")
	fs.Bool("no-confirm", false, "Sleep a fixed delay between teardown steps instead of polling the server")
	fs.Duration("settle-timeout", d.Routing.SettleTimeout, "Maximum wait for the server to show each change")
	fs.Duration("settle-delay", d.Routing.SettleDelay, "Fixed wait used with --no-confirm")
	fs.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9110)")
}

// loadConfig builds the effective configuration: defaults, then the file
// named by --config, then every flag set on the command line. The result
// is validated.
func loadConfig(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()

	if path, _ := fs.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if err := applyFlags(&cfg, fs); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// applyFlags copies every changed flag into cfg. Flags absent from fs are
// skipped.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet) error {
	changed := func(name string) bool {
		return fs.Lookup(name) != nil && fs.Changed(name)
	}
	float := func(name string, dst *float64) {
		if changed(name) {
			*dst, _ = fs.GetFloat64(name)
		}
	}

	if changed("mode") {
		s, _ := fs.GetString("mode")
		mode, err := dynamics.ParseMode(s)
		if err != nil {
			return errors.Wrap(err, config.ErrCodeInvalidConfig, "invalid --mode")
		}
		cfg.Mode = mode
	}

	float("threshold", &cfg.Dynamics.Threshold)
	float("ratio", &cfg.Dynamics.Ratio)
	float("attack", &cfg.Dynamics.AttackMs)
	float("release", &cfg.Dynamics.ReleaseMs)
	float("makeup", &cfg.Dynamics.MakeupGain)
	float("limiter-threshold", &cfg.Limiter.Threshold)

	if changed("client") {
		cfg.Client, _ = fs.GetString("client")
	}
	if changed("playback") {
		cfg.Routing.Playback, _ = fs.GetString("playback")
	}
	if changed("no-confirm") {
		noConfirm, _ := fs.GetBool("no-confirm")
		cfg.Routing.Confirm = !noConfirm
	}
	if changed("settle-timeout") {
		cfg.Routing.SettleTimeout, _ = fs.GetDuration("settle-timeout")
	}
	if changed("settle-delay") {
		cfg.Routing.SettleDelay, _ = fs.GetDuration("settle-delay")
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr, _ = fs.GetString("metrics-addr")
	}
	if changed("log-level") {
		cfg.LogLevel, _ = fs.GetString("log-level")
	}

	return nil
}
