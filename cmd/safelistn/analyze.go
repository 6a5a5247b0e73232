package main

import (
	"fmt"
	"io"

	"github.com/agilira/go-errors"
	"github.com/spf13/cobra"

	"github.com/cwbudde/safelistn/dsp/core"
	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/internal/config"
	"github.com/cwbudde/safelistn/measure/thd"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Measure distortion and gain of the configured processor offline",
	Long: `Renders a sine through the processor in audio-server sized blocks, lets
it settle, and reports the level change and harmonic distortion of the
settled output. No server is needed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}

		fs := cmd.Flags()
		tone := thd.DefaultTone()
		tone.Frequency, _ = fs.GetFloat64("frequency")
		levelDB, _ := fs.GetFloat64("level")
		tone.Amplitude = core.DBToLinear(levelDB)
		tone.Length, _ = fs.GetInt("length")

		rate, _ := fs.GetFloat64("sample-rate")
		block, _ := fs.GetInt("block-size")
		stream, err := analysisStream(rate, block)
		if err != nil {
			return err
		}
		tone.Settle = int(stream.SampleRate)

		p, err := dynamics.New(cfg.Mode, cfg.Params(), stream.SampleRate)
		if err != nil {
			return errors.Wrap(err, config.ErrCodeInvalidConfig, "cannot build processor")
		}

		m, err := thd.MeasureProcessor(p, tone, stream)
		if err != nil {
			return errors.Wrap(err, config.ErrCodeInvalidConfig, "cannot measure processor")
		}

		writeMeasurement(cmd.OutOrStdout(), cfg.Mode, levelDB, m)
		return nil
	},
}

// analysisStream rejects rates and block sizes the stream options would
// otherwise replace with their defaults.
func analysisStream(rate float64, block int) (core.StreamConfig, error) {
	if rate <= 0 || !core.IsFinite(rate) || block <= 0 {
		return core.StreamConfig{}, errors.New(config.ErrCodeInvalidConfig,
			fmt.Sprintf("analyze needs --sample-rate > 0 and --block-size > 0, got %g and %d", rate, block))
	}
	return core.ApplyStreamOptions(core.WithSampleRate(rate), core.WithBlockSize(block)), nil
}

func writeMeasurement(w io.Writer, mode dynamics.Mode, levelDB float64, m thd.Measurement) {
	fmt.Fprintf(w, "processor:   %s\n", mode)
	fmt.Fprintf(w, "tone:        %.1f Hz at %.1f dBFS\n", m.FundamentalFreq, levelDB)
	fmt.Fprintf(w, "gain:        %.2f dB\n", m.GainDB)
	fmt.Fprintf(w, "peak:        %.2f -> %.2f dBFS\n", m.Input.Peak_dB, m.Output.Peak_dB)
	fmt.Fprintf(w, "crest:       %.2f -> %.2f dB\n", m.Input.CrestFactor_dB, m.Output.CrestFactor_dB)
	fmt.Fprintf(w, "THD:         %.4f%% (%.1f dB)\n", m.THD*100, m.THD_dB)
	fmt.Fprintf(w, "THD+N:       %.4f%% (%.1f dB)\n", m.THDN*100, m.THDN_dB)
	fmt.Fprintf(w, "odd / even:  %.4f%% / %.4f%%\n", m.OddHD*100, m.EvenHD*100)
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	d := thd.DefaultTone()
	s := core.DefaultStreamConfig()

	addProcessorFlags(analyzeCmd.Flags())
	analyzeCmd.Flags().Float64("frequency", d.Frequency, "Test tone frequency in Hz")
	analyzeCmd.Flags().Float64("level", core.LinearToDB(d.Amplitude), "Test tone level in dBFS")
	analyzeCmd.Flags().Int("length", d.Length, "Analysis length in samples (power of two)")
	analyzeCmd.Flags().Float64("sample-rate", s.SampleRate, "Sample rate in Hz")
	analyzeCmd.Flags().Int("block-size", s.BlockSize, "Frames per processing block")
}
