package main

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/agilira/go-errors"
	"github.com/spf13/cobra"

	"github.com/cwbudde/safelistn/dsp/core"
	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/internal/config"
)

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Print the static transfer curve of the configured processor",
	Long: `Prints output level and gain for a range of constant input levels, using
the steady-state transfer curve (no attack or release).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}

		from, _ := cmd.Flags().GetFloat64("from")
		to, _ := cmd.Flags().GetFloat64("to")
		step, _ := cmd.Flags().GetFloat64("step")
		if step <= 0 || from > to {
			return errors.New(config.ErrCodeInvalidConfig, "curve range needs --from <= --to and --step > 0")
		}

		p, err := dynamics.New(cfg.Mode, cfg.Params(), 48000)
		if err != nil {
			return errors.Wrap(err, config.ErrCodeInvalidConfig, "cannot build processor")
		}

		return writeCurve(cmd.OutOrStdout(), p, from, to, step)
	},
}

// writeCurve tabulates p's steady-state output for inputs from..to dBFS.
func writeCurve(w io.Writer, p dynamics.StereoProcessor, from, to, step float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "in dBFS\tout dBFS\tgain dB\t")

	n := int(math.Floor((to-from)/step+1e-9)) + 1
	for i := range n {
		in := from + float64(i)*step
		lin := core.DBToLinear(in)
		outLin := p.CalculateOutputLevel(lin)
		fmt.Fprintf(tw, "%.1f\t%.2f\t%.2f\t\n", in,
			hundredths(core.LinearToDB(outLin)), hundredths(core.LinearToDB(outLin/lin)))
	}

	return tw.Flush()
}

// hundredths rounds v for printing; the added zero turns -0 into 0.
func hundredths(v float64) float64 {
	return math.Round(v*100)/100 + 0
}

func init() {
	rootCmd.AddCommand(curveCmd)

	addProcessorFlags(curveCmd.Flags())
	curveCmd.Flags().Float64("from", -60, "First input level in dBFS")
	curveCmd.Flags().Float64("to", 0, "Last input level in dBFS")
	curveCmd.Flags().Float64("step", 6, "Input level step in dB")
}
