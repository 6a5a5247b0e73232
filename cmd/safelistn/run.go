package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/agilira/go-errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/graph"
	"github.com/cwbudde/safelistn/internal/config"
	"github.com/cwbudde/safelistn/internal/jackhost"
	"github.com/cwbudde/safelistn/internal/metering"
	"github.com/cwbudde/safelistn/internal/session"
)

var _ session.AudioHost = (*jackhost.Client)(nil)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process playback until interrupted",
	Long: `Connects to the running JACK server, splices the processor into the
playback path and processes audio until Enter is pressed (on a terminal),
SIGINT or SIGTERM is received, or the server goes away.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		if err := setupLogging(cfg.LogLevel); err != nil {
			return errors.Wrap(err, config.ErrCodeInvalidConfig, "invalid log level")
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return run(ctx, cfg, dryRun, cmd.OutOrStdout())
	},
}

func run(ctx context.Context, cfg config.Config, dryRun bool, out io.Writer) error {
	log := logrus.StandardLogger()

	client, err := jackhost.Open(cfg.Client, log)
	if err != nil {
		return errors.Wrap(err, config.ErrCodeHostUnavailable, "cannot connect to the JACK server")
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.WithFields(logrus.Fields{
				"function": "run",
				"error":    err,
			}).Warn("Failed to close JACK client")
		}
	}()

	if dryRun {
		plan, err := session.DryRun(ctx, cfg, client, client.SampleRate(), log)
		if err != nil {
			return err
		}
		printPlan(out, plan)
		return nil
	}

	meter := &dynamics.Meter{}
	opts := []session.Option{
		session.WithLogger(log),
		session.WithMeter(meter),
	}

	if cfg.Metrics.Addr != "" {
		collector := metering.NewCollector(meter)
		opts = append(opts, session.WithReportObserver(collector.ObserveReport))

		handler := metering.NewHandler(metering.NewRegistry(collector))
		go func() {
			if err := metering.Serve(ctx, cfg.Metrics.Addr, handler, log); err != nil {
				log.WithFields(logrus.Fields{
					"function": "run",
					"addr":     cfg.Metrics.Addr,
					"error":    err,
				}).Error("Metrics endpoint failed")
			}
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		opts = append(opts, session.WithArranged(func(graph.Record) {
			fmt.Fprintln(out, "Processing. Press Enter to quit.")
		}))
		go waitForEnter(os.Stdin, cancel)
	}

	return session.New(cfg, client, opts...).Run(ctx)
}

func waitForEnter(r io.Reader, cancel context.CancelFunc) {
	_, _ = bufio.NewReader(r).ReadString('\n')
	cancel()
}

func printPlan(w io.Writer, plan *session.Plan) {
	section := func(title string, edges []graph.Edge) {
		fmt.Fprintf(w, "%s:\n", title)
		if len(edges) == 0 {
			fmt.Fprintln(w, "  (none)")
		}
		for _, e := range edges {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	section("current", plan.Before)
	section("while running", plan.Arranged)
	section("after exit", plan.Restored)

	for _, phase := range []string{"arrange", "disarrange"} {
		if r := plan.Reports[phase]; r != nil && !r.OK() {
			fmt.Fprintf(w, "%s: %v\n", phase, r.Err())
		}
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	addProcessorFlags(runCmd.Flags())
	addRoutingFlags(runCmd.Flags())
	runCmd.Flags().Bool("dry-run", false, "Print the planned rewiring on a copy of the graph and exit")
}
