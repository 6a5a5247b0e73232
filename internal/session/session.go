// Package session sequences one safelistn run: build the processor, bind and
// activate the audio host, splice into the playback path, wait, restore the
// original wiring and deactivate.
package session

import (
	"context"
	"time"

	"github.com/agilira/go-errors"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/graph"
	"github.com/cwbudde/safelistn/internal/config"
)

// DefaultRestoreTimeout bounds Disarrange once the run context is done.
const DefaultRestoreTimeout = 10 * time.Second

// AudioHost is the audio server a session runs on.
type AudioHost interface {
	graph.Host
	SampleRate() float64
	// Bind registers the processor ports and installs p in the process
	// callback. m receives per-block levels and may be nil.
	Bind(p dynamics.StereoProcessor, m *dynamics.Meter) error
	Activate() error
	Deactivate() error
	// Done is closed when the server goes away. A nil channel never fires.
	Done() <-chan struct{}
}

// ReportObserver receives the report of each rewiring phase ("arrange" or
// "disarrange").
type ReportObserver func(phase string, r *graph.Report)

// Session runs a processor on an AudioHost.
type Session struct {
	cfg   config.Config
	host  AudioHost
	log   logrus.FieldLogger
	meter *dynamics.Meter

	observe        ReportObserver
	restoreTimeout time.Duration
	onArranged     func(graph.Record)
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger passed to the session and its rewirer.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMeter publishes block levels to m instead of a private meter.
func WithMeter(m *dynamics.Meter) Option {
	return func(s *Session) {
		if m != nil {
			s.meter = m
		}
	}
}

// WithReportObserver registers fn for rewiring reports.
func WithReportObserver(fn ReportObserver) Option {
	return func(s *Session) { s.observe = fn }
}

// WithRestoreTimeout bounds the teardown rewiring.
func WithRestoreTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.restoreTimeout = d
		}
	}
}

// WithArranged calls fn once the processor has been spliced in.
func WithArranged(fn func(graph.Record)) Option {
	return func(s *Session) { s.onArranged = fn }
}

// New returns a session for cfg on host. cfg should already be validated.
func New(cfg config.Config, host AudioHost, opts ...Option) *Session {
	s := &Session{
		cfg:            cfg,
		host:           host,
		log:            logrus.StandardLogger(),
		meter:          &dynamics.Meter{},
		restoreTimeout: DefaultRestoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Meter returns the meter the processor publishes to.
func (s *Session) Meter() *dynamics.Meter { return s.meter }

// Run blocks until ctx is done or the host shuts down.
//
// Errors carry a config error code: an invalid processor configuration
// fails before any port is registered; a host failure or missing playback
// ports fail before any upstream connection is moved. When the host shuts
// down while running there is nothing left to restore and Run returns
// without rewiring.
func (s *Session) Run(ctx context.Context) error {
	rate := s.host.SampleRate()

	proc, err := dynamics.New(s.cfg.Mode, s.cfg.Params(), rate)
	if err != nil {
		return errors.Wrap(err, config.ErrCodeInvalidConfig, "cannot build processor")
	}

	if err := s.host.Bind(proc, s.meter); err != nil {
		return errors.Wrap(err, config.ErrCodeHostUnavailable, "failed to register processor ports")
	}

	if err := s.host.Activate(); err != nil {
		return errors.Wrap(err, config.ErrCodeHostUnavailable, "failed to activate client")
	}

	s.log.WithFields(logrus.Fields{
		"function":    "Run",
		"client":      s.cfg.Client,
		"mode":        s.cfg.Mode,
		"sample_rate": rate,
	}).Info("Processor active")

	rw := graph.NewRewirer(s.host, s.cfg.Ports(),
		graph.WithSettler(s.cfg.Settler()),
		graph.WithLogger(s.log),
	)

	report, err := rw.Arrange(ctx)
	if err != nil {
		s.deactivate()
		return errors.Wrap(err, config.ErrCodePlaybackNotFound, "cannot splice into playback path")
	}
	s.report("arrange", report)

	if s.onArranged != nil {
		s.onArranged(rw.Record())
	}

	select {
	case <-ctx.Done():
	case <-s.host.Done():
		s.log.WithFields(logrus.Fields{
			"function": "Run",
			"client":   s.cfg.Client,
		}).Warn("Audio server shut down, skipping restore")
		return errors.New(config.ErrCodeHostUnavailable, "audio server shut down")
	}

	restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.restoreTimeout)
	defer cancel()

	report, err = rw.Disarrange(restoreCtx)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "Run",
			"error":    err,
		}).Error("Failed to restore playback wiring")
	} else {
		s.report("disarrange", report)
	}

	s.deactivate()
	return nil
}

func (s *Session) report(phase string, r *graph.Report) {
	if s.observe != nil {
		s.observe(phase, r)
	}
	if r.OK() {
		return
	}

	s.log.WithFields(logrus.Fields{
		"function":    "Run",
		"phase":       phase,
		"failures":    len(r.Failures),
		"unconfirmed": r.Unconfirmed,
		"error":       r.Err(),
	}).Warn("Rewiring finished with errors")
}

func (s *Session) deactivate() {
	if err := s.host.Deactivate(); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "deactivate",
			"error":    err,
		}).Warn("Failed to deactivate client")
	}
}
