package graph

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// DefaultPlaybackPattern matches the JACK system playback ports.
const DefaultPlaybackPattern = "system:playback_"

// ErrPlaybackNotFound is returned when fewer than two playback ports match.
var ErrPlaybackNotFound = errors.New("playback ports not found")

// Ports names the processor's own ports and the playback ports it guards.
type Ports struct {
	InL, InR   string
	OutL, OutR string
	// Playback is the name pattern of the hardware playback ports; the first
	// two matches are the left and right channel.
	Playback string
}

// ClientPorts returns the port names registered by a client called name:
// inL, inR, outL and outR, guarding DefaultPlaybackPattern.
func ClientPorts(name string) Ports {
	return Ports{
		InL:      name + ":inL",
		InR:      name + ":inR",
		OutL:     name + ":outL",
		OutR:     name + ":outR",
		Playback: DefaultPlaybackPattern,
	}
}

func (p Ports) inputs() [2]string  { return [2]string{p.InL, p.InR} }
func (p Ports) outputs() [2]string { return [2]string{p.OutL, p.OutR} }

// Rewirer splices a stereo processor between the sources feeding the
// playback ports and the playback ports themselves.
//
// A Rewirer is used from the control goroutine only.
type Rewirer struct {
	host    Host
	ports   Ports
	settler Settler
	log     logrus.FieldLogger

	record   Record
	arranged bool
}

// Option configures a Rewirer.
type Option func(*Rewirer)

// WithSettler sets how the rewirer waits for the host between steps.
func WithSettler(s Settler) Option {
	return func(r *Rewirer) {
		if s != nil {
			r.settler = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Rewirer) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRewirer returns a Rewirer acting on host. By default it waits with a
// ConfirmSettler and logs through the logrus standard logger.
func NewRewirer(host Host, ports Ports, opts ...Option) *Rewirer {
	if ports.Playback == "" {
		ports.Playback = DefaultPlaybackPattern
	}

	r := &Rewirer{
		host:    host,
		ports:   ports,
		settler: ConfirmSettler{},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Record returns the wiring captured by the last Arrange.
func (r *Rewirer) Record() Record {
	return r.record
}

// Arrange makes the processor the only path to the playback ports.
//
// For each channel every current source is disconnected from the playback
// port and then connected to the processor input. Afterwards both processor
// outputs are connected to the playback ports, also for a channel that had
// no sources. Rejected requests are recorded in the report and do not stop
// the pass. The returned error is non-nil only when the playback ports could
// not be found, in which case nothing was changed.
func (r *Rewirer) Arrange(ctx context.Context) (*Report, error) {
	playback, err := r.discover()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	r.record = Record{Playback: playback}
	inputs, outputs := r.ports.inputs(), r.ports.outputs()

	for ch, hw := range playback {
		sources, err := r.host.Connections(hw)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"function": "Arrange",
				"port":     hw,
				"error":    err,
			}).Warn("Failed to query playback sources")
			report.fail(OpQuery, Edge{Destination: hw}, err)
		}

		// A processor left connected by an earlier run is not an upstream source.
		sources = slices.DeleteFunc(sources, func(src string) bool {
			return src == outputs[0] || src == outputs[1]
		})
		r.record.Sources[ch] = sources

		for _, src := range sources {
			r.redirect(report, src, hw, inputs[ch])
		}
	}

	for ch, hw := range playback {
		r.connect(report, outputs[ch], hw)
	}

	r.settle(ctx, report, "connect outputs", func() bool {
		for ch, hw := range playback {
			conns, err := r.host.Connections(hw)
			if err != nil || !slices.Contains(conns, outputs[ch]) {
				return false
			}
		}
		return true
	})

	r.arranged = true

	r.log.WithFields(logrus.Fields{
		"function": "Arrange",
		"playback": playback,
		"moved":    report.Moved,
		"failures": len(report.Failures),
	}).Info("Processor spliced into playback path")

	return report, nil
}

// Disarrange reconnects every source currently feeding the processor inputs
// directly to the playback ports and then disconnects the processor outputs.
// The left channel, the right channel and the output teardown are each
// followed by a settle step. Like Arrange it never stops at a rejected
// request; the returned error is non-nil only when the playback ports are
// unknown.
func (r *Rewirer) Disarrange(ctx context.Context) (*Report, error) {
	playback := r.record.Playback
	if !r.arranged {
		var err error
		playback, err = r.discover()
		if err != nil {
			return nil, err
		}
	}

	report := &Report{}
	inputs, outputs := r.ports.inputs(), r.ports.outputs()
	steps := [2]string{"restore left", "restore right"}

	for ch, hw := range playback {
		in := inputs[ch]

		sources, err := r.host.Connections(in)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"function": "Disarrange",
				"port":     in,
				"error":    err,
			}).Warn("Failed to query processor sources")
			report.fail(OpQuery, Edge{Destination: in}, err)
		}

		for _, src := range sources {
			r.redirect(report, src, in, hw)
		}

		r.settle(ctx, report, steps[ch], func() bool {
			left, err := r.host.Connections(in)
			if err != nil || len(left) > 0 {
				return false
			}
			restored, err := r.host.Connections(hw)
			if err != nil {
				return false
			}
			for _, src := range sources {
				if !slices.Contains(restored, src) {
					return false
				}
			}
			return true
		})
	}

	for ch, hw := range playback {
		r.disconnect(report, outputs[ch], hw)
	}

	r.settle(ctx, report, "disconnect outputs", func() bool {
		for ch, hw := range playback {
			conns, err := r.host.Connections(hw)
			if err != nil || slices.Contains(conns, outputs[ch]) {
				return false
			}
		}
		return true
	})

	r.arranged = false

	r.log.WithFields(logrus.Fields{
		"function":    "Disarrange",
		"playback":    playback,
		"moved":       report.Moved,
		"failures":    len(report.Failures),
		"unconfirmed": report.Unconfirmed,
	}).Info("Original playback wiring restored")

	return report, nil
}

func (r *Rewirer) discover() ([2]string, error) {
	found := r.host.Ports(r.ports.Playback, FlagInput)
	if len(found) < 2 {
		return [2]string{}, fmt.Errorf("%w: %d ports match %q", ErrPlaybackNotFound, len(found), r.ports.Playback)
	}

	return [2]string{found[0], found[1]}, nil
}

// redirect moves src from one destination to another, disconnecting first.
// If the disconnect is rejected and the old edge is still present, the
// connect is skipped so src is never routed to both destinations.
func (r *Rewirer) redirect(report *Report, src, from, to string) {
	if !r.disconnect(report, src, from) {
		conns, err := r.host.Connections(from)
		if err != nil || slices.Contains(conns, src) {
			r.log.WithFields(logrus.Fields{
				"function": "redirect",
				"source":   src,
				"from":     from,
				"to":       to,
			}).Warn("Source still connected, leaving it in place")
			return
		}
	}

	if r.connect(report, src, to) {
		report.Moved++
	}
}

func (r *Rewirer) connect(report *Report, src, dst string) bool {
	return r.request(report, OpConnect, src, dst, r.host.Connect)
}

func (r *Rewirer) disconnect(report *Report, src, dst string) bool {
	return r.request(report, OpDisconnect, src, dst, r.host.Disconnect)
}

func (r *Rewirer) request(report *Report, op Op, src, dst string, fn func(string, string) error) bool {
	err := fn(src, dst)

	fields := logrus.Fields{
		"function":    "Rewirer",
		"op":          op,
		"source":      src,
		"destination": dst,
	}
	if err != nil {
		fields["error"] = err
		r.log.WithFields(fields).Warn("Graph request rejected")
		report.fail(op, Edge{Source: src, Destination: dst}, err)
		return false
	}

	r.log.WithFields(fields).Debug("Graph request applied")
	return true
}

func (r *Rewirer) settle(ctx context.Context, report *Report, step string, confirmed func() bool) {
	if r.settler.Settle(ctx, confirmed) {
		return
	}

	r.log.WithFields(logrus.Fields{
		"function": "settle",
		"step":     step,
	}).Warn("Host did not confirm graph change before the deadline")
	report.Unconfirmed = append(report.Unconfirmed, step)
}
