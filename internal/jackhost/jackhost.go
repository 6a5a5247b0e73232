// Package jackhost binds safelistn to a running JACK server. A Client
// registers the four processor ports, runs a dynamics processor in the
// server's process callback and exposes the server's port graph as a
// graph.Host.
package jackhost

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/xthexder/go-jack"

	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/graph"
)

// ErrClosed is returned by requests made after Close.
var ErrClosed = errors.New("jack client closed")

// StatusError is a nonzero status returned by the JACK library.
type StatusError struct {
	Op     string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jack %s failed (status 0x%x)", e.Op, e.Status)
}

func status(op string, code int) error {
	if code == 0 {
		return nil
	}
	return &StatusError{Op: op, Status: code}
}

// Client is a JACK client hosting one stereo processor.
type Client struct {
	client *jack.Client
	name   string
	log    logrus.FieldLogger

	inL, inR, outL, outR *jack.Port

	// Set by Bind before activation and read only by the process callback.
	proc  dynamics.StereoProcessor
	meter *dynamics.Meter

	mu     sync.Mutex
	closed bool

	done     chan struct{}
	doneOnce sync.Once
}

// Open connects to a running server as name. The server is never started
// on demand.
func Open(name string, log logrus.FieldLogger) (*Client, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	jc, code := jack.ClientOpen(name, jack.NoStartServer)
	if jc == nil || code != 0 {
		return nil, status("client open "+name, code)
	}

	c := &Client{
		client: jc,
		name:   name,
		log:    log,
		done:   make(chan struct{}),
	}

	jc.OnShutdown(func() {
		c.doneOnce.Do(func() { close(c.done) })
	})

	log.WithFields(logrus.Fields{
		"function":    "Open",
		"client":      name,
		"sample_rate": jc.GetSampleRate(),
	}).Info("Connected to JACK server")

	return c, nil
}

// Name returns the client name.
func (c *Client) Name() string { return c.name }

// SampleRate returns the server's sample rate in Hz.
func (c *Client) SampleRate() float64 {
	return float64(c.client.GetSampleRate())
}

// Done is closed when the server shuts the client down.
func (c *Client) Done() <-chan struct{} { return c.done }

// PortNames returns the client's port names.
func (c *Client) PortNames() graph.Ports {
	return graph.ClientPorts(c.name)
}

// Bind registers inL, inR, outL and outR and installs a process callback
// running p on every block. m may be nil. Bind must be called once, before
// Activate.
func (c *Client) Bind(p dynamics.StereoProcessor, m *dynamics.Meter) error {
	if p == nil {
		return errors.New("jack bind: nil processor")
	}

	var err error
	register := func(short string, flags uint64) *jack.Port {
		if err != nil {
			return nil
		}
		port := c.client.PortRegister(short, jack.DEFAULT_AUDIO_TYPE, flags, 0)
		if port == nil {
			err = fmt.Errorf("jack register %s:%s failed", c.name, short)
		}
		return port
	}

	c.inL = register("inL", uint64(jack.PortIsInput))
	c.inR = register("inR", uint64(jack.PortIsInput))
	c.outL = register("outL", uint64(jack.PortIsOutput))
	c.outR = register("outR", uint64(jack.PortIsOutput))
	if err != nil {
		return err
	}

	c.proc, c.meter = p, m

	if err := status("set process callback", c.client.SetProcessCallback(c.process)); err != nil {
		return err
	}

	c.log.WithFields(logrus.Fields{
		"function":  "Bind",
		"client":    c.name,
		"processor": fmt.Sprintf("%T", p),
	}).Debug("Processor bound to ports")

	return nil
}

// process is the real-time callback. It must not block, allocate or log.
func (c *Client) process(nframes uint32) int {
	dynamics.ProcessBlock(c.proc, c.meter,
		c.inL.GetBuffer(nframes), c.inR.GetBuffer(nframes),
		c.outL.GetBuffer(nframes), c.outR.GetBuffer(nframes))
	return 0
}

// Activate starts the process callback.
func (c *Client) Activate() error {
	return status("activate", c.client.Activate())
}

// Deactivate stops the process callback and disconnects the client's ports.
func (c *Client) Deactivate() error {
	return status("deactivate", c.client.Deactivate())
}

// Close leaves the server. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return status("close", c.client.Close())
}

// Ports implements graph.Host.
func (c *Client) Ports(pattern string, flags graph.PortFlags) []string {
	return c.client.GetPorts(pattern, jack.DEFAULT_AUDIO_TYPE, jackFlags(flags))
}

// Connections implements graph.Host.
func (c *Client) Connections(name string) ([]string, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}

	port := c.client.GetPortByName(name)
	if port == nil {
		return nil, fmt.Errorf("jack: no such port %s", name)
	}
	return port.GetConnections(), nil
}

// Connect implements graph.Host.
func (c *Client) Connect(source, destination string) error {
	if c.isClosed() {
		return ErrClosed
	}
	return status("connect "+source+" -> "+destination, c.client.Connect(source, destination))
}

// Disconnect implements graph.Host.
func (c *Client) Disconnect(source, destination string) error {
	if c.isClosed() {
		return ErrClosed
	}
	return status("disconnect "+source+" -> "+destination, c.client.Disconnect(source, destination))
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func jackFlags(f graph.PortFlags) uint64 {
	var out uint64
	if f&graph.FlagInput != 0 {
		out |= uint64(jack.PortIsInput)
	}
	if f&graph.FlagOutput != 0 {
		out |= uint64(jack.PortIsOutput)
	}
	if f&graph.FlagPhysical != 0 {
		out |= uint64(jack.PortIsPhysical)
	}
	return out
}
