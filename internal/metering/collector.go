// Package metering exports the processor meter and rewiring outcomes as
// Prometheus metrics over HTTP.
package metering

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/safelistn/dsp/effects/dynamics"
	"github.com/cwbudde/safelistn/graph"
)

const namespace = "safelistn"

// Collector reads a dynamics.Meter at scrape time. The audio callback is
// never touched; every value comes from the meter's atomics.
type Collector struct {
	meter *dynamics.Meter

	inputPeak  *prometheus.Desc
	outputPeak *prometheus.Desc
	gain       *prometheus.Desc
	blocks     *prometheus.Desc

	moved    *prometheus.CounterVec
	failures *prometheus.CounterVec
}

// NewCollector returns a collector for m.
func NewCollector(m *dynamics.Meter) *Collector {
	return &Collector{
		meter: m,
		inputPeak: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "input_peak"),
			"Maximum absolute input sample of the last block.",
			nil, nil,
		),
		outputPeak: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "output_peak"),
			"Maximum absolute output sample of the last block.",
			nil, nil,
		),
		gain: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "gain"),
			"Minimum linear gain applied during the last block, makeup excluded.",
			nil, nil,
		),
		blocks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "blocks_total"),
			"Audio blocks processed.",
			nil, nil,
		),
		moved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewire_moved_total",
			Help:      "Sources redirected by rewiring, by phase.",
		}, []string{"phase"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewire_failures_total",
			Help:      "Rejected graph requests, by phase and operation.",
		}, []string{"phase", "op"}),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inputPeak
	ch <- c.outputPeak
	ch <- c.gain
	ch <- c.blocks
	c.moved.Describe(ch)
	c.failures.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.meter.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.inputPeak, prometheus.GaugeValue, s.InputPeak)
	ch <- prometheus.MustNewConstMetric(c.outputPeak, prometheus.GaugeValue, s.OutputPeak)
	ch <- prometheus.MustNewConstMetric(c.gain, prometheus.GaugeValue, s.Gain)
	ch <- prometheus.MustNewConstMetric(c.blocks, prometheus.CounterValue, float64(s.Blocks))
	c.moved.Collect(ch)
	c.failures.Collect(ch)
}

// ObserveReport counts the outcome of one rewiring phase. It matches
// session.ReportObserver.
func (c *Collector) ObserveReport(phase string, r *graph.Report) {
	if r == nil {
		return
	}

	c.moved.WithLabelValues(phase).Add(float64(r.Moved))
	for _, f := range r.Failures {
		c.failures.WithLabelValues(phase, string(f.Op)).Inc()
	}
}
