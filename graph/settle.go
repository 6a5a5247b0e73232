package graph

import (
	"context"
	"time"
)

// Settler waits for the host to apply a batch of graph changes. confirmed
// reports whether the host's connection table already shows the expected
// state; Settle returns its final value.
type Settler interface {
	Settle(ctx context.Context, confirmed func() bool) bool
}

// DelaySettler sleeps a fixed time and then checks once.
//
// This is a heuristic: a host applying changes more slowly than Delay is not
// detected beyond the final check.
type DelaySettler struct {
	Delay time.Duration
}

// Settle implements Settler.
func (s DelaySettler) Settle(ctx context.Context, confirmed func() bool) bool {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
		case <-timer.C:
		}
	}

	return confirmed()
}

// ConfirmSettler polls the host until the expected state is visible or the
// timeout expires.
type ConfirmSettler struct {
	Timeout  time.Duration
	Interval time.Duration
}

const (
	defaultSettleTimeout  = 2 * time.Second
	defaultSettleInterval = 10 * time.Millisecond
)

// Settle implements Settler.
func (s ConfirmSettler) Settle(ctx context.Context, confirmed func() bool) bool {
	if confirmed() {
		return true
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultSettleTimeout
	}
	interval := s.Interval
	if interval <= 0 {
		interval = defaultSettleInterval
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return confirmed()
		case <-deadline.C:
			return confirmed()
		case <-tick.C:
			if confirmed() {
				return true
			}
		}
	}
}
