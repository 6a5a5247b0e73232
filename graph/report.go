package graph

import (
	"errors"
	"fmt"
)

// Op names the host request that failed.
type Op string

const (
	OpQuery      Op = "query"
	OpConnect    Op = "connect"
	OpDisconnect Op = "disconnect"
)

// Failure is one rejected host request.
type Failure struct {
	Op   Op
	Edge Edge
	Err  error
}

func (f Failure) Error() string {
	if f.Op == OpQuery {
		return fmt.Sprintf("query %s: %v", f.Edge.Destination, f.Err)
	}
	return fmt.Sprintf("%s %s: %v", f.Op, f.Edge, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Report summarises one Arrange or Disarrange pass.
type Report struct {
	// Moved counts sources redirected to their new destination.
	Moved int
	// Failures lists every rejected request, in issue order.
	Failures []Failure
	// Unconfirmed names the steps whose outcome the host did not confirm
	// before the settle deadline.
	Unconfirmed []string
}

// OK reports whether every request succeeded and every step was confirmed.
func (r *Report) OK() bool {
	return len(r.Failures) == 0 && len(r.Unconfirmed) == 0
}

// Err joins the failures, or returns nil.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}

	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}

	return errors.Join(errs...)
}

func (r *Report) fail(op Op, e Edge, err error) {
	r.Failures = append(r.Failures, Failure{Op: op, Edge: e, Err: err})
}

// Record is the wiring found by Arrange: the two playback ports and the
// sources that fed each of them.
type Record struct {
	Playback [2]string
	Sources  [2][]string
}

// Edges returns the original source -> playback edges.
func (r Record) Edges() []Edge {
	var edges []Edge
	for ch, dst := range r.Playback {
		for _, src := range r.Sources[ch] {
			edges = append(edges, Edge{Source: src, Destination: dst})
		}
	}
	return edges
}
