package bus

import (
	"errors"
	"fmt"
	"log/slog"
)

// ArbiterOpts configures an Arbiter.
type ArbiterOpts struct {
	// Strict makes End return ErrUnbalanced when nothing is open instead of
	// ignoring the call.
	Strict bool
	// Logger receives transaction edges at debug level. nil disables it.
	Logger *slog.Logger
}

// Arbiter serializes access to one physical bus through a nesting depth.
//
// The transport is opened only when the depth goes from 0 to 1 and closed
// only when it returns to 0. The depth is never negative.
type Arbiter struct {
	t       Transport
	depth   int
	strict  bool
	log     *slog.Logger
	release []func() error
}

// NewArbiter returns the arbiter for transport t. Exactly one arbiter must
// exist per physical bus; every driver on that bus receives the same one.
func NewArbiter(t Transport, opts *ArbiterOpts) *Arbiter {
	a := &Arbiter{t: t}
	if opts != nil {
		a.strict = opts.Strict
		a.log = opts.Logger
	}
	return a
}

// Transport returns the transport guarded by a.
func (a *Arbiter) Transport() Transport {
	return a.t
}

// Depth returns the current nesting depth.
func (a *Arbiter) Depth() int {
	return a.depth
}

// Open reports whether the physical bus is currently claimed.
func (a *Arbiter) Open() bool {
	return a.depth > 0
}

// OnRelease registers fn to run, with the bus still claimed, right before
// the outermost End closes the transport.
func (a *Arbiter) OnRelease(fn func() error) {
	a.release = append(a.release, fn)
}

// Begin enters a transaction, opening the transport if none was open. When
// opening fails the depth is left unchanged.
func (a *Arbiter) Begin() error {
	a.depth++
	if a.depth > 1 {
		return nil
	}
	if err := a.t.Begin(); err != nil {
		a.depth--
		return fmt.Errorf("bus: %s: begin: %w", a.t, err)
	}
	if a.log != nil {
		a.log.Debug("bus claimed", "bus", a.t.String())
	}
	return nil
}

// End leaves a transaction, closing the transport when the outermost one
// ends. An End with nothing open is ignored unless the arbiter is strict.
func (a *Arbiter) End() error {
	switch {
	case a.depth == 0:
		if a.strict {
			return ErrUnbalanced
		}
		return nil
	case a.depth > 1:
		a.depth--
		return nil
	}
	return a.close()
}

// close runs the release hooks and closes the transport. The depth is 0
// afterwards even when an error is returned.
func (a *Arbiter) close() error {
	var errs []error
	for _, fn := range a.release {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.depth = 0
	if err := a.t.End(); err != nil {
		errs = append(errs, fmt.Errorf("bus: %s: end: %w", a.t, err))
	}
	if a.log != nil {
		a.log.Debug("bus released", "bus", a.t.String())
	}
	return errors.Join(errs...)
}

// Suspend closes the transport regardless of depth and returns the depth
// to hand back to Resume. It lets another device claim the wires in the
// middle of a transaction.
func (a *Arbiter) Suspend() (int, error) {
	d := a.depth
	if d == 0 {
		return 0, nil
	}
	return d, a.close()
}

// Resume reopens the transport and restores a depth saved by Suspend.
func (a *Arbiter) Resume(depth int) error {
	if depth <= 0 || a.depth > 0 {
		return nil
	}
	if err := a.Begin(); err != nil {
		return err
	}
	a.depth = depth
	return nil
}

// Guard is a scoped transaction. Release it with defer on every exit path.
type Guard struct {
	a    *Arbiter
	done bool
}

// Acquire begins a transaction and returns the guard that ends it.
func (a *Arbiter) Acquire() (*Guard, error) {
	if err := a.Begin(); err != nil {
		return nil, err
	}
	return &Guard{a: a}, nil
}

// Release ends the transaction. Calls after the first one are no-ops.
func (g *Guard) Release() error {
	if g == nil || g.done {
		return nil
	}
	g.done = true
	return g.a.End()
}
