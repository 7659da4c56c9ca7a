// Package touch reads touch controllers and maps their points to the
// coordinate space of the panel they sit on.
//
// A Dev wraps one Sensor. Raw points are filtered against the configured
// raw range; a read returning anything outside it, or failing on the bus,
// is retried a few times before Poll gives up and reports no touch.
package touch

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/flavioheleno/lgfx/bus"
	"github.com/flavioheleno/lgfx/geom"
	"periph.io/x/conn/v3/gpio"
)

// MaxPoints is the largest number of points any sensor reports.
const MaxPoints = 5

// retries is the number of reads attempted per Poll.
const retries = 3

// sleep is replaced in tests.
var sleep = time.Sleep

// ErrNotFound is returned by Probe when the controller does not answer
// with a known identifier.
var ErrNotFound = errors.New("touch: controller not found")

// Point is one touch. X and Y are raw controller units as returned by a
// Sensor and panel coordinates once returned by Dev.Poll.
type Point struct {
	X, Y int
	// ID tracks a finger across polls on controllers that support it.
	ID int
	// Size is the pressure or contact size; controllers without one
	// report 1.
	Size int
}

// Sensor is implemented by every touch controller.
type Sensor interface {
	String() string
	// Probe brings the controller up and checks its identifier.
	Probe() error
	// Read fills pts with raw points and returns how many are valid.
	Read(pts []Point) (int, error)
}

// Sleeper is implemented by controllers with a low power mode.
type Sleeper interface {
	Sleep() error
	Wakeup() error
}

// Display is the panel whose coordinates touches are reported in.
// panel.Driver implements it.
type Display interface {
	Space() geom.Space
}

// Opts configures a Dev. Every field is optional.
type Opts struct {
	// XMin, XMax, YMin and YMax are the raw values reported at the panel
	// edges. An axis whose maximum is zero takes the native size of
	// Display as its raw range, and is not checked without a Display.
	XMin, XMax, YMin, YMax int
	// Int is the active-low data ready line. When set and high, Poll
	// returns without touching the bus.
	Int gpio.PinIn
	// OffsetRotation is added to the panel's rotation for controllers
	// mounted rotated relative to the panel.
	OffsetRotation geom.Rotation
	// Arbiter is the panel's bus arbiter, set when the controller shares
	// the panel's bus. The panel's transaction is suspended while polling.
	Arbiter *bus.Arbiter
	// Display maps points to panel coordinates. nil returns raw points.
	Display Display
	// Logger receives retries at debug level. nil disables it.
	Logger *slog.Logger
}

// State is the life cycle of a Dev.
type State uint8

const (
	// Uninitialized is the state before a successful Init.
	Uninitialized State = iota
	// Idle means the last poll found no touch.
	Idle
	// Sampling means the panel was touched at the last poll.
	Sampling
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Idle:
		return "idle"
	case Sampling:
		return "sampling"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Dev is a touch controller bound to a panel.
//
// Dev is not safe for concurrent use.
type Dev struct {
	s     Sensor
	opts  Opts
	state State
	raw   [MaxPoints]Point
}

// New returns a Dev reading s. Call Init before polling.
func New(s Sensor, opts *Opts) *Dev {
	d := &Dev{s: s}
	if opts != nil {
		d.opts = *opts
	}
	return d
}

func (d *Dev) String() string {
	return d.s.String()
}

// State returns the current state.
func (d *Dev) State() State {
	return d.state
}

// Init probes the controller. On failure the Dev stays uninitialized and
// Poll reports no touch.
func (d *Dev) Init() error {
	d.state = Uninitialized
	if d.opts.Int != nil {
		if err := d.opts.Int.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return fmt.Errorf("touch: %s: interrupt pin: %w", d.s, err)
		}
	}
	if err := d.offBus(d.s.Probe); err != nil {
		return fmt.Errorf("touch: %s: %w", d.s, err)
	}
	d.state = Idle
	return nil
}

// Poll reads up to len(pts) points, at most MaxPoints, into pts and
// returns how many were read. Bus errors and out of range points are
// retried; when every attempt fails Poll returns 0.
func (d *Dev) Poll(pts []Point) int {
	if d.state == Uninitialized || len(pts) == 0 {
		return 0
	}
	if d.opts.Int != nil && d.opts.Int.Read() == gpio.High {
		d.state = Idle
		return 0
	}
	raw := d.raw[:min(len(pts), MaxPoints)]
	xr, yr := d.rawRange()
	for attempt := 1; attempt <= retries; attempt++ {
		var n int
		err := d.offBus(func() (err error) {
			n, err = d.s.Read(raw)
			return err
		})
		if err == nil {
			n = min(n, len(raw))
			if inRange(raw[:n], xr, yr) {
				return d.deliver(pts, raw[:n])
			}
			err = errors.New("point out of range")
		}
		if d.opts.Logger != nil {
			d.opts.Logger.Debug("touch retry", "sensor", d.s.String(), "attempt", attempt, "err", err)
		}
	}
	d.state = Idle
	return 0
}

// Sleep puts the controller in its low power mode.
func (d *Dev) Sleep() error {
	s, ok := d.s.(Sleeper)
	if !ok {
		return fmt.Errorf("touch: %s has no sleep mode: %w", d.s, errors.ErrUnsupported)
	}
	return d.offBus(s.Sleep)
}

// Wakeup leaves the low power mode.
func (d *Dev) Wakeup() error {
	s, ok := d.s.(Sleeper)
	if !ok {
		return fmt.Errorf("touch: %s has no sleep mode: %w", d.s, errors.ErrUnsupported)
	}
	return d.offBus(s.Wakeup)
}

func (d *Dev) deliver(pts, raw []Point) int {
	for i, p := range raw {
		pts[i] = d.transform(p)
	}
	if len(raw) == 0 {
		d.state = Idle
	} else {
		d.state = Sampling
	}
	return len(raw)
}

// rawRange returns the accepted raw X and Y intervals, inclusive. Each
// axis uses its Opts range when its maximum is set, the panel's native size
// otherwise. An empty interval accepts every value on that axis.
func (d *Dev) rawRange() (x, y [2]int) {
	x = [2]int{d.opts.XMin, d.opts.XMax}
	y = [2]int{d.opts.YMin, d.opts.YMax}
	if d.opts.Display == nil {
		return x, y
	}
	n := d.opts.Display.Space().Native
	if x[1] == 0 {
		x = [2]int{0, n.X - 1}
	}
	if y[1] == 0 {
		y = [2]int{0, n.Y - 1}
	}
	return x, y
}

func inRange(pts []Point, x, y [2]int) bool {
	for _, p := range pts {
		if !onAxis(p.X, x) || !onAxis(p.Y, y) {
			return false
		}
	}
	return true
}

func onAxis(v int, r [2]int) bool {
	return r[1] <= r[0] || (v >= r[0] && v <= r[1])
}

// transform scales p from the raw range to the panel's native size and
// rotates it into panel coordinates.
func (d *Dev) transform(p Point) Point {
	if d.opts.Display == nil {
		return p
	}
	sp := d.opts.Display.Space()
	if sp.Native.X <= 0 || sp.Native.Y <= 0 {
		return p
	}
	xr, yr := d.rawRange()
	n := image.Point{
		X: scale(p.X, xr, sp.Native.X),
		Y: scale(p.Y, yr, sp.Native.Y),
	}
	sp.Rotation = sp.Rotation.Combine(d.opts.OffsetRotation)
	l := sp.ToLogical(n)
	p.X, p.Y = l.X, l.Y
	return p
}

func scale(v int, r [2]int, size int) int {
	if r[1] <= r[0] {
		return v
	}
	return (v - r[0]) * (size - 1) / (r[1] - r[0])
}

// offBus runs fn with the shared bus released, if any.
func (d *Dev) offBus(fn func() error) error {
	if d.opts.Arbiter == nil {
		return fn()
	}
	depth, serr := d.opts.Arbiter.Suspend()
	ferr := fn()
	return errors.Join(ferr, serr, d.opts.Arbiter.Resume(depth))
}
