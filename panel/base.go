package panel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/flavioheleno/lgfx/bus"
	"github.com/flavioheleno/lgfx/geom"
	"github.com/flavioheleno/lgfx/pixfmt"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Opts holds the board wiring shared by all drivers. Every field is
// optional.
type Opts struct {
	// RST is the active-low hardware reset pin.
	RST gpio.PinOut
	// Backlight is PWM-dimmed by SetBrightness.
	Backlight gpio.PinOut
	// BacklightFreq defaults to 1.2kHz.
	BacklightFreq physic.Frequency
	// Readable enables ReadRect on controllers wired with a MISO line.
	Readable bool
	// Logger receives debug output. nil disables it.
	Logger *slog.Logger
}

// base holds the state common to every driver: geometry, rotation and
// the bus.
type base struct {
	name   string
	arb    *bus.Arbiter
	t      bus.Transport
	native pixfmt.Format
	swapRB bool
	opts   Opts

	g          Geometry
	configured bool
	halted     bool

	rotation           geom.Rotation
	internal           geom.Rotation
	width, height      int
	colstart, rowstart int

	buf []byte
}

func newBase(name string, a *bus.Arbiter, native pixfmt.Format, opts *Opts) base {
	b := base{name: name, arb: a, t: a.Transport(), native: native}
	if opts != nil {
		b.opts = *opts
	}
	if b.opts.BacklightFreq == 0 {
		b.opts.BacklightFreq = 1200 * physic.Hertz
	}
	return b
}

func (b *base) String() string {
	if !b.configured {
		return b.name + "{unconfigured}"
	}
	return fmt.Sprintf("%s{%dx%d}", b.name, b.width, b.height)
}

// Arbiter implements Driver.
func (b *base) Arbiter() *bus.Arbiter {
	return b.arb
}

// Native implements Driver.
func (b *base) Native() pixfmt.Format {
	return b.native
}

// Rotation implements Driver.
func (b *base) Rotation() geom.Rotation {
	return b.rotation
}

// Bounds implements Driver.
func (b *base) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// Space implements Driver.
func (b *base) Space() geom.Space {
	return geom.Space{
		Native:   image.Pt(b.g.PanelWidth, b.g.PanelHeight),
		Rotation: b.internal,
	}
}

// Geometry returns the applied geometry.
func (b *base) Geometry() Geometry {
	return b.g
}

func (b *base) debug(msg string, args ...any) {
	if b.opts.Logger != nil {
		b.opts.Logger.Debug(msg, append([]any{"panel", b.name}, args...)...)
	}
}

func (b *base) configure(g Geometry) error {
	g, err := g.normalize()
	if err != nil {
		return err
	}
	b.g = g
	b.configured = true
	b.applyRotation(b.rotation)
	b.debug("configured", "width", g.PanelWidth, "height", g.PanelHeight)
	return nil
}

// applyRotation derives the logical size and the memory start offsets for
// the user rotation r.
func (b *base) applyRotation(r geom.Rotation) {
	r &= 7
	b.rotation = r
	b.internal = r.Combine(b.g.OffsetRotation)

	ox, oy := b.g.OffsetX, b.g.OffsetY
	pw, ph := b.g.PanelWidth, b.g.PanelHeight
	mw, mh := b.g.MemoryWidth, b.g.MemoryHeight
	if b.internal.SwapsAxes() {
		ox, oy = oy, ox
		pw, ph = ph, pw
		mw, mh = mh, mw
	}
	b.width, b.height = pw, ph

	b.colstart = ox
	if b.internal&2 != 0 {
		b.colstart = mw - (pw + ox)
	}
	// Rotations 1, 2, 4 and 7 run rows bottom-up.
	b.rowstart = oy
	if (1<<b.internal)&0b10010110 != 0 {
		b.rowstart = mh - (ph + oy)
	}
}

// clip returns the visible part of r and whether anything is left.
func (b *base) clip(r image.Rectangle) (image.Rectangle, bool) {
	if !b.configured {
		return image.Rectangle{}, false
	}
	c := r.Intersect(b.Bounds())
	return c, !c.Empty()
}

// transaction runs fn inside an arbiter guard and always releases it.
func (b *base) transaction(fn func() error) (err error) {
	g, err := b.arb.Acquire()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := g.Release(); err == nil {
			err = rerr
		}
	}()
	return fn()
}

func (b *base) command(cmd byte, data ...byte) error {
	if err := b.t.WriteCommand([]byte{cmd}); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return b.t.WriteData(data)
}

func (b *base) commands(cmds []Command) error {
	for _, c := range cmds {
		if err := b.command(c.Cmd, c.Data...); err != nil {
			return fmt.Errorf("%s: command %#02x: %w", b.name, c.Cmd, err)
		}
		if c.Delay > 0 {
			sleep(c.Delay)
		}
	}
	return nil
}

func (b *base) reset() error {
	if b.opts.RST == nil {
		return nil
	}
	if err := b.opts.RST.Out(gpio.High); err != nil {
		return fmt.Errorf("%s: failed to drive RST: %w", b.name, err)
	}
	sleep(64 * time.Millisecond)
	if err := b.opts.RST.Out(gpio.Low); err != nil {
		return fmt.Errorf("%s: failed to pull RST low: %w", b.name, err)
	}
	sleep(4 * time.Millisecond)
	if err := b.opts.RST.Out(gpio.High); err != nil {
		return fmt.Errorf("%s: failed to pull RST high: %w", b.name, err)
	}
	sleep(64 * time.Millisecond)
	return nil
}

// setBacklight drives the backlight PWM, 0 is off and 255 full on.
func (b *base) setBacklight(level uint8) error {
	if b.opts.Backlight == nil {
		return fmt.Errorf("%s: no backlight pin: %w", b.name, errors.ErrUnsupported)
	}
	duty := gpio.Duty(uint64(gpio.DutyMax) * uint64(level) / 255)
	return b.opts.Backlight.PWM(duty, b.opts.BacklightFreq)
}

func (b *base) scratch(n int) []byte {
	if cap(b.buf) < n {
		b.buf = make([]byte, n)
	}
	return b.buf[:n]
}

func (b *base) checkHalted() error {
	if b.halted {
		return fmt.Errorf("%s: halted", b.name)
	}
	return nil
}

// checkPix verifies that pix holds r at format f.
func checkPix(r image.Rectangle, pix []byte, f pixfmt.Format) error {
	if !f.Valid() {
		return fmt.Errorf("panel: invalid pixel format %s", f)
	}
	if r.Empty() {
		return nil
	}
	if need := f.RowBytes(r.Dx()) * r.Dy(); len(pix) < need {
		return fmt.Errorf("panel: %d bytes for %dx%d %s, need %d", len(pix), r.Dx(), r.Dy(), f, need)
	}
	return nil
}

// nativeRows calls fn for every row of clip, a part of r, with the row
// converted from f to the native format. The row slice is only valid
// during the call.
func (b *base) nativeRows(r, clip image.Rectangle, pix []byte, f pixfmt.Format, fn func(y int, row []byte) error) error {
	stride := f.RowBytes(r.Dx())
	n := clip.Dx()
	skip := clip.Min.X - r.Min.X
	conv := pixfmt.Converter{Src: f, Dst: b.native, SwapRB: b.swapRB}
	buf := b.scratch(max(f.RowBytes(n), b.native.RowBytes(n)))
	out := buf[:b.native.RowBytes(n)]
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		pixfmt.CopyPixels(buf, pix[(y-r.Min.Y)*stride:], f, skip, n)
		if err := conv.ConvertInPlace(buf, n); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
		if err := fn(y, out); err != nil {
			return err
		}
	}
	return nil
}

// fillRow returns n pixels of c in the native format.
func (b *base) fillRow(n int, c color.Color) ([]byte, error) {
	conv := pixfmt.Converter{Dst: b.native, SwapRB: b.swapRB}
	row := b.scratch(b.native.RowBytes(n))
	if err := conv.Fill(row, n, c); err != nil {
		return nil, err
	}
	return row, nil
}

// nativePixels is nativeRows for drivers rotating in software: set receives
// the native position of pixel i of the converted row.
func (b *base) nativePixels(r, clip image.Rectangle, pix []byte, f pixfmt.Format, set func(p image.Point, row []byte, i int)) error {
	sp := b.Space()
	return b.nativeRows(r, clip, pix, f, func(y int, row []byte) error {
		for i := 0; i < clip.Dx(); i++ {
			set(sp.ToNative(image.Pt(clip.Min.X+i, y)), row, i)
		}
		return nil
	})
}

// readShadow reads r back from a shadow copy held in format src. get packs
// the pixel at native position p into slot i of a zeroed row.
func (b *base) readShadow(r image.Rectangle, dst []byte, f, src pixfmt.Format, get func(row []byte, i int, p image.Point)) error {
	if r.Empty() || !r.In(b.Bounds()) {
		return fmt.Errorf("%s: read %v outside %v", b.name, r, b.Bounds())
	}
	if err := checkPix(r, dst, f); err != nil {
		return err
	}
	sp := b.Space()
	n := r.Dx()
	row := make([]byte, src.RowBytes(n))
	conv := pixfmt.Converter{Src: src, Dst: f, SwapRB: b.swapRB}
	stride := f.RowBytes(n)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		clear(row)
		for i := 0; i < n; i++ {
			get(row, i, sp.ToNative(image.Pt(r.Min.X+i, y)))
		}
		if err := conv.ConvertRow(dst[(y-r.Min.Y)*stride:], row, n); err != nil {
			return fmt.Errorf("%s: %w", b.name, err)
		}
	}
	return nil
}
