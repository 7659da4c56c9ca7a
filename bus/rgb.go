package bus

import (
	"errors"
	"fmt"
	"io"

	"github.com/flavioheleno/lgfx/pixfmt"
	"periph.io/x/conn/v3/physic"
)

// Timing describes the sync signals of an RGB-timing panel. The values are
// recorded for the controller that scans the frame memory out; this package
// only validates them.
type Timing struct {
	Width, Height int

	HSyncPulse, HSyncBack, HSyncFront int
	VSyncPulse, VSyncBack, VSyncFront int

	HSyncActiveHigh bool
	VSyncActiveHigh bool
	DEActiveHigh    bool
	PclkActiveNeg   bool
	PclkFreq        physic.Frequency
}

// RGBConfig configures an RGB frame memory.
type RGBConfig struct {
	Timing Timing
	// Format is the frame memory pixel format. Defaults to RGB565LE, the
	// layout of a 16bpp Linux framebuffer.
	Format pixfmt.Format
	// Sink receives dirty rows when the outermost transaction ends, e.g.
	// an opened /dev/fb0. Nil keeps the frame in memory only.
	Sink io.WriterAt
}

// RGB is a frame memory continuously scanned out by an RGB-timing
// controller. It has no command channel: panels write pixels straight into
// Frame and mark the rows they touched.
type RGB struct {
	cfg        RGBConfig
	frame      []byte
	stride     int
	dirtyStart int
	dirtyEnd   int
}

// NewRGB allocates the frame memory described by cfg.
func NewRGB(cfg *RGBConfig) (*RGB, error) {
	if cfg == nil {
		return nil, errors.New("bus: rgb config required")
	}
	c := *cfg
	t := c.Timing
	if t.Width <= 0 || t.Height <= 0 {
		return nil, fmt.Errorf("bus: invalid rgb size %dx%d", t.Width, t.Height)
	}
	if t.HSyncPulse < 0 || t.HSyncBack < 0 || t.HSyncFront < 0 ||
		t.VSyncPulse < 0 || t.VSyncBack < 0 || t.VSyncFront < 0 {
		return nil, errors.New("bus: negative rgb sync timing")
	}
	if c.Format == pixfmt.Invalid {
		c.Format = pixfmt.RGB565LE
	}
	if c.Format.BitsPerPixel() < 8 || c.Format.Indexed() {
		return nil, fmt.Errorf("bus: unsupported rgb frame format %s", c.Format)
	}
	stride := c.Format.RowBytes(t.Width)
	return &RGB{
		cfg:        c,
		frame:      make([]byte, stride*t.Height),
		stride:     stride,
		dirtyStart: t.Height,
	}, nil
}

func (r *RGB) String() string {
	return fmt.Sprintf("bus.RGB{%dx%d}", r.cfg.Timing.Width, r.cfg.Timing.Height)
}

// Timing returns the configured timing.
func (r *RGB) Timing() Timing {
	return r.cfg.Timing
}

// Format returns the frame memory pixel format.
func (r *RGB) Format() pixfmt.Format {
	return r.cfg.Format
}

// Frame returns the frame memory and its stride in bytes.
func (r *RGB) Frame() ([]byte, int) {
	return r.frame, r.stride
}

// MarkDirty records that rows [y0, y1) changed.
func (r *RGB) MarkDirty(y0, y1 int) {
	y0 = max(y0, 0)
	y1 = min(y1, r.cfg.Timing.Height)
	if y0 >= y1 {
		return
	}
	r.dirtyStart = min(r.dirtyStart, y0)
	r.dirtyEnd = max(r.dirtyEnd, y1)
}

// Begin is a no-op.
func (r *RGB) Begin() error { return nil }

// End flushes dirty rows to the sink.
func (r *RGB) End() error {
	if r.dirtyStart >= r.dirtyEnd {
		return nil
	}
	start, end := r.dirtyStart, r.dirtyEnd
	r.dirtyStart, r.dirtyEnd = r.cfg.Timing.Height, 0
	if r.cfg.Sink == nil {
		return nil
	}
	off := start * r.stride
	if _, err := r.cfg.Sink.WriteAt(r.frame[off:end*r.stride], int64(off)); err != nil {
		return fmt.Errorf("bus: rgb flush: %w", err)
	}
	return nil
}

// WriteCommand is not supported.
func (r *RGB) WriteCommand([]byte) error { return ErrNoCommand }

// WriteData is not supported; write into Frame instead.
func (r *RGB) WriteData([]byte) error { return ErrNoCommand }

// ReadData is not supported; read Frame instead.
func (r *RGB) ReadData([]byte) error { return ErrNoCommand }
