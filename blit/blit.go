// Package blit streams uncompressed BMP images to a panel one row at a
// time.
//
// Only one row of the image is held in memory. The panel's bus transaction
// is released around every read from the source so that storage sharing
// the bus (an SD card on the display's SPI bus) can be accessed in the
// middle of a draw.
package blit

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"time"

	"github.com/flavioheleno/lgfx/bus"
	"github.com/flavioheleno/lgfx/panel"
	"github.com/flavioheleno/lgfx/pixfmt"
)

// Opts configures a Blitter.
type Opts struct {
	// Logger receives the header and timing of every draw at debug level.
	Logger *slog.Logger
}

// Blitter draws images on one panel.
type Blitter struct {
	d   panel.Driver
	arb *bus.Arbiter
	log *slog.Logger
}

// New returns a Blitter drawing on d.
func New(d panel.Driver, opts *Opts) *Blitter {
	b := &Blitter{d: d, arb: d.Arbiter()}
	if opts != nil {
		b.log = opts.Logger
	}
	return b
}

// DrawFile opens name with o and draws it with its top-left corner at
// (x, y). Nothing is opened when (x, y) is past the visible area.
func (b *Blitter) DrawFile(o Opener, name string, x, y int) (err error) {
	if b.past(x, y) {
		return nil
	}
	var f io.ReadSeekCloser
	if err := b.offBus(func() (err error) {
		f, err = o.Open(name)
		return err
	}); err != nil {
		return fmt.Errorf("blit: open %s: %w", name, err)
	}
	defer func() {
		if cerr := b.offBus(f.Close); err == nil {
			err = cerr
		}
	}()
	return b.Draw(f, x, y)
}

// Draw reads a BMP image from src and draws it with its top-left corner
// at (x, y). Parts outside the panel are clipped.
//
// Unsupported images fail with ErrDecode before anything is drawn. A
// source ending early fails with ErrTruncated after drawing the rows read
// so far.
func (b *Blitter) Draw(src io.ReadSeeker, x, y int) (err error) {
	if b.past(x, y) {
		return nil
	}
	start := time.Now()

	g, err := b.arb.Acquire()
	if err != nil {
		return err
	}
	defer func() {
		if rerr := g.Release(); err == nil {
			err = rerr
		}
	}()

	var h *Header
	if err := b.offBus(func() (err error) {
		if h, err = ReadHeader(src); err != nil {
			return err
		}
		_, err = src.Seek(h.Offset, io.SeekStart)
		return err
	}); err != nil {
		return err
	}
	if b.log != nil {
		b.log.Debug("bmp", "panel", b.d.String(), "width", h.Width, "height", h.Height,
			"bpp", h.BitsPerPixel, "colors", len(h.Palette))
	}

	native := b.d.Native()
	conv := &pixfmt.Converter{Src: h.Format(), Dst: native, Palette: h.Palette}
	stride := h.Stride()
	line := make([]byte, max(stride, native.RowBytes(h.Width)))

	cy, step := y+h.Height-1, -1
	if h.TopDown {
		cy, step = y, 1
	}
	for row := 0; row < h.Height; row++ {
		if err := b.offBus(func() error {
			_, err := io.ReadFull(src, line[:stride])
			return err
		}); err != nil {
			return fmt.Errorf("%w at row %d of %d", short("pixel data", err), row, h.Height)
		}
		if err := conv.ConvertInPlace(line, h.Width); err != nil {
			return fmt.Errorf("blit: %w", err)
		}
		if err := b.d.WriteRect(image.Rect(x, cy, x+h.Width, cy+1), line, native); err != nil {
			return err
		}
		cy += step
	}

	if b.log != nil {
		b.log.Debug("bmp drawn", "panel", b.d.String(), "elapsed", time.Since(start))
	}
	return nil
}

// past reports whether (x, y) lies right of or below the visible area.
func (b *Blitter) past(x, y int) bool {
	r := b.d.Bounds()
	return x >= r.Max.X || y >= r.Max.Y
}

// offBus runs fn with the bus released, then restores the transaction
// depth. The bus is closed even when a release hook fails, so fn still runs
// and the depth is always restored.
func (b *Blitter) offBus(fn func() error) error {
	depth, serr := b.arb.Suspend()
	ferr := fn()
	return errors.Join(ferr, serr, b.arb.Resume(depth))
}
