package panel

import (
	"fmt"
	"image"
	"image/color"

	"github.com/flavioheleno/lgfx/bus"
	"github.com/flavioheleno/lgfx/geom"
	"github.com/flavioheleno/lgfx/pixfmt"
)

// Framebuffer draws into the frame memory of an RGB timing bus. The panel
// has no controller, so rotation is done in software and the bus pushes the
// changed rows out when the outermost transaction ends.
type Framebuffer struct {
	base
	rgb    *bus.RGB
	frame  []byte
	stride int
	bpp    int
}

// NewFramebuffer returns a driver for the panel attached to the RGB bus
// guarded by a.
func NewFramebuffer(a *bus.Arbiter, opts *Opts) (*Framebuffer, error) {
	rgb, ok := a.Transport().(*bus.RGB)
	if !ok {
		return nil, fmt.Errorf("framebuffer: %s is not an RGB bus", a.Transport())
	}
	f := rgb.Format()
	if f.BitsPerPixel()%8 != 0 {
		return nil, fmt.Errorf("framebuffer: %s frames are not supported", f)
	}
	frame, stride := rgb.Frame()
	return &Framebuffer{
		base:   newBase("framebuffer", a, f, opts),
		rgb:    rgb,
		frame:  frame,
		stride: stride,
		bpp:    f.BitsPerPixel() / 8,
	}, nil
}

// DefaultGeometry returns the full frame.
func (d *Framebuffer) DefaultGeometry() Geometry {
	t := d.rgb.Timing()
	return Geometry{PanelWidth: t.Width, PanelHeight: t.Height}
}

// Configure implements Driver. The memory is the frame.
func (d *Framebuffer) Configure(g Geometry) error {
	t := d.rgb.Timing()
	if (g.MemoryWidth != 0 && g.MemoryWidth != t.Width) || (g.MemoryHeight != 0 && g.MemoryHeight != t.Height) {
		return &ConfigError{"memory size", fmt.Sprintf("%dx%d differs from the %dx%d frame",
			g.MemoryWidth, g.MemoryHeight, t.Width, t.Height)}
	}
	g.MemoryWidth, g.MemoryHeight = t.Width, t.Height
	if err := d.configure(g); err != nil {
		return err
	}
	d.swapRB = g.BGR
	return nil
}

// Init implements Driver. It clears the panel and turns the backlight on.
func (d *Framebuffer) Init() error {
	if !d.configured {
		return ErrNotConfigured
	}
	if err := d.reset(); err != nil {
		return err
	}
	d.halted = false
	err := d.transaction(func() error {
		clear(d.frame)
		d.rgb.MarkDirty(0, d.g.MemoryHeight)
		return nil
	})
	if err != nil {
		return fmt.Errorf("framebuffer: init: %w", err)
	}
	if d.opts.Backlight != nil {
		return d.setBacklight(255)
	}
	return nil
}

// SetRotation implements Driver. Rotation is done in software.
func (d *Framebuffer) SetRotation(r geom.Rotation) error {
	if !d.configured {
		d.rotation = r & 7
		return nil
	}
	d.applyRotation(r)
	return nil
}

func (d *Framebuffer) offset(p image.Point) int {
	return (p.Y+d.g.OffsetY)*d.stride + (p.X+d.g.OffsetX)*d.bpp
}

func (d *Framebuffer) markDirty(clip image.Rectangle) {
	n := d.Space().RectToNative(clip)
	d.rgb.MarkDirty(n.Min.Y+d.g.OffsetY, n.Max.Y+d.g.OffsetY)
}

// WriteRect implements Driver.
func (d *Framebuffer) WriteRect(r image.Rectangle, pix []byte, f pixfmt.Format) error {
	if err := checkPix(r, pix, f); err != nil {
		return err
	}
	clip, ok := d.clip(r)
	if !ok {
		return nil
	}
	if err := d.checkHalted(); err != nil {
		return err
	}
	return d.transaction(func() error {
		d.markDirty(clip)
		if d.internal == geom.Rotate0 {
			return d.nativeRows(r, clip, pix, f, func(y int, row []byte) error {
				copy(d.frame[d.offset(image.Pt(clip.Min.X, y)):], row)
				return nil
			})
		}
		return d.nativePixels(r, clip, pix, f, func(p image.Point, row []byte, i int) {
			copy(d.frame[d.offset(p):], row[i*d.bpp:(i+1)*d.bpp])
		})
	})
}

// FillRect implements Driver.
func (d *Framebuffer) FillRect(r image.Rectangle, c color.Color) error {
	clip, ok := d.clip(r)
	if !ok {
		return nil
	}
	if err := d.checkHalted(); err != nil {
		return err
	}
	n := d.Space().RectToNative(clip)
	row, err := d.fillRow(n.Dx(), c)
	if err != nil {
		return err
	}
	return d.transaction(func() error {
		d.markDirty(clip)
		for y := n.Min.Y; y < n.Max.Y; y++ {
			copy(d.frame[d.offset(image.Pt(n.Min.X, y)):], row)
		}
		return nil
	})
}

// ReadRect implements Reader from the frame memory.
func (d *Framebuffer) ReadRect(r image.Rectangle, dst []byte, f pixfmt.Format) error {
	if !d.configured {
		return ErrNotConfigured
	}
	return d.readShadow(r, dst, f, d.native, func(row []byte, i int, p image.Point) {
		o := d.offset(p)
		copy(row[i*d.bpp:], d.frame[o:o+d.bpp])
	})
}

// SetBrightness dims the backlight, 0 being off.
func (d *Framebuffer) SetBrightness(level uint8) error {
	return d.setBacklight(level)
}

// Halt stops drawing and turns the backlight off. The frame keeps being
// scanned out by the bus.
func (d *Framebuffer) Halt() error {
	d.halted = true
	if d.opts.Backlight == nil {
		return nil
	}
	return d.setBacklight(0)
}
