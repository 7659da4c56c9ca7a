package panel

import (
	"fmt"
	"image"
	"image/color"

	"github.com/flavioheleno/lgfx/bus"
	"github.com/flavioheleno/lgfx/geom"
	"github.com/flavioheleno/lgfx/pixfmt"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// SSD1306 drives a monochrome OLED controller with 128x64 pixels of memory,
// organized in pages of 8 vertical pixels. It works over I2C and 4-wire SPI.
//
// Like SSD1322, drawing goes to a shadow copy flushed when the outermost
// transaction ends.
type SSD1306 struct {
	base
	shadow   *image1bit.VerticalLSB
	dirty    image.Rectangle
	contrast byte
}

// NewSSD1306 returns a driver for a SSD1306 on the bus guarded by a.
func NewSSD1306(a *bus.Arbiter, opts *Opts) *SSD1306 {
	d := &SSD1306{
		base:     newBase("ssd1306", a, pixfmt.Mono1, opts),
		contrast: 0xCF,
	}
	a.OnRelease(d.flush)
	return d
}

// DefaultGeometry returns the geometry of the common 128x64 module.
func (d *SSD1306) DefaultGeometry() Geometry {
	return Geometry{PanelWidth: 128, PanelHeight: 64}
}

// Configure implements Driver. Rows are addressed a page at a time, so the
// height and the vertical offset must be multiples of 8.
func (d *SSD1306) Configure(g Geometry) error {
	switch {
	case g.MemoryWidth > 128 || g.MemoryHeight > 64:
		return &ConfigError{"memory size", fmt.Sprintf("%dx%d exceeds 128x64", g.MemoryWidth, g.MemoryHeight)}
	case g.PanelWidth > 128 || g.PanelHeight > 64:
		return &ConfigError{"panel size", fmt.Sprintf("%dx%d exceeds 128x64", g.PanelWidth, g.PanelHeight)}
	case g.PanelHeight%8 != 0:
		return &ConfigError{"panel size", fmt.Sprintf("height %d is not a multiple of 8", g.PanelHeight)}
	case g.OffsetY%8 != 0:
		return &ConfigError{"offset", fmt.Sprintf("y offset %d is not a multiple of 8", g.OffsetY)}
	}
	if err := d.configure(g); err != nil {
		return err
	}
	d.shadow = image1bit.NewVerticalLSB(image.Rect(0, 0, g.PanelWidth, g.PanelHeight))
	d.dirty = image.Rectangle{}
	return nil
}

// Init implements Driver. It clears the panel.
func (d *SSD1306) Init() error {
	if !d.configured {
		return ErrNotConfigured
	}
	if err := d.reset(); err != nil {
		return err
	}
	comPins := byte(0x12)
	if d.g.MemoryHeight <= 32 {
		comPins = 0x02
	}
	seq := []byte{
		0xAE,       // display off
		0xD5, 0x80, // clock divider
		0xA8, byte(d.g.MemoryHeight - 1), // multiplex ratio
		0xD3, 0x00, // display offset
		0x40,       // start line
		0x8D, 0x14, // charge pump
		0x20, 0x00, // horizontal addressing
		0xA1,       // segment remap
		0xC8,       // COM scan descending
		0xDA, comPins,
		0x81, d.contrast,
		0xD9, 0xF1, // pre-charge
		0xDB, 0x40, // VCOMH
		0x2E, // no scroll
		0xA4, // resume from RAM
		0xA6, // normal display
	}
	d.halted = false
	err := d.transaction(func() error {
		if err := d.t.WriteCommand(seq); err != nil {
			return err
		}
		clear(d.shadow.Pix)
		d.dirty = d.shadow.Rect
		if err := d.flush(); err != nil {
			return err
		}
		return d.t.WriteCommand([]byte{0xAF})
	})
	if err != nil {
		return fmt.Errorf("ssd1306: init: %w", err)
	}
	d.debug("initialized")
	return nil
}

// SetRotation implements Driver. Rotation is done in software.
func (d *SSD1306) SetRotation(r geom.Rotation) error {
	if !d.configured {
		d.rotation = r & 7
		return nil
	}
	d.applyRotation(r)
	return nil
}

// WriteRect implements Driver.
func (d *SSD1306) WriteRect(r image.Rectangle, pix []byte, f pixfmt.Format) error {
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
		d.dirty = d.dirty.Union(d.Space().RectToNative(clip))
		return d.nativePixels(r, clip, pix, f, func(p image.Point, row []byte, i int) {
			d.shadow.SetBit(p.X, p.Y, image1bit.Bit(row[i/8]&(0x80>>uint(i%8)) != 0))
		})
	})
}

// FillRect implements Driver.
func (d *SSD1306) FillRect(r image.Rectangle, c color.Color) error {
	clip, ok := d.clip(r)
	if !ok {
		return nil
	}
	if err := d.checkHalted(); err != nil {
		return err
	}
	px, err := d.fillRow(1, c)
	if err != nil {
		return err
	}
	v := image1bit.Bit(px[0]&0x80 != 0)
	n := d.Space().RectToNative(clip)
	return d.transaction(func() error {
		d.dirty = d.dirty.Union(n)
		for y := n.Min.Y; y < n.Max.Y; y++ {
			for x := n.Min.X; x < n.Max.X; x++ {
				d.shadow.SetBit(x, y, v)
			}
		}
		return nil
	})
}

// ReadRect implements Reader from the shadow copy.
func (d *SSD1306) ReadRect(r image.Rectangle, dst []byte, f pixfmt.Format) error {
	if !d.configured {
		return ErrNotConfigured
	}
	return d.readShadow(r, dst, f, pixfmt.Mono1, func(row []byte, i int, p image.Point) {
		if d.shadow.BitAt(p.X, p.Y) {
			row[i/8] |= 0x80 >> uint(i%8)
		}
	})
}

// Display sends the pending changes unless a transaction is still open.
func (d *SSD1306) Display() error {
	return d.transaction(func() error { return nil })
}

// flush sends the pages covered by the dirty area.
func (d *SSD1306) flush() error {
	if d.dirty.Empty() || d.halted {
		return nil
	}
	r := d.dirty
	d.dirty = image.Rectangle{}
	p0, p1 := r.Min.Y/8, (r.Max.Y-1)/8
	ox, op := d.g.OffsetX, d.g.OffsetY/8
	err := d.t.WriteCommand([]byte{
		0x21, byte(r.Min.X + ox), byte(r.Max.X - 1 + ox), // column range
		0x22, byte(p0 + op), byte(p1 + op), // page range
	})
	if err != nil {
		return err
	}
	stride := d.shadow.Stride
	for p := p0; p <= p1; p++ {
		if err := d.t.WriteData(d.shadow.Pix[p*stride+r.Min.X : p*stride+r.Max.X]); err != nil {
			return err
		}
	}
	return nil
}

// SetContrast sets the display contrast.
func (d *SSD1306) SetContrast(contrast byte) error {
	if err := d.checkHalted(); err != nil {
		return err
	}
	d.contrast = contrast
	return d.transaction(func() error {
		return d.t.WriteCommand([]byte{0x81, contrast})
	})
}

// SetBrightness is SetContrast; the panel has no backlight.
func (d *SSD1306) SetBrightness(level uint8) error {
	return d.SetContrast(level)
}

// SetInvert inverts the display colors.
func (d *SSD1306) SetInvert(invert bool) error {
	if err := d.checkHalted(); err != nil {
		return err
	}
	mode := byte(0xA6)
	if invert != d.g.Invert {
		mode = 0xA7
	}
	return d.transaction(func() error {
		return d.t.WriteCommand([]byte{mode})
	})
}

// Halt turns the display off. Init turns it back on.
func (d *SSD1306) Halt() error {
	err := d.transaction(func() error {
		return d.t.WriteCommand([]byte{0xAE})
	})
	d.halted = true
	return err
}
