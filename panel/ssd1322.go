package panel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/flavioheleno/lgfx/bus"
	"github.com/flavioheleno/lgfx/geom"
	"github.com/flavioheleno/lgfx/pixfmt"
)

// SSD1322Opts is the configuration of a SSD1322 display.
type SSD1322Opts struct {
	Opts
	// OddEvenSplit selects the odd/even COM pin layout used by some modules.
	OddEvenSplit bool
	// SingleCOM disables the dual COM line mode.
	SingleCOM bool
}

// SSD1322 drives a 4-bit grayscale OLED controller with 480x128 pixels of
// memory. Common modules show 256x64 or 128x64 pixels centered in it.
//
// Drawing goes to a shadow copy of the panel. The changed area is sent when
// the outermost bus transaction ends, or on Display.
type SSD1322 struct {
	base
	com    SSD1322Opts
	shadow *pixfmt.Nibble
	last   *pixfmt.Nibble // content of the controller memory
	dirty  image.Rectangle
}

// NewSSD1322 returns a driver for a SSD1322 on the bus guarded by a.
func NewSSD1322(a *bus.Arbiter, opts *SSD1322Opts) *SSD1322 {
	if opts == nil {
		opts = &SSD1322Opts{}
	}
	d := &SSD1322{
		base: newBase("ssd1322", a, pixfmt.Gray4, &opts.Opts),
		com:  *opts,
	}
	a.OnRelease(d.flush)
	return d
}

// DefaultGeometry returns the geometry of the common 256x64 module.
func (d *SSD1322) DefaultGeometry() Geometry {
	return Geometry{
		PanelWidth: 256, PanelHeight: 64,
		MemoryWidth: 480, MemoryHeight: 128,
		OffsetX: (480 - 256) / 2,
	}
}

// Configure implements Driver. Columns are addressed four pixels at a time,
// so the width and the horizontal offset must be multiples of 4.
func (d *SSD1322) Configure(g Geometry) error {
	if g.MemoryWidth == 0 && g.MemoryHeight == 0 {
		g.MemoryWidth, g.MemoryHeight = 480, 128
	}
	switch {
	case g.MemoryWidth > 480 || g.MemoryHeight > 128:
		return &ConfigError{"memory size", fmt.Sprintf("%dx%d exceeds 480x128", g.MemoryWidth, g.MemoryHeight)}
	case g.PanelWidth%4 != 0:
		return &ConfigError{"panel size", fmt.Sprintf("width %d is not a multiple of 4", g.PanelWidth)}
	case g.OffsetX%4 != 0:
		return &ConfigError{"offset", fmt.Sprintf("x offset %d is not a multiple of 4", g.OffsetX)}
	}
	if err := d.configure(g); err != nil {
		return err
	}
	native := image.Rect(0, 0, g.PanelWidth, g.PanelHeight)
	d.shadow = pixfmt.NewNibble(native)
	d.last = pixfmt.NewNibble(native)
	d.dirty = image.Rectangle{}
	return nil
}

// Init implements Driver. It clears the panel.
func (d *SSD1322) Init() error {
	if !d.configured {
		return ErrNotConfigured
	}
	if err := d.reset(); err != nil {
		return err
	}
	remap1, remap2 := byte(0x14), byte(0x11)
	if d.com.OddEvenSplit {
		remap1 |= 0x20
	}
	if d.com.SingleCOM {
		remap2 &^= 0x10
	}
	cmds := []Command{
		{Cmd: 0xFD, Data: []byte{0x12}}, // unlock
		{Cmd: 0xAE},                     // display off
		{Cmd: 0xB3, Data: []byte{0xF2}}, // clock divider
		{Cmd: 0xCA, Data: []byte{byte(d.g.OffsetY + d.g.PanelHeight - 1)}}, // MUX ratio
		{Cmd: 0xA2, Data: []byte{0x00}},                                    // display offset
		{Cmd: 0xA1, Data: []byte{0x00}},                                    // start line
		{Cmd: 0xA0, Data: []byte{remap1, remap2}},
		{Cmd: 0xAB, Data: []byte{0x01}}, // internal VDD
		{Cmd: 0xB4, Data: []byte{0xA0, 0xFD}},
		{Cmd: 0xC1, Data: []byte{0xFF}}, // contrast
		{Cmd: 0xC7, Data: []byte{0x0F}}, // master contrast
		{Cmd: 0xB9},                     // default grayscale table
		{Cmd: 0xB1, Data: []byte{0xE2}}, // phase length
		{Cmd: 0xD1, Data: []byte{0x82, 0x20}},
		{Cmd: 0xBB, Data: []byte{0x1F}}, // pre-charge voltage
		{Cmd: 0xB6, Data: []byte{0x08}}, // second pre-charge period
		{Cmd: 0xBE, Data: []byte{0x07}}, // VCOMH
		{Cmd: 0xA6},                     // normal display
		{Cmd: 0xA9},                     // exit partial display
	}
	err := d.transaction(func() error {
		if err := d.commands(cmds); err != nil {
			return err
		}
		clear(d.shadow.Pix)
		clear(d.last.Pix)
		d.dirty = image.Rectangle{}
		if err := d.writeRect(d.shadow.Rect); err != nil {
			return err
		}
		return d.command(0xAF)
	})
	if err != nil {
		return fmt.Errorf("ssd1322: init: %w", err)
	}
	d.halted = false
	d.debug("initialized")
	return nil
}

// SetRotation implements Driver. Rotation is done in software.
func (d *SSD1322) SetRotation(r geom.Rotation) error {
	if !d.configured {
		d.rotation = r & 7
		return nil
	}
	d.applyRotation(r)
	return nil
}

// WriteRect implements Driver.
func (d *SSD1322) WriteRect(r image.Rectangle, pix []byte, f pixfmt.Format) error {
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
				d.shadow.SetRow(clip.Min.X, y, row, clip.Dx())
				return nil
			})
		}
		return d.nativePixels(r, clip, pix, f, func(p image.Point, row []byte, i int) {
			d.shadow.SetLevel(p.X, p.Y, pixfmt.Gray4Level(row, i))
		})
	})
}

// FillRect implements Driver.
func (d *SSD1322) FillRect(r image.Rectangle, c color.Color) error {
	clip, ok := d.clip(r)
	if !ok {
		return nil
	}
	if err := d.checkHalted(); err != nil {
		return err
	}
	v := pixfmt.Gray4Model.Convert(c).(pixfmt.Gray4Color)
	return d.transaction(func() error {
		d.markDirty(clip)
		d.shadow.Fill(d.Space().RectToNative(clip), v.Y)
		return nil
	})
}

// ReadRect implements Reader from the shadow copy.
func (d *SSD1322) ReadRect(r image.Rectangle, dst []byte, f pixfmt.Format) error {
	if !d.configured {
		return ErrNotConfigured
	}
	if d.internal == geom.Rotate0 && f == pixfmt.Gray4 && r.In(d.Bounds()) {
		if err := checkPix(r, dst, f); err != nil {
			return err
		}
		stride := f.RowBytes(r.Dx())
		for y := r.Min.Y; y < r.Max.Y; y++ {
			d.shadow.Row(dst[(y-r.Min.Y)*stride:], r.Min.X, y, r.Dx())
		}
		return nil
	}
	return d.readShadow(r, dst, f, pixfmt.Gray4, func(row []byte, i int, p image.Point) {
		pixfmt.SetGray4Level(row, i, d.shadow.Level(p.X, p.Y))
	})
}

// Display sends the pending changes unless a transaction is still open.
func (d *SSD1322) Display() error {
	return d.transaction(func() error { return nil })
}

func (d *SSD1322) markDirty(clip image.Rectangle) {
	d.dirty = d.dirty.Union(d.Space().RectToNative(clip))
}

// flush sends the part of the dirty area that differs from what the
// controller shows.
func (d *SSD1322) flush() error {
	if d.dirty.Empty() || d.halted {
		return nil
	}
	r := d.calculateDiff(d.dirty)
	d.dirty = image.Rectangle{}
	if r.Empty() {
		return nil
	}
	return d.writeRect(r)
}

// calculateDiff returns the smallest 4-pixel aligned rectangle inside area
// holding every changed pixel.
func (d *SSD1322) calculateDiff(area image.Rectangle) image.Rectangle {
	stride := d.shadow.Stride
	minCol, maxCol := area.Max.X, -1
	minRow, maxRow := area.Max.Y, -1
	x0, x1 := area.Min.X/2, (area.Max.X+1)/2
	for y := area.Min.Y; y < area.Max.Y; y++ {
		row := y * stride
		if bytes.Equal(d.last.Pix[row+x0:row+x1], d.shadow.Pix[row+x0:row+x1]) {
			continue
		}
		minRow = min(minRow, y)
		maxRow = max(maxRow, y)
		for x := x0; x < x1; x++ {
			if d.last.Pix[row+x] != d.shadow.Pix[row+x] {
				minCol = min(minCol, x*2)
				maxCol = max(maxCol, x*2+1)
			}
		}
	}
	if maxRow < 0 {
		return image.Rectangle{}
	}
	minCol &^= 3
	maxCol = min(maxCol|3, d.shadow.Rect.Dx()-1)
	return image.Rect(minCol, minRow, maxCol+1, maxRow+1)
}

// writeRect sends the shadow content of r, in native coordinates, to the
// controller.
func (d *SSD1322) writeRect(r image.Rectangle) error {
	x0, x1 := r.Min.X+d.g.OffsetX, r.Max.X-1+d.g.OffsetX
	y0, y1 := r.Min.Y+d.g.OffsetY, r.Max.Y-1+d.g.OffsetY
	if err := d.command(0x15, byte(x0/4), byte(x1/4)); err != nil {
		return err
	}
	if err := d.command(0x75, byte(y0), byte(y1)); err != nil {
		return err
	}
	if err := d.command(0x5C); err != nil {
		return err
	}
	stride := d.shadow.Stride
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := d.shadow.Pix[y*stride+r.Min.X/2 : y*stride+r.Max.X/2]
		if err := d.t.WriteData(row); err != nil {
			return err
		}
		copy(d.last.Pix[y*stride+r.Min.X/2:], row)
	}
	return nil
}

// SetContrast sets the display contrast.
func (d *SSD1322) SetContrast(contrast byte) error {
	if err := d.checkHalted(); err != nil {
		return err
	}
	return d.transaction(func() error {
		return d.command(0xC1, contrast)
	})
}

// SetBrightness sets the master contrast, which has 16 steps.
func (d *SSD1322) SetBrightness(level uint8) error {
	if err := d.checkHalted(); err != nil {
		return err
	}
	return d.transaction(func() error {
		return d.command(0xC7, level>>4)
	})
}

// SetInvert inverts the display colors.
func (d *SSD1322) SetInvert(invert bool) error {
	if err := d.checkHalted(); err != nil {
		return err
	}
	mode := byte(0xA6)
	if invert != d.g.Invert {
		mode = 0xA7
	}
	return d.transaction(func() error {
		return d.command(mode)
	})
}

// ScrollSpeed is the horizontal scroll step interval.
type ScrollSpeed byte

// Scroll step intervals, in frames.
const (
	Speed6Frames   ScrollSpeed = 0x00
	Speed10Frames  ScrollSpeed = 0x01
	Speed100Frames ScrollSpeed = 0x02
	Speed200Frames ScrollSpeed = 0x03
)

// ScrollHorizontal starts scrolling the panel rows startRow to endRow.
func (d *SSD1322) ScrollHorizontal(startRow, endRow int, speed ScrollSpeed, right bool) error {
	if err := d.checkHalted(); err != nil {
		return err
	}
	if !d.configured {
		return ErrNotConfigured
	}
	if startRow < 0 || endRow < startRow || endRow >= d.g.PanelHeight {
		return errors.New("ssd1322: scroll row out of range")
	}
	cmd := byte(0x26)
	if right {
		cmd = 0x27
	}
	start, end := byte(startRow+d.g.OffsetY), byte(endRow+d.g.OffsetY)
	return d.transaction(func() error {
		if err := d.command(cmd, 0x00, start, byte(speed), end, 0x00, 0x00); err != nil {
			return err
		}
		return d.command(0x2F)
	})
}

// StopScroll stops scrolling. The controller memory is rewritten by the
// next flush of the affected area.
func (d *SSD1322) StopScroll() error {
	if err := d.checkHalted(); err != nil {
		return err
	}
	return d.transaction(func() error {
		return d.command(0x2E)
	})
}

// Halt turns the display off. Init turns it back on.
func (d *SSD1322) Halt() error {
	err := d.transaction(func() error {
		return d.command(0xAE)
	})
	d.halted = true
	return err
}
