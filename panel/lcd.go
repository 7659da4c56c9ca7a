package panel

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/flavioheleno/lgfx/bus"
	"github.com/flavioheleno/lgfx/geom"
	"github.com/flavioheleno/lgfx/pixfmt"
)

// MIPI-DCS commands shared by the LCD family.
const (
	cmdNOP     = 0x00
	cmdSWRESET = 0x01
	cmdRDDID   = 0x04
	cmdSLPIN   = 0x10
	cmdSLPOUT  = 0x11
	cmdNORON   = 0x13
	cmdINVOFF  = 0x20
	cmdINVON   = 0x21
	cmdDISPOFF = 0x28
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdRASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdRAMRD   = 0x2E
	cmdMADCTL  = 0x36
	cmdIDMOFF  = 0x38
	cmdIDMON   = 0x39
	cmdCOLMOD  = 0x3A
)

// MADCTL bits.
const (
	madMY  = 0x80
	madMX  = 0x40
	madMV  = 0x20
	madML  = 0x10
	madBGR = 0x08
	madMH  = 0x04
)

var madctlTable = [8]byte{
	0,
	madMV | madMX | madMH,
	madMX | madMH | madMY | madML,
	madMV | madMY | madML,
	madMY | madML,
	madMV,
	madMX | madMH,
	madMV | madMX | madMY | madMH | madML,
}

// lcdModel describes one controller of the family.
type lcdModel struct {
	name       string
	geometry   Geometry
	native     pixfmt.Format
	dummyRead  int
	nopClosing bool
	init       []Command
}

// LCD drives a MIPI-DCS controller. Rotation is done by the controller
// through MADCTL, so pixels stream in logical row order.
type LCD struct {
	base
	model  lcdModel
	invert bool

	winValid bool
	xs, xe   int
	ys, ye   int
}

func newLCD(m lcdModel, a *bus.Arbiter, opts *Opts) *LCD {
	d := &LCD{
		base:  newBase(m.name, a, m.native, opts),
		model: m,
	}
	a.OnRelease(d.closeTransaction)
	return d
}

// DefaultGeometry returns the geometry of the common module built around
// the controller.
func (d *LCD) DefaultGeometry() Geometry {
	return d.model.geometry
}

// closeTransaction sends a trailing NOP on buses asking for it, so that a
// controller without a dedicated chip select ignores what follows.
func (d *LCD) closeTransaction() error {
	if !d.model.nopClosing {
		return nil
	}
	n, ok := d.t.(interface{ NopOnRelease() bool })
	if !ok || !n.NopOnRelease() {
		return nil
	}
	return d.t.WriteCommand([]byte{cmdNOP})
}

// Configure implements Driver.
func (d *LCD) Configure(g Geometry) error {
	d.winValid = false
	return d.configure(g)
}

// Init implements Driver.
func (d *LCD) Init() error {
	if !d.configured {
		return ErrNotConfigured
	}
	if err := d.reset(); err != nil {
		return err
	}
	d.winValid = false
	err := d.transaction(func() error {
		if d.opts.RST == nil {
			if err := d.command(cmdSWRESET); err != nil {
				return err
			}
			sleep(120 * time.Millisecond)
		}
		if err := d.commands(d.model.init); err != nil {
			return err
		}
		if err := d.updateMADCTL(); err != nil {
			return err
		}
		return d.command(d.invertCommand())
	})
	if err != nil {
		return fmt.Errorf("%s: init: %w", d.name, err)
	}
	d.halted = false
	d.debug("initialized", "rotation", d.rotation)
	return nil
}

func (d *LCD) colmod() byte {
	if d.native.BitsPerPixel() > 16 {
		return 0x66
	}
	return 0x55
}

func (d *LCD) updateMADCTL() error {
	if err := d.command(cmdCOLMOD, d.colmod()); err != nil {
		return err
	}
	m := madctlTable[d.internal]
	if d.g.BGR {
		m |= madBGR
	}
	return d.command(cmdMADCTL, m)
}

func (d *LCD) invertCommand() byte {
	if d.invert != d.g.Invert {
		return cmdINVON
	}
	return cmdINVOFF
}

// SetRotation implements Driver.
func (d *LCD) SetRotation(r geom.Rotation) error {
	if !d.configured {
		d.rotation = r & 7
		return nil
	}
	d.applyRotation(r)
	d.winValid = false
	return d.transaction(d.updateMADCTL)
}

// setWindow selects the memory area for the following RAMWR/RAMRD. Column
// and row ranges are only resent when they change.
func (d *LCD) setWindow(r image.Rectangle, cmd byte) error {
	xs, xe := r.Min.X, r.Max.X-1
	ys, ye := r.Min.Y, r.Max.Y-1
	if !d.winValid || xs != d.xs || xe != d.xe {
		if err := d.command(cmdCASET, be16pair(xs+d.colstart, xe+d.colstart)...); err != nil {
			return err
		}
		d.xs, d.xe = xs, xe
	}
	if !d.winValid || ys != d.ys || ye != d.ye {
		if err := d.command(cmdRASET, be16pair(ys+d.rowstart, ye+d.rowstart)...); err != nil {
			d.winValid = false
			return err
		}
		d.ys, d.ye = ys, ye
	}
	d.winValid = true
	return d.t.WriteCommand([]byte{cmd})
}

func be16pair(a, b int) []byte {
	return []byte{byte(a >> 8), byte(a), byte(b >> 8), byte(b)}
}

// WriteRect implements Driver.
func (d *LCD) WriteRect(r image.Rectangle, pix []byte, f pixfmt.Format) error {
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
		if err := d.setWindow(clip, cmdRAMWR); err != nil {
			return err
		}
		return d.nativeRows(r, clip, pix, f, func(_ int, row []byte) error {
			return d.t.WriteData(row)
		})
	})
}

// FillRect implements Driver.
func (d *LCD) FillRect(r image.Rectangle, c color.Color) error {
	clip, ok := d.clip(r)
	if !ok {
		return nil
	}
	if err := d.checkHalted(); err != nil {
		return err
	}
	rowBytes := d.native.RowBytes(clip.Dx())
	rows := max(1, min(clip.Dy(), 4096/rowBytes))
	block, err := d.fillRow(clip.Dx()*rows, c)
	if err != nil {
		return err
	}
	return d.transaction(func() error {
		if err := d.setWindow(clip, cmdRAMWR); err != nil {
			return err
		}
		for left := clip.Dy(); left > 0; left -= rows {
			if err := d.t.WriteData(block[:min(left, rows)*rowBytes]); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadRect implements Reader. The controller returns 18-bit pixels, one
// byte per channel, after one or two dummy bytes.
func (d *LCD) ReadRect(r image.Rectangle, dst []byte, f pixfmt.Format) error {
	if !d.opts.Readable {
		return fmt.Errorf("%s: readback not wired: %w", d.name, errors.ErrUnsupported)
	}
	if !d.configured {
		return ErrNotConfigured
	}
	if r.Empty() || !r.In(d.Bounds()) {
		return fmt.Errorf("%s: read %v outside %v", d.name, r, d.Bounds())
	}
	if err := checkPix(r, dst, f); err != nil {
		return err
	}
	w := r.Dx()
	raw := make([]byte, d.model.dummyRead+w*r.Dy()*3)
	err := d.transaction(func() error {
		if err := d.setWindow(r, cmdRAMRD); err != nil {
			return err
		}
		return d.t.ReadData(raw)
	})
	if err != nil {
		return err
	}
	raw = raw[d.model.dummyRead:]
	conv := pixfmt.Converter{Src: pixfmt.RGB666, Dst: f}
	stride := f.RowBytes(w)
	for y := 0; y < r.Dy(); y++ {
		if err := conv.ConvertRow(dst[y*stride:], raw[y*w*3:], w); err != nil {
			return err
		}
	}
	return nil
}

// ReadID returns the three identification bytes (manufacturer, version,
// module) packed from the most significant byte down.
func (d *LCD) ReadID() (uint32, error) {
	buf := make([]byte, 4)
	err := d.transaction(func() error {
		if err := d.command(cmdRDDID); err != nil {
			return err
		}
		return d.t.ReadData(buf)
	})
	if err != nil {
		return 0, fmt.Errorf("%s: read id: %w", d.name, err)
	}
	return uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]), nil
}

// SetInvert inverts the display colors, on top of Geometry.Invert.
func (d *LCD) SetInvert(invert bool) error {
	d.invert = invert
	return d.transaction(func() error {
		return d.command(d.invertCommand())
	})
}

// SetSleep enters or leaves sleep mode.
func (d *LCD) SetSleep(sleeping bool) error {
	cmd := byte(cmdSLPOUT)
	if sleeping {
		cmd = cmdSLPIN
	}
	return d.transaction(func() error {
		return d.command(cmd)
	})
}

// SetPowerSave switches idle mode, which drops the color depth to 8 colors.
func (d *LCD) SetPowerSave(on bool) error {
	cmd := byte(cmdIDMOFF)
	if on {
		cmd = cmdIDMON
	}
	return d.transaction(func() error {
		return d.command(cmd)
	})
}

// SetBrightness dims the backlight, 0 being off.
func (d *LCD) SetBrightness(level uint8) error {
	return d.setBacklight(level)
}

// Halt turns the display and its backlight off.
func (d *LCD) Halt() error {
	err := d.transaction(func() error {
		return d.command(cmdDISPOFF)
	})
	d.halted = true
	if d.opts.Backlight != nil {
		err = errors.Join(err, d.setBacklight(0))
	}
	return err
}
