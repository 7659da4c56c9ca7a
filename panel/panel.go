// Package panel drives display controllers through a bus.Transport.
//
// Every driver exposes the same logical coordinate space: a rectangle in
// post-rotation coordinates whose origin is the top-left corner of the
// visible area. Drivers clip, translate to controller memory and convert
// pixels to the controller's native format before anything reaches the bus.
//
// LCD covers the MIPI-DCS family (ILI9341, ST7789, ST7735, ILI9488,
// GC9A01), rotating in hardware through MADCTL. SSD1306, SSD1322 and
// Framebuffer keep a shadow copy of the panel memory, rotate in software
// and flush dirty areas when the outermost bus transaction ends.
//
// Drawing before Configure is a no-op.
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

// Driver is implemented by every panel.
type Driver interface {
	String() string
	// Halt turns the display off.
	Halt() error

	// Configure validates and applies the panel geometry.
	Configure(g Geometry) error
	// Init resets the controller and sends its init sequence.
	Init() error

	SetRotation(r geom.Rotation) error
	Rotation() geom.Rotation
	// Bounds returns the visible logical area; empty until configured.
	Bounds() image.Rectangle
	// Space maps between logical and native panel coordinates.
	Space() geom.Space
	// Native is the pixel format the controller stores.
	Native() pixfmt.Format

	// WriteRect draws pix, r.Dx() by r.Dy() pixels of format f with rows
	// padded to whole bytes, at r. The part of r outside Bounds is dropped.
	WriteRect(r image.Rectangle, pix []byte, f pixfmt.Format) error
	// FillRect paints r with a solid color.
	FillRect(r image.Rectangle, c color.Color) error

	// Arbiter returns the arbiter of the bus the panel sits on.
	Arbiter() *bus.Arbiter
}

// Reader is implemented by drivers able to read pixels back.
type Reader interface {
	// ReadRect reads r, which must lie inside Bounds, into dst as format f.
	ReadRect(r image.Rectangle, dst []byte, f pixfmt.Format) error
}

// ErrNotConfigured is returned by operations that need a geometry.
var ErrNotConfigured = errors.New("panel: not configured")

// ReadRect reads pixels back from d. Drivers without readback return an
// error wrapping errors.ErrUnsupported without touching the bus.
func ReadRect(d Driver, r image.Rectangle, dst []byte, f pixfmt.Format) error {
	rd, ok := d.(Reader)
	if !ok {
		return fmt.Errorf("panel: %s cannot read back: %w", d, errors.ErrUnsupported)
	}
	return rd.ReadRect(r, dst, f)
}

// Geometry describes a panel's visible area inside controller memory.
type Geometry struct {
	// PanelWidth and PanelHeight are the visible size, unrotated.
	PanelWidth, PanelHeight int
	// MemoryWidth and MemoryHeight are the controller memory size. Zero
	// means the same as the panel.
	MemoryWidth, MemoryHeight int
	// OffsetX and OffsetY place the visible area inside memory.
	OffsetX, OffsetY int
	// OffsetRotation is added to every rotation set by the user. Values
	// 4-7 are mirrored.
	OffsetRotation geom.Rotation
	// Invert flips the meaning of SetInvert for panels wired inverted.
	Invert bool
	// BGR marks panels storing blue in the most significant bits.
	BGR bool
}

// ConfigError reports an invalid Geometry.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "panel: invalid " + e.Field + ": " + e.Reason
}

// normalize fills defaults and validates g.
func (g Geometry) normalize() (Geometry, error) {
	if g.MemoryWidth == 0 {
		g.MemoryWidth = g.PanelWidth
	}
	if g.MemoryHeight == 0 {
		g.MemoryHeight = g.PanelHeight
	}
	switch {
	case g.PanelWidth <= 0 || g.PanelHeight <= 0:
		return g, &ConfigError{"panel size", fmt.Sprintf("%dx%d is empty", g.PanelWidth, g.PanelHeight)}
	case g.PanelWidth > g.MemoryWidth || g.PanelHeight > g.MemoryHeight:
		return g, &ConfigError{"panel size", fmt.Sprintf("%dx%d exceeds memory %dx%d",
			g.PanelWidth, g.PanelHeight, g.MemoryWidth, g.MemoryHeight)}
	case g.OffsetX < 0 || g.OffsetY < 0:
		return g, &ConfigError{"offset", "must not be negative"}
	case g.OffsetX+g.PanelWidth > g.MemoryWidth || g.OffsetY+g.PanelHeight > g.MemoryHeight:
		return g, &ConfigError{"offset", fmt.Sprintf("(%d,%d) pushes the panel outside memory", g.OffsetX, g.OffsetY)}
	case !g.OffsetRotation.Valid():
		return g, &ConfigError{"offset rotation", fmt.Sprintf("%d is not in 0-7", g.OffsetRotation)}
	}
	return g, nil
}

// Command is one entry of a controller init table.
type Command struct {
	Cmd   byte
	Data  []byte
	Delay time.Duration
}

// sleep is replaced in tests.
var sleep = time.Sleep

var (
	_ Driver = (*LCD)(nil)
	_ Driver = (*SSD1306)(nil)
	_ Driver = (*SSD1322)(nil)
	_ Driver = (*Framebuffer)(nil)
	_ Reader = (*LCD)(nil)
	_ Reader = (*SSD1306)(nil)
	_ Reader = (*SSD1322)(nil)
	_ Reader = (*Framebuffer)(nil)
)
