package pixfmt

import (
	"image/color"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Format is a pixel encoding.
type Format uint8

const (
	Invalid Format = iota
	// Mono1 is one bit per pixel, set bits are lit.
	Mono1
	// Gray4 is 16 levels of gray, two pixels per byte.
	Gray4
	// Indexed1, Indexed4 and Indexed8 are palette indices. They are only
	// valid as a conversion source.
	Indexed1
	Indexed4
	Indexed8
	RGB332
	// RGB565 is big-endian, as sent to MIPI-DCS controllers.
	RGB565
	RGB565LE
	RGB666
	RGB888
	BGR888
	BGRA8888
)

var formatInfo = [...]struct {
	name string
	bpp  int
}{
	Invalid:  {"invalid", 0},
	Mono1:    {"mono1", 1},
	Gray4:    {"gray4", 4},
	Indexed1: {"indexed1", 1},
	Indexed4: {"indexed4", 4},
	Indexed8: {"indexed8", 8},
	RGB332:   {"rgb332", 8},
	RGB565:   {"rgb565", 16},
	RGB565LE: {"rgb565le", 16},
	RGB666:   {"rgb666", 24},
	RGB888:   {"rgb888", 24},
	BGR888:   {"bgr888", 24},
	BGRA8888: {"bgra8888", 32},
}

func (f Format) String() string {
	if int(f) < len(formatInfo) {
		return formatInfo[f].name
	}
	return "invalid"
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f != Invalid && int(f) < len(formatInfo)
}

// BitsPerPixel returns the storage size of one pixel.
func (f Format) BitsPerPixel() int {
	if !f.Valid() {
		return 0
	}
	return formatInfo[f].bpp
}

// RowBytes returns the number of bytes needed to hold n pixels.
func (f Format) RowBytes(n int) int {
	return (n*f.BitsPerPixel() + 7) / 8
}

// Indexed reports whether f stores palette indices.
func (f Format) Indexed() bool {
	return f == Indexed1 || f == Indexed4 || f == Indexed8
}

// Model returns the color model matching f. Indexed formats have no fixed
// model and return color.RGBAModel.
func (f Format) Model() color.Model {
	switch f {
	case Mono1:
		return image1bit.BitModel
	case Gray4:
		return Gray4Model
	case RGB565, RGB565LE:
		return RGB565Model
	default:
		return color.RGBAModel
	}
}
