package pixfmt

import (
	"image/color"
)

// Gray4Color is one of the 16 gray levels of the Gray4 format. Levels
// above 15 are masked.
type Gray4Color struct {
	Y uint8
}

// RGBA implements color.Color.
func (c Gray4Color) RGBA() (r, g, b, a uint32) {
	y := uint32(c.Y&0x0F) * 0x1111
	return y, y, y, 0xFFFF
}

// Gray4Model converts colors to Gray4Color the same way a Converter
// writing Gray4 does.
var Gray4Model = color.ModelFunc(func(c color.Color) color.Color {
	if g, ok := c.(Gray4Color); ok {
		return g
	}
	return Gray4Color{Y: luma(RGB(c)) >> 4}
})

// RGB565Color is a pixel of the RGB565 format as a native integer.
type RGB565Color uint16

// RGBA implements color.Color.
func (c RGB565Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := unpack565(uint16(c))
	return uint32(r8) * 0x101, uint32(g8) * 0x101, uint32(b8) * 0x101, 0xFFFF
}

// RGB565Model converts colors to RGB565Color.
var RGB565Model = color.ModelFunc(func(c color.Color) color.Color {
	if v, ok := c.(RGB565Color); ok {
		return v
	}
	return RGB565Color(pack565(RGB(c)))
})

func pack565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// unpack565 replicates the high bits into the low ones so that full scale
// maps back to 0xFF.
func unpack565(v uint16) (r, g, b uint8) {
	r5 := uint8(v>>11) & 0x1F
	g6 := uint8(v>>5) & 0x3F
	b5 := uint8(v) & 0x1F
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

func pack332(r, g, b uint8) uint8 {
	return (r>>5)<<5 | (g>>5)<<2 | b>>6
}

func unpack332(v uint8) (r, g, b uint8) {
	r3 := v >> 5
	g3 := (v >> 2) & 7
	b2 := v & 3
	return r3<<5 | r3<<2 | r3>>1, g3<<5 | g3<<2 | g3>>1, b2 * 0x55
}

func luma(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}

// RGB returns the 8-bit channels of c, ignoring alpha.
func RGB(c color.Color) (r, g, b uint8) {
	r32, g32, b32, _ := c.RGBA()
	return uint8(r32 >> 8), uint8(g32 >> 8), uint8(b32 >> 8)
}
