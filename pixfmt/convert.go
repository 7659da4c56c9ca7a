package pixfmt

import (
	"errors"
	"fmt"
	"image/color"
)

var (
	// ErrShortBuffer is returned when a buffer cannot hold the requested
	// number of pixels.
	ErrShortBuffer = errors.New("pixfmt: buffer too short")
	// ErrNoPalette is returned when converting from an indexed format
	// without a palette.
	ErrNoPalette = errors.New("pixfmt: indexed source without palette")
)

// Converter rewrites rows of pixels from Src to Dst.
//
// SwapRB exchanges the red and blue channels on the way, for panels wired
// in BGR order. Palette is used by the indexed source formats; indices past
// its end decode as black.
type Converter struct {
	Src     Format
	Dst     Format
	SwapRB  bool
	Palette []color.RGBA
}

func (c *Converter) validate() error {
	if !c.Src.Valid() {
		return fmt.Errorf("pixfmt: unsupported source format %d", c.Src)
	}
	if !c.Dst.Valid() || c.Dst.Indexed() {
		return fmt.Errorf("pixfmt: unsupported destination format %s", c.Dst)
	}
	if c.Src.Indexed() && len(c.Palette) == 0 {
		return ErrNoPalette
	}
	return nil
}

func (c *Converter) identity() bool {
	return c.Src == c.Dst && !c.SwapRB
}

// ConvertRow converts n pixels from src into dst. The buffers must not
// overlap; use ConvertInPlace for a shared buffer.
func (c *Converter) ConvertRow(dst, src []byte, n int) error {
	if err := c.validate(); err != nil {
		return err
	}
	if len(src) < c.Src.RowBytes(n) || len(dst) < c.Dst.RowBytes(n) {
		return ErrShortBuffer
	}
	if c.identity() {
		copy(dst, src[:c.Src.RowBytes(n)])
		return nil
	}
	for i := 0; i < n; i++ {
		c.convertPixel(dst, src, i)
	}
	clearTail(dst, c.Dst, n)
	return nil
}

// ConvertInPlace converts n pixels stored in buf at the source format into
// the destination format, starting at the beginning of buf. buf must be
// large enough for whichever of the two rows is longer.
//
// When the destination is not wider than the source, pixels are walked
// front to back; otherwise back to front. Either way a pixel is never
// overwritten before it has been read.
func (c *Converter) ConvertInPlace(buf []byte, n int) error {
	if err := c.validate(); err != nil {
		return err
	}
	if len(buf) < max(c.Src.RowBytes(n), c.Dst.RowBytes(n)) {
		return ErrShortBuffer
	}
	if c.identity() {
		return nil
	}
	if c.Dst.BitsPerPixel() <= c.Src.BitsPerPixel() {
		for i := 0; i < n; i++ {
			c.convertPixel(buf, buf, i)
		}
	} else {
		for i := n - 1; i >= 0; i-- {
			c.convertPixel(buf, buf, i)
		}
	}
	clearTail(buf, c.Dst, n)
	return nil
}

// clearTail zeroes the unused low bits of the last byte of a sub-byte row.
func clearTail(buf []byte, f Format, n int) {
	bits := n * f.BitsPerPixel()
	if rem := bits % 8; rem != 0 {
		buf[bits/8] &= byte(0xFF) << uint(8-rem)
	}
}

// Fill writes n copies of col into dst at the destination format.
func (c *Converter) Fill(dst []byte, n int, col color.Color) error {
	if !c.Dst.Valid() || c.Dst.Indexed() {
		return fmt.Errorf("pixfmt: unsupported destination format %s", c.Dst)
	}
	if len(dst) < c.Dst.RowBytes(n) {
		return ErrShortBuffer
	}
	r, g, b := RGB(col)
	if c.SwapRB {
		r, b = b, r
	}
	for i := 0; i < n; i++ {
		put(dst, c.Dst, i, r, g, b)
	}
	return nil
}

func (c *Converter) convertPixel(dst, src []byte, i int) {
	r, g, b := c.get(src, i)
	if c.SwapRB {
		r, b = b, r
	}
	put(dst, c.Dst, i, r, g, b)
}

func (c *Converter) get(buf []byte, i int) (r, g, b uint8) {
	switch c.Src {
	case Mono1:
		if buf[i>>3]>>(7-uint(i&7))&1 != 0 {
			return 0xFF, 0xFF, 0xFF
		}
		return 0, 0, 0
	case Gray4:
		v := Gray4Level(buf, i) * 0x11
		return v, v, v
	case Indexed1:
		return c.lookup(int(buf[i>>3] >> (7 - uint(i&7)) & 1))
	case Indexed4:
		return c.lookup(int(Gray4Level(buf, i)))
	case Indexed8:
		return c.lookup(int(buf[i]))
	case RGB332:
		return unpack332(buf[i])
	case RGB565:
		return unpack565(uint16(buf[2*i])<<8 | uint16(buf[2*i+1]))
	case RGB565LE:
		return unpack565(uint16(buf[2*i+1])<<8 | uint16(buf[2*i]))
	case RGB666:
		p := buf[3*i:]
		return p[0] | p[0]>>6, p[1] | p[1]>>6, p[2] | p[2]>>6
	case RGB888:
		p := buf[3*i:]
		return p[0], p[1], p[2]
	case BGR888:
		p := buf[3*i:]
		return p[2], p[1], p[0]
	case BGRA8888:
		p := buf[4*i:]
		return p[2], p[1], p[0]
	}
	return 0, 0, 0
}

func (c *Converter) lookup(idx int) (r, g, b uint8) {
	if idx >= len(c.Palette) {
		return 0, 0, 0
	}
	p := c.Palette[idx]
	return p.R, p.G, p.B
}

func put(buf []byte, f Format, i int, r, g, b uint8) {
	switch f {
	case Mono1:
		mask := byte(0x80) >> uint(i&7)
		if luma(r, g, b) >= 0x80 {
			buf[i>>3] |= mask
		} else {
			buf[i>>3] &^= mask
		}
	case Gray4:
		SetGray4Level(buf, i, luma(r, g, b)>>4)
	case RGB332:
		buf[i] = pack332(r, g, b)
	case RGB565:
		v := pack565(r, g, b)
		buf[2*i] = byte(v >> 8)
		buf[2*i+1] = byte(v)
	case RGB565LE:
		v := pack565(r, g, b)
		buf[2*i] = byte(v)
		buf[2*i+1] = byte(v >> 8)
	case RGB666:
		p := buf[3*i:]
		p[0], p[1], p[2] = r&0xFC, g&0xFC, b&0xFC
	case RGB888:
		p := buf[3*i:]
		p[0], p[1], p[2] = r, g, b
	case BGR888:
		p := buf[3*i:]
		p[0], p[1], p[2] = b, g, r
	case BGRA8888:
		p := buf[4*i:]
		p[0], p[1], p[2], p[3] = b, g, r, 0xFF
	}
}

// Gray4Level returns pixel i of a packed Gray4 row. Even pixels sit in the
// high nibble.
func Gray4Level(row []byte, i int) uint8 {
	return row[i>>1] >> (4 * (1 - uint(i&1))) & 0x0F
}

// SetGray4Level sets pixel i of a packed Gray4 row to level v.
func SetGray4Level(row []byte, i int, v uint8) {
	shift := 4 * (1 - uint(i&1))
	row[i>>1] = row[i>>1]&^(0x0F<<shift) | (v&0x0F)<<shift
}

// CopyPixels copies n pixels of format f starting at pixel index start of
// src to the beginning of dst, repacking sub-byte formats as needed.
func CopyPixels(dst, src []byte, f Format, start, n int) {
	bpp := f.BitsPerPixel()
	if bpp%8 == 0 {
		b := bpp / 8
		copy(dst, src[start*b:(start+n)*b])
		return
	}
	clear(dst[:f.RowBytes(n)])
	for i := 0; i < n; i++ {
		sbit := (start + i) * bpp
		dbit := i * bpp
		v := src[sbit/8] >> uint(8-bpp-sbit%8) & byte(1<<uint(bpp)-1)
		dst[dbit/8] |= v << uint(8-bpp-dbit%8)
	}
}
