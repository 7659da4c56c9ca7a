package pixfmt

import (
	"image"
	"image/color"
)

// Nibble is an image whose rows are packed Gray4, the layout of SSD1322
// display memory. Rect.Min.X must be even so that every row starts on a
// byte.
type Nibble struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
}

// NewNibble returns a black image covering r. It panics when r has an odd
// width or starts on an odd column.
func NewNibble(r image.Rectangle) *Nibble {
	if r.Empty() {
		return &Nibble{Rect: r}
	}
	if r.Dx()%2 != 0 || r.Min.X%2 != 0 {
		panic("pixfmt: nibble image must start and end on a byte")
	}
	stride := Gray4.RowBytes(r.Dx())
	return &Nibble{Pix: make([]byte, stride*r.Dy()), Stride: stride, Rect: r}
}

func (p *Nibble) ColorModel() color.Model { return Gray4Model }

func (p *Nibble) Bounds() image.Rectangle { return p.Rect }

func (p *Nibble) At(x, y int) color.Color {
	return Gray4Color{Y: p.Level(x, y)}
}

func (p *Nibble) Set(x, y int, c color.Color) {
	p.SetLevel(x, y, Gray4Model.Convert(c).(Gray4Color).Y)
}

// Level returns the gray level at (x, y), 0 outside the image.
func (p *Nibble) Level(x, y int) uint8 {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return 0
	}
	return Gray4Level(p.row(y), x-p.Rect.Min.X)
}

// SetLevel sets the gray level at (x, y). Points outside the image are
// ignored.
func (p *Nibble) SetLevel(x, y int, v uint8) {
	if !(image.Point{X: x, Y: y}.In(p.Rect)) {
		return
	}
	SetGray4Level(p.row(y), x-p.Rect.Min.X, v)
}

// Fill sets every pixel of r inside the image to level v.
func (p *Nibble) Fill(r image.Rectangle, v uint8) {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return
	}
	v &= 0x0F
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := p.row(y)
		x0, x1 := r.Min.X-p.Rect.Min.X, r.Max.X-p.Rect.Min.X
		if x0%2 != 0 {
			SetGray4Level(row, x0, v)
			x0++
		}
		if x1%2 != 0 {
			x1--
			SetGray4Level(row, x1, v)
		}
		for i := x0 / 2; i < x1/2; i++ {
			row[i] = v<<4 | v
		}
	}
}

// SetRow copies n pixels of the packed Gray4 row src to the image starting
// at (x, y). Pixels outside the image are dropped.
func (p *Nibble) SetRow(x, y int, src []byte, n int) {
	if y < p.Rect.Min.Y || y >= p.Rect.Max.Y {
		return
	}
	skip := max(p.Rect.Min.X-x, 0)
	n = min(n, p.Rect.Max.X-x)
	if skip >= n {
		return
	}
	dst := p.row(y)
	x0 := x + skip - p.Rect.Min.X
	if x%2 == 0 && skip%2 == 0 && (n-skip)%2 == 0 {
		copy(dst[x0/2:], src[skip/2:n/2])
		return
	}
	for i := skip; i < n; i++ {
		SetGray4Level(dst, x0+i-skip, Gray4Level(src, i))
	}
}

// Row packs n pixels starting at (x, y) into dst as Gray4. Pixels outside
// the image read as 0.
func (p *Nibble) Row(dst []byte, x, y, n int) {
	if x%2 == 0 && n%2 == 0 && y >= p.Rect.Min.Y && y < p.Rect.Max.Y &&
		x >= p.Rect.Min.X && x+n <= p.Rect.Max.X {
		o := (x - p.Rect.Min.X) / 2
		copy(dst, p.row(y)[o:o+n/2])
		return
	}
	for i := 0; i < n; i++ {
		SetGray4Level(dst, i, p.Level(x+i, y))
	}
}

func (p *Nibble) row(y int) []byte {
	o := (y - p.Rect.Min.Y) * p.Stride
	return p.Pix[o : o+p.Stride]
}
