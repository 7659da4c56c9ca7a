// Package geom maps points and rectangles between a panel's logical
// (rotated) coordinate space and its native memory orientation.
//
// The same transform is used by panel drivers that rotate in software and by
// touch drivers, so that display and touch coordinates always agree.
package geom

import (
	"fmt"
	"image"
)

// Rotation is a clockwise quarter-turn count in the low two bits plus a
// mirror flag in bit 2. Values 4-7 are the mirrored (upside-down) variants.
type Rotation uint8

const (
	Rotate0 Rotation = iota
	Rotate90
	Rotate180
	Rotate270
	Mirror0
	Mirror90
	Mirror180
	Mirror270
)

// Valid reports whether r is in the range 0-7.
func (r Rotation) Valid() bool {
	return r < 8
}

// Mirrored reports whether r is one of the mirrored variants.
func (r Rotation) Mirrored() bool {
	return r&4 != 0
}

// SwapsAxes reports whether r exchanges width and height.
func (r Rotation) SwapsAxes() bool {
	return r&1 != 0
}

func (r Rotation) flipX() bool {
	return r&2 != 0
}

// flipY is set for rotations 1, 2, 4 and 7.
func (r Rotation) flipY() bool {
	return (1<<(r&7))&0b10010110 != 0
}

// Combine applies offset on top of r: quarter turns add up, mirror flags
// cancel each other out.
func (r Rotation) Combine(offset Rotation) Rotation {
	return ((r + offset) & 3) | ((r & 4) ^ (offset & 4))
}

func (r Rotation) String() string {
	if r.Mirrored() {
		return fmt.Sprintf("mirror%d", int(r&3)*90)
	}
	return fmt.Sprintf("rotate%d", int(r&3)*90)
}

// Space is a native memory area of Native.X by Native.Y pixels viewed
// through Rotation.
type Space struct {
	Native   image.Point
	Rotation Rotation
}

// Size returns the logical width and height.
func (s Space) Size() image.Point {
	if s.Rotation.SwapsAxes() {
		return image.Point{X: s.Native.Y, Y: s.Native.X}
	}
	return s.Native
}

// Bounds returns the logical rectangle anchored at the origin.
func (s Space) Bounds() image.Rectangle {
	return image.Rectangle{Max: s.Size()}
}

// ToLogical converts a native point to logical coordinates.
func (s Space) ToLogical(p image.Point) image.Point {
	size := s.Size()
	x, y := p.X, p.Y
	if s.Rotation.SwapsAxes() {
		x, y = y, x
	}
	if s.Rotation.flipX() {
		x = size.X - 1 - x
	}
	if s.Rotation.flipY() {
		y = size.Y - 1 - y
	}
	return image.Point{X: x, Y: y}
}

// ToNative converts a logical point to native coordinates. It is the exact
// inverse of ToLogical for the same Space.
func (s Space) ToNative(p image.Point) image.Point {
	size := s.Size()
	x, y := p.X, p.Y
	if s.Rotation.flipY() {
		y = size.Y - 1 - y
	}
	if s.Rotation.flipX() {
		x = size.X - 1 - x
	}
	if s.Rotation.SwapsAxes() {
		x, y = y, x
	}
	return image.Point{X: x, Y: y}
}

// RectToNative converts a logical rectangle to the native rectangle covering
// the same pixels.
func (s Space) RectToNative(r image.Rectangle) image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	a := s.ToNative(r.Min)
	b := s.ToNative(r.Max.Sub(image.Point{X: 1, Y: 1}))
	n := image.Rectangle{Min: a, Max: b}.Canon()
	n.Max = n.Max.Add(image.Point{X: 1, Y: 1})
	return n
}
