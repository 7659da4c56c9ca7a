package touch

import (
	"slices"

	"periph.io/x/conn/v3"
)

const (
	xptReadY     = 0x91
	xptReadZ1    = 0xB1
	xptReadX     = 0xD1
	xptReadZ2    = 0xC1
	xptPowerDown = 0x80

	xptSamples = 7
	xptFrame   = 8*xptSamples + 1

	// Samples outside this window are noise near the resistive edges.
	xptLow  = 128
	xptHigh = 3968
)

// XPT2046 is a resistive touch controller on SPI. It reports a single
// point, the median of seven samples, with the pressure as Size.
type XPT2046 struct {
	c  conn.Conn
	tx [xptFrame]byte
	rx [xptFrame]byte
}

// NewXPT2046 returns the controller on c, typically connected at 2MHz
// or less in mode 0.
func NewXPT2046(c conn.Conn) *XPT2046 {
	x := &XPT2046{c: c}
	for j := 0; j < xptSamples; j++ {
		f := x.tx[8*j:]
		f[0], f[2], f[4], f[6] = xptReadY, xptReadZ1, xptReadX, xptReadZ2
	}
	x.tx[xptFrame-1] = xptPowerDown
	return x
}

func (x *XPT2046) String() string {
	return "xpt2046"
}

// Probe powers the converter down with the pen interrupt enabled. The
// controller has no identifier to check.
func (x *XPT2046) Probe() error {
	return x.c.Tx([]byte{xptPowerDown, 0, 0}, nil)
}

func (x *XPT2046) Read(pts []Point) (int, error) {
	if len(pts) == 0 {
		return 0, nil
	}
	if err := x.c.Tx(x.tx[:], x.rx[:]); err != nil {
		return 0, err
	}
	var xs, ys, zs []int
	for j := 0; j < xptSamples; j++ {
		d := x.rx[8*j:]
		px := (int(d[5])<<8 | int(d[6])) >> 3
		py := (int(d[1])<<8 | int(d[2])) >> 3
		z1 := int(d[3])<<8 | int(d[4])
		z2 := int(d[7])<<8 | int(d[8])
		pz := 0x3200 + py - px + (z1-z2)>>1
		if px > xptLow && px <= xptHigh {
			xs = append(xs, px)
		}
		if py > xptLow && py <= xptHigh {
			ys = append(ys, py)
		}
		if pz > 0 {
			zs = append(zs, pz)
		}
	}
	if len(xs) < 3 || len(ys) < 3 || len(zs) < 3 {
		return 0, nil
	}
	size := median(zs) >> 8
	if size == 0 {
		return 0, nil
	}
	pts[0] = Point{X: median(xs), Y: median(ys), Size: size}
	return 1, nil
}

func median(v []int) int {
	slices.Sort(v)
	return v[len(v)/2]
}
