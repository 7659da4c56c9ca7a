package touch

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
)

const (
	ft5x06Addr = 0x38

	ft5x06Mode    = 0x00
	ft5x06Status  = 0x02
	ft5x06Power   = 0x87
	ft5x06IntMode = 0xA4
	ft5x06Vendor  = 0xA8

	ft5x06Monitor = 0x01
	ft5x06SleepIn = 0x03
)

// FT5x06 is a FocalTech FT5x06/FT6x36 capacitive controller.
type FT5x06 struct {
	r regs
}

// NewFT5x06 returns the controller at addr on b; 0 selects 0x38.
func NewFT5x06(b i2c.Bus, addr uint16) *FT5x06 {
	if addr == 0 {
		addr = ft5x06Addr
	}
	return &FT5x06{r: regs{i2c.Dev{Bus: b, Addr: addr}}}
}

func (f *FT5x06) String() string {
	return "ft5x06"
}

// Probe switches the controller to working mode, checks the vendor id and
// selects polling interrupt mode.
func (f *FT5x06) Probe() error {
	if err := f.r.write(ft5x06Mode, 0); err != nil {
		return err
	}
	var id [1]byte
	if err := f.r.read(ft5x06Vendor, id[:]); err != nil {
		return err
	}
	if id[0] == 0 {
		return ErrNotFound
	}
	return f.r.write(ft5x06IntMode, 0)
}

func (f *FT5x06) Read(pts []Point) (int, error) {
	n := min(len(pts), MaxPoints)
	buf := make([]byte, 1+6*n)
	if err := f.r.read(ft5x06Status, buf); err != nil {
		return 0, err
	}
	count := int(buf[0] & 0x0F)
	if count > MaxPoints {
		return 0, fmt.Errorf("ft5x06: %d points reported", count)
	}
	count = min(count, n)
	for i := 0; i < count; i++ {
		p := buf[1+6*i:]
		pts[i] = Point{
			X:    int(p[0]&0x0F)<<8 | int(p[1]),
			Y:    int(p[2]&0x0F)<<8 | int(p[3]),
			ID:   int(p[2] >> 4),
			Size: 1,
		}
	}
	return count, nil
}

func (f *FT5x06) Sleep() error {
	return f.r.write(ft5x06Power, ft5x06SleepIn)
}

func (f *FT5x06) Wakeup() error {
	return f.r.write(ft5x06Power, ft5x06Monitor)
}
