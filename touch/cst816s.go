package touch

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

const (
	cst816sAddr = 0x15

	cst816sStatus = 0x02
	cst816sSleep  = 0xA5
	cst816sChipID = 0xA7

	cst816sSleepIn = 0x03
)

// CST816S is a Hynitron CST816S single-touch controller.
//
// The controller stops answering on the bus while it sleeps between
// touches, so a failed Probe may only mean nobody is touching the panel.
// Boards with a reset line can wake it with RST.
type CST816S struct {
	// RST is the active-low reset line. Probe pulses it when set.
	RST gpio.PinOut

	r  regs
	id byte
}

// NewCST816S returns the controller at addr on b; 0 selects 0x15.
func NewCST816S(b i2c.Bus, addr uint16) *CST816S {
	if addr == 0 {
		addr = cst816sAddr
	}
	return &CST816S{r: regs{i2c.Dev{Bus: b, Addr: addr}}}
}

func (c *CST816S) String() string {
	return "cst816s"
}

// ChipID returns the id read by Probe: 0xB4 for the CST816S, 0xB5 and
// 0xB6 for its T and D variants.
func (c *CST816S) ChipID() byte {
	return c.id
}

func (c *CST816S) Probe() error {
	if c.RST != nil {
		if err := c.RST.Out(gpio.Low); err != nil {
			return err
		}
		sleep(10 * time.Millisecond)
		if err := c.RST.Out(gpio.High); err != nil {
			return err
		}
		sleep(50 * time.Millisecond)
	}
	if err := c.r.write(0x00, 0x00); err != nil {
		return err
	}
	var id [3]byte
	if err := c.r.read(cst816sChipID, id[:]); err != nil {
		return err
	}
	if id[0] == 0 || id[0] == 0xFF {
		return fmt.Errorf("%w: chip id %#02x", ErrNotFound, id[0])
	}
	c.id = id[0]
	return nil
}

func (c *CST816S) Read(pts []Point) (int, error) {
	var buf [5]byte
	if err := c.r.read(cst816sStatus, buf[:]); err != nil {
		return 0, err
	}
	count := int(buf[0] & 0x0F)
	switch {
	case count > 1:
		return 0, fmt.Errorf("cst816s: %d points reported", count)
	case count == 0 || len(pts) == 0:
		return 0, nil
	}
	pts[0] = Point{
		X:    int(buf[1]&0x0F)<<8 | int(buf[2]),
		Y:    int(buf[3]&0x0F)<<8 | int(buf[4]),
		Size: 1,
	}
	return 1, nil
}

// Sleep enters deep sleep. Only a reset wakes the controller up again.
func (c *CST816S) Sleep() error {
	return c.r.write(cst816sSleep, cst816sSleepIn)
}

// Wakeup resets the controller through RST.
func (c *CST816S) Wakeup() error {
	if c.RST == nil {
		return fmt.Errorf("cst816s: wakeup without RST pin: %w", errors.ErrUnsupported)
	}
	return c.Probe()
}
