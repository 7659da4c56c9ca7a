package touch

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/i2c"
)

// GT911AltAddr is the GT911 address on boards strapping INT high at reset.
const GT911AltAddr = 0x14

const (
	gt911Addr = 0x5D

	gt911Command   = 0x8040
	gt911ProductID = 0x8140
	gt911Status    = 0x814E
	gt911Points    = 0x814F

	gt911Ready = 0x80
)

// GT911 is a Goodix GT911 capacitive controller. The controller repeats
// the last report until the status register is acknowledged, so Read
// returns the previous points while no new report is ready.
type GT911 struct {
	// Int is the INT line, needed to wake the controller up.
	Int gpio.PinIO

	r    regs16
	last []Point
}

// NewGT911 returns the controller at addr on b; 0 selects 0x5D.
func NewGT911(b i2c.Bus, addr uint16) *GT911 {
	if addr == 0 {
		addr = gt911Addr
	}
	return &GT911{r: regs16{i2c.Dev{Bus: b, Addr: addr}}}
}

func (g *GT911) String() string {
	return "gt911"
}

// Probe clears any pending report and checks the product id.
func (g *GT911) Probe() error {
	if err := g.r.write(gt911Status, 0); err != nil {
		return err
	}
	var id [4]byte
	if err := g.r.read(gt911ProductID, id[:]); err != nil {
		return err
	}
	if !bytes.HasPrefix(id[:], []byte("911")) {
		return fmt.Errorf("%w: product id %q", ErrNotFound, bytes.TrimRight(id[:], "\x00"))
	}
	g.last = nil
	return nil
}

func (g *GT911) Read(pts []Point) (int, error) {
	var status [1]byte
	if err := g.r.read(gt911Status, status[:]); err != nil {
		return 0, err
	}
	if status[0]&gt911Ready == 0 {
		return copy(pts, g.last), nil
	}
	count := int(status[0] & 0x0F)
	if count > MaxPoints {
		err := fmt.Errorf("gt911: %d points reported", count)
		return 0, errors.Join(err, g.r.write(gt911Status, 0))
	}
	count = min(count, len(pts))
	buf := make([]byte, 8*count)
	if count > 0 {
		if err := g.r.read(gt911Points, buf); err != nil {
			return 0, err
		}
	}
	if err := g.r.write(gt911Status, 0); err != nil {
		return 0, err
	}
	g.last = g.last[:0]
	for i := 0; i < count; i++ {
		p := buf[8*i:]
		g.last = append(g.last, Point{
			ID:   int(p[0]),
			X:    int(p[1]) | int(p[2])<<8,
			Y:    int(p[3]) | int(p[4])<<8,
			Size: int(p[5]) | int(p[6])<<8,
		})
	}
	return copy(pts, g.last), nil
}

// Sleep enters the screen-off mode.
func (g *GT911) Sleep() error {
	return g.r.write(gt911Command, 0x05)
}

// Wakeup pulses the INT line high.
func (g *GT911) Wakeup() error {
	if g.Int == nil {
		return fmt.Errorf("gt911: wakeup without INT pin: %w", errors.ErrUnsupported)
	}
	if err := g.Int.Out(gpio.High); err != nil {
		return err
	}
	sleep(5 * time.Millisecond)
	return g.Int.In(gpio.Float, gpio.NoEdge)
}
