package touch

import (
	"periph.io/x/conn/v3/i2c"
)

// regs reads and writes the 8-bit register map of an I2C controller.
type regs struct {
	d i2c.Dev
}

func (r *regs) read(reg byte, buf []byte) error {
	return r.d.Tx([]byte{reg}, buf)
}

func (r *regs) write(reg, v byte) error {
	return r.d.Tx([]byte{reg, v}, nil)
}

// regs16 is regs for controllers with 16-bit big-endian register
// addresses.
type regs16 struct {
	d i2c.Dev
}

func (r *regs16) read(reg uint16, buf []byte) error {
	return r.d.Tx([]byte{byte(reg >> 8), byte(reg)}, buf)
}

func (r *regs16) write(reg uint16, v ...byte) error {
	return r.d.Tx(append([]byte{byte(reg >> 8), byte(reg)}, v...), nil)
}
