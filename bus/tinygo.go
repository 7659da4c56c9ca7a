package bus

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
	"tinygo.org/x/drivers"
)

// FromTinyGoSPI exposes a TinyGo SPI bus as a conn.Conn so it can back
// NewSPIConn. Chip select stays under the caller's control.
func FromTinyGoSPI(b drivers.SPI) conn.Conn {
	return &tinySPI{b: b}
}

type tinySPI struct {
	b drivers.SPI
}

func (t *tinySPI) String() string {
	return "tinygo-spi"
}

func (t *tinySPI) Tx(w, r []byte) error {
	return t.b.Tx(w, r)
}

func (t *tinySPI) Duplex() conn.Duplex {
	return conn.Full
}

// FromTinyGoI2C exposes a TinyGo I2C bus as a periph i2c.Bus, so touch
// controllers and I2C panels run unchanged on microcontrollers.
func FromTinyGoI2C(b drivers.I2C) i2c.Bus {
	return &tinyI2C{b: b}
}

type tinyI2C struct {
	b drivers.I2C
}

func (t *tinyI2C) String() string {
	return "tinygo-i2c"
}

func (t *tinyI2C) Tx(addr uint16, w, r []byte) error {
	return t.b.Tx(addr, w, r)
}

// SetSpeed is fixed by the TinyGo machine configuration.
func (t *tinyI2C) SetSpeed(f physic.Frequency) error {
	return fmt.Errorf("bus: tinygo i2c speed is set at configure time: %w", errors.ErrUnsupported)
}
