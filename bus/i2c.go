package bus

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// I2CConfig configures an I2C transport.
type I2CConfig struct {
	// Addr defaults to 0x3C.
	Addr uint16
	// Freq changes the bus speed when non-zero.
	Freq physic.Frequency
	// MaxTxSize bounds a single data write. Defaults to 256 bytes.
	MaxTxSize int
}

const (
	i2cControlCommand = 0x00
	i2cControlData    = 0x40
)

// I2C frames commands and data with the control byte used by OLED
// controllers: 0x00 before commands, 0x40 before display data.
type I2C struct {
	d         *i2c.Dev
	maxTxSize int
	buf       []byte
}

// NewI2C returns an I2C transport for the device at cfg.Addr on b.
func NewI2C(b i2c.Bus, cfg *I2CConfig) (*I2C, error) {
	c := I2CConfig{}
	if cfg != nil {
		c = *cfg
	}
	if c.Addr == 0 {
		c.Addr = 0x3C
	}
	if c.MaxTxSize <= 0 {
		c.MaxTxSize = 256
	}
	if c.Freq != 0 {
		if err := b.SetSpeed(c.Freq); err != nil {
			return nil, fmt.Errorf("bus: i2c speed: %w", err)
		}
	}
	return &I2C{
		d:         &i2c.Dev{Bus: b, Addr: c.Addr},
		maxTxSize: c.MaxTxSize,
		buf:       make([]byte, 0, c.MaxTxSize+1),
	}, nil
}

func (t *I2C) String() string {
	return fmt.Sprintf("bus.I2C{%s}", t.d)
}

// Begin is a no-op: every write is its own I2C transfer.
func (t *I2C) Begin() error { return nil }

// End is a no-op.
func (t *I2C) End() error { return nil }

// WriteCommand sends cmd prefixed by the command control byte.
func (t *I2C) WriteCommand(cmd []byte) error {
	return t.write(i2cControlCommand, cmd)
}

// WriteData sends data prefixed by the data control byte, split into
// transfers of at most MaxTxSize bytes.
func (t *I2C) WriteData(data []byte) error {
	return t.write(i2cControlData, data)
}

// ReadData reads len(dst) bytes from the device.
func (t *I2C) ReadData(dst []byte) error {
	return t.d.Tx(nil, dst)
}

func (t *I2C) write(control byte, b []byte) error {
	for len(b) > 0 {
		n := min(len(b), t.maxTxSize)
		t.buf = append(t.buf[:0], control)
		t.buf = append(t.buf, b[:n]...)
		if err := t.d.Tx(t.buf, nil); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
