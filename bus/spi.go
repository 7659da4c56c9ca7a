package bus

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// SPIConfig configures an SPI transport.
type SPIConfig struct {
	// Freq is the clock used for every transfer. Defaults to 40MHz.
	Freq physic.Frequency
	Mode spi.Mode
	// ThreeWire shares MOSI for both directions (half duplex).
	ThreeWire bool
	// NopOnRelease asks panels to close each transaction with a NOP
	// command, so a controller without its own chip select ignores traffic
	// meant for other devices on the bus.
	NopOnRelease bool
}

// DefaultSPIConfig is used when NewSPI receives a nil config.
var DefaultSPIConfig = SPIConfig{
	Freq: 40 * physic.MegaHertz,
	Mode: spi.Mode0,
}

// SPI is a 4-wire (or 3-wire) SPI transport with a separate data/command
// line and an optional chip select held across the whole transaction.
type SPI struct {
	c         conn.Conn
	dc        gpio.PinOut
	cs        gpio.PinOut
	cfg       SPIConfig
	maxTxSize int
	scratch   []byte
}

// NewSPI connects to p and returns the transport. cs may be nil when the
// port drives chip select itself.
func NewSPI(p spi.Port, dc, cs gpio.PinOut, cfg *SPIConfig) (*SPI, error) {
	if cfg == nil {
		cfg = &DefaultSPIConfig
	}
	c := *cfg
	if c.Freq == 0 {
		c.Freq = DefaultSPIConfig.Freq
	}
	mode := c.Mode
	if cs != nil {
		mode |= spi.NoCS
	}
	if c.ThreeWire {
		mode |= spi.HalfDuplex
	}
	sc, err := p.Connect(c.Freq, mode, 8)
	if err != nil {
		return nil, fmt.Errorf("bus: spi connect: %w", err)
	}
	return NewSPIConn(sc, dc, cs, &c)
}

// NewSPIConn wraps an already connected conn.Conn.
func NewSPIConn(c conn.Conn, dc, cs gpio.PinOut, cfg *SPIConfig) (*SPI, error) {
	if dc == nil {
		return nil, errors.New("bus: spi requires a data/command pin")
	}
	if cfg == nil {
		cfg = &DefaultSPIConfig
	}
	// Get the maxTxSize from the conn if it implements the conn.Limits
	// interface, otherwise use a conservative default.
	maxTxSize := 0
	if limits, ok := c.(conn.Limits); ok {
		maxTxSize = limits.MaxTxSize()
	}
	if maxTxSize <= 0 {
		maxTxSize = defaultMaxTxSize
	}
	s := &SPI{c: c, dc: dc, cs: cs, cfg: *cfg, maxTxSize: maxTxSize}
	if cs != nil {
		if err := cs.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("bus: spi cs: %w", err)
		}
	}
	return s, nil
}

func (s *SPI) String() string {
	return fmt.Sprintf("bus.SPI{%s}", s.c)
}

// NopOnRelease reports whether transactions should be closed with a NOP.
func (s *SPI) NopOnRelease() bool {
	return s.cfg.NopOnRelease
}

// Begin asserts chip select.
func (s *SPI) Begin() error {
	if s.cs == nil {
		return nil
	}
	return s.cs.Out(gpio.Low)
}

// End deasserts chip select.
func (s *SPI) End() error {
	if s.cs == nil {
		return nil
	}
	return s.cs.Out(gpio.High)
}

// WriteCommand sends cmd with DC low.
func (s *SPI) WriteCommand(cmd []byte) error {
	if err := s.dc.Out(gpio.Low); err != nil {
		return err
	}
	return s.write(cmd)
}

// WriteData sends data with DC high.
func (s *SPI) WriteData(data []byte) error {
	if err := s.dc.Out(gpio.High); err != nil {
		return err
	}
	return s.write(data)
}

// ReadData clocks len(dst) bytes in with DC high.
func (s *SPI) ReadData(dst []byte) error {
	if err := s.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(dst) > 0 {
		n := min(len(dst), s.maxTxSize)
		var w []byte
		if !s.cfg.ThreeWire {
			if cap(s.scratch) < n {
				s.scratch = make([]byte, n)
			}
			w = s.scratch[:n]
			clear(w)
		}
		if err := s.c.Tx(w, dst[:n]); err != nil {
			return err
		}
		dst = dst[n:]
	}
	return nil
}

func (s *SPI) write(b []byte) error {
	for len(b) > 0 {
		n := min(len(b), s.maxTxSize)
		if err := s.c.Tx(b[:n], nil); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
