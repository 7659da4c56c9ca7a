package bus

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// ParallelConfig lists the pins of an 8080-style parallel bus.
type ParallelConfig struct {
	// Data holds 8 or 16 pins, least significant bit first.
	Data []gpio.PinOut
	// WR latches a word on its rising edge.
	WR gpio.PinOut
	DC gpio.PinOut
	// CS is optional.
	CS gpio.PinOut
}

// Parallel bit-bangs an 8080 bus through GPIO pins. It is write-only.
type Parallel struct {
	cfg  ParallelConfig
	last uint16
	init bool
}

// NewParallel validates the pin set and returns the transport.
func NewParallel(cfg *ParallelConfig) (*Parallel, error) {
	if cfg == nil {
		return nil, errors.New("bus: parallel config required")
	}
	if n := len(cfg.Data); n != 8 && n != 16 {
		return nil, fmt.Errorf("bus: parallel bus must have 8 or 16 data pins, got %d", n)
	}
	if cfg.WR == nil || cfg.DC == nil {
		return nil, errors.New("bus: parallel bus requires WR and DC pins")
	}
	p := &Parallel{cfg: *cfg}
	if err := cfg.WR.Out(gpio.High); err != nil {
		return nil, err
	}
	if cfg.CS != nil {
		if err := cfg.CS.Out(gpio.High); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Parallel) String() string {
	return fmt.Sprintf("bus.Parallel{%d bits}", len(p.cfg.Data))
}

// Begin asserts chip select.
func (p *Parallel) Begin() error {
	if p.cfg.CS == nil {
		return nil
	}
	return p.cfg.CS.Out(gpio.Low)
}

// End deasserts chip select.
func (p *Parallel) End() error {
	if p.cfg.CS == nil {
		return nil
	}
	return p.cfg.CS.Out(gpio.High)
}

// WriteCommand sends each command byte as one bus word.
func (p *Parallel) WriteCommand(cmd []byte) error {
	if err := p.cfg.DC.Out(gpio.Low); err != nil {
		return err
	}
	for _, b := range cmd {
		if err := p.strobe(uint16(b)); err != nil {
			return err
		}
	}
	return nil
}

// WriteData sends data bytes. On a 16-bit bus consecutive bytes form one
// big-endian word; an odd trailing byte goes out on the low lines.
func (p *Parallel) WriteData(data []byte) error {
	if err := p.cfg.DC.Out(gpio.High); err != nil {
		return err
	}
	if len(p.cfg.Data) == 8 {
		for _, b := range data {
			if err := p.strobe(uint16(b)); err != nil {
				return err
			}
		}
		return nil
	}
	for i := 0; i < len(data); i += 2 {
		w := uint16(data[i])
		if i+1 < len(data) {
			w = w<<8 | uint16(data[i+1])
		}
		if err := p.strobe(w); err != nil {
			return err
		}
	}
	return nil
}

// ReadData is not supported.
func (p *Parallel) ReadData([]byte) error {
	return ErrWriteOnly
}

// strobe puts w on the data lines and pulses WR. Only lines whose level
// changed since the previous word are driven.
func (p *Parallel) strobe(w uint16) error {
	if err := p.cfg.WR.Out(gpio.Low); err != nil {
		return err
	}
	for i, pin := range p.cfg.Data {
		bit := uint16(1) << uint(i)
		if p.init && (w^p.last)&bit == 0 {
			continue
		}
		if err := pin.Out(gpio.Level(w&bit != 0)); err != nil {
			return err
		}
	}
	p.last, p.init = w, true
	return p.cfg.WR.Out(gpio.High)
}
