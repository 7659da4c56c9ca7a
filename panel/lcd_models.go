package panel

import (
	"time"

	"github.com/flavioheleno/lgfx/bus"
	"github.com/flavioheleno/lgfx/pixfmt"
)

// NewILI9341 returns a driver for an ILI9341 controller, 240x320 by default.
func NewILI9341(a *bus.Arbiter, opts *Opts) *LCD {
	return newLCD(ili9341, a, opts)
}

// NewST7789 returns a driver for an ST7789 controller, 240x320 by default.
func NewST7789(a *bus.Arbiter, opts *Opts) *LCD {
	return newLCD(st7789, a, opts)
}

// NewST7735 returns a driver for an ST7735S controller. The default
// geometry is the common 128x160 module inside the 132x162 memory.
func NewST7735(a *bus.Arbiter, opts *Opts) *LCD {
	return newLCD(st7735, a, opts)
}

// NewILI9488 returns a driver for an ILI9488 controller. Over SPI the
// controller only accepts 18-bit pixels, so the native format is RGB666.
func NewILI9488(a *bus.Arbiter, opts *Opts) *LCD {
	return newLCD(ili9488, a, opts)
}

// NewGC9A01 returns a driver for the round 240x240 GC9A01.
func NewGC9A01(a *bus.Arbiter, opts *Opts) *LCD {
	return newLCD(gc9a01, a, opts)
}

var ili9341 = lcdModel{
	name:       "ili9341",
	geometry:   Geometry{PanelWidth: 240, PanelHeight: 320},
	native:     pixfmt.RGB565,
	dummyRead:  1,
	nopClosing: true,
	init: []Command{
		{Cmd: 0xEF, Data: []byte{0x03, 0x80, 0x02}},
		{Cmd: 0xCF, Data: []byte{0x00, 0xC1, 0x30}},
		{Cmd: 0xED, Data: []byte{0x64, 0x03, 0x12, 0x81}},
		{Cmd: 0xE8, Data: []byte{0x85, 0x00, 0x78}},
		{Cmd: 0xCB, Data: []byte{0x39, 0x2C, 0x00, 0x34, 0x02}},
		{Cmd: 0xF7, Data: []byte{0x20}},
		{Cmd: 0xEA, Data: []byte{0x00, 0x00}},
		{Cmd: 0xC0, Data: []byte{0x23}},       // power control 1
		{Cmd: 0xC1, Data: []byte{0x10}},       // power control 2
		{Cmd: 0xC5, Data: []byte{0x3E, 0x28}}, // VCOM control 1
		{Cmd: 0xC7, Data: []byte{0x86}},       // VCOM control 2
		{Cmd: 0xB1, Data: []byte{0x00, 0x13}}, // frame rate
		{Cmd: 0xF2, Data: []byte{0x00}},       // 3-gamma off
		{Cmd: 0x26, Data: []byte{0x01}},
		{Cmd: 0xE0, Data: []byte{0x0F, 0x31, 0x2B, 0x0C, 0x0E, 0x08, 0x4E, 0xF1, 0x37, 0x07, 0x10, 0x03, 0x0E, 0x09, 0x00}},
		{Cmd: 0xE1, Data: []byte{0x00, 0x0E, 0x14, 0x03, 0x11, 0x07, 0x31, 0xC1, 0x48, 0x08, 0x0F, 0x0C, 0x31, 0x36, 0x0F}},
		{Cmd: 0xB6, Data: []byte{0x08, 0xC2, 0x27}},
		{Cmd: cmdSLPOUT, Delay: 120 * time.Millisecond},
		{Cmd: cmdIDMOFF},
		{Cmd: cmdDISPON, Delay: 100 * time.Millisecond},
	},
}

var st7789 = lcdModel{
	name:       "st7789",
	geometry:   Geometry{PanelWidth: 240, PanelHeight: 320},
	native:     pixfmt.RGB565,
	dummyRead:  2,
	nopClosing: true,
	init: []Command{
		{Cmd: 0xB2, Data: []byte{0x0C, 0x0C, 0x00, 0x33, 0x33}}, // porch
		{Cmd: 0xB7, Data: []byte{0x35}},                         // gate
		{Cmd: 0xBB, Data: []byte{0x28}},                         // VCOM
		{Cmd: 0xC0, Data: []byte{0x0C}},
		{Cmd: 0xC2, Data: []byte{0x01, 0xFF}},
		{Cmd: 0xC3, Data: []byte{0x10}},
		{Cmd: 0xC4, Data: []byte{0x20}},
		{Cmd: 0xC6, Data: []byte{0x0F}},
		{Cmd: 0xD0, Data: []byte{0xA4, 0xA1}},
		{Cmd: 0xE0, Data: []byte{0xD0, 0x00, 0x02, 0x07, 0x0A, 0x28, 0x32, 0x44, 0x42, 0x06, 0x0E, 0x12, 0x14, 0x17}},
		{Cmd: 0xE1, Data: []byte{0xD0, 0x00, 0x02, 0x07, 0x0A, 0x28, 0x31, 0x54, 0x47, 0x0E, 0x1C, 0x17, 0x1B, 0x1E}},
		{Cmd: cmdSLPOUT, Delay: 130 * time.Millisecond},
		{Cmd: cmdIDMOFF},
		{Cmd: cmdDISPON},
	},
}

var st7735 = lcdModel{
	name: "st7735",
	geometry: Geometry{
		PanelWidth: 128, PanelHeight: 160,
		MemoryWidth: 132, MemoryHeight: 162,
		OffsetX: 2, OffsetY: 1,
	},
	native:     pixfmt.RGB565,
	dummyRead:  1,
	nopClosing: true,
	init: []Command{
		{Cmd: cmdSWRESET, Delay: 150 * time.Millisecond},
		{Cmd: cmdSLPOUT, Delay: 500 * time.Millisecond},
		{Cmd: 0xB1, Data: []byte{0x01, 0x2C, 0x2D}},
		{Cmd: 0xB2, Data: []byte{0x01, 0x2C, 0x2D}},
		{Cmd: 0xB3, Data: []byte{0x01, 0x2C, 0x2D, 0x01, 0x2C, 0x2D}},
		{Cmd: 0xB4, Data: []byte{0x07}},
		{Cmd: 0xC0, Data: []byte{0xA2, 0x02, 0x84}},
		{Cmd: 0xC1, Data: []byte{0xC5}},
		{Cmd: 0xC2, Data: []byte{0x0A, 0x00}},
		{Cmd: 0xC3, Data: []byte{0x8A, 0x2A}},
		{Cmd: 0xC4, Data: []byte{0x8A, 0xEE}},
		{Cmd: 0xC5, Data: []byte{0x0E}},
		{Cmd: cmdNORON, Delay: 10 * time.Millisecond},
		{Cmd: cmdDISPON, Delay: 100 * time.Millisecond},
	},
}

var ili9488 = lcdModel{
	name:       "ili9488",
	geometry:   Geometry{PanelWidth: 320, PanelHeight: 480},
	native:     pixfmt.RGB666,
	dummyRead:  1,
	nopClosing: true,
	init: []Command{
		{Cmd: 0xC0, Data: []byte{0x17, 0x15}},       // power control 1
		{Cmd: 0xC1, Data: []byte{0x41}},             // power control 2
		{Cmd: 0xC5, Data: []byte{0x00, 0x12, 0x80}}, // VCOM
		{Cmd: 0xB0, Data: []byte{0x00}},             // interface mode
		{Cmd: 0xB1, Data: []byte{0xA0}},             // frame rate 60Hz
		{Cmd: 0xB4, Data: []byte{0x02}},             // 2-dot inversion
		{Cmd: 0xB6, Data: []byte{0x02, 0x02, 0x3B}},
		{Cmd: 0xE9, Data: []byte{0x00}},
		{Cmd: 0xF7, Data: []byte{0xA9, 0x51, 0x2C, 0x82}},
		{Cmd: cmdSLPOUT, Delay: 120 * time.Millisecond},
		{Cmd: cmdDISPON, Delay: 100 * time.Millisecond},
	},
}

// gc9a01 misbehaves when a transaction ends with NOP.
var gc9a01 = lcdModel{
	name:       "gc9a01",
	geometry:   Geometry{PanelWidth: 240, PanelHeight: 240},
	native:     pixfmt.RGB565,
	dummyRead:  2,
	nopClosing: false,
	init: []Command{
		{Cmd: 0xEF},
		{Cmd: 0xEB, Data: []byte{0x14}},
		{Cmd: 0xFE},
		{Cmd: 0xEF},
		{Cmd: 0xEB, Data: []byte{0x14}},
		{Cmd: 0x84, Data: []byte{0x40}},
		{Cmd: 0x85, Data: []byte{0xFF}},
		{Cmd: 0x86, Data: []byte{0xFF}},
		{Cmd: 0x87, Data: []byte{0xFF}},
		{Cmd: 0x88, Data: []byte{0x0A}},
		{Cmd: 0x89, Data: []byte{0x21}},
		{Cmd: 0x8A, Data: []byte{0x00}},
		{Cmd: 0x8B, Data: []byte{0x80}},
		{Cmd: 0x8C, Data: []byte{0x01}},
		{Cmd: 0x8D, Data: []byte{0x01}},
		{Cmd: 0x8E, Data: []byte{0xFF}},
		{Cmd: 0x8F, Data: []byte{0xFF}},
		{Cmd: 0xB6, Data: []byte{0x00, 0x20}},
		{Cmd: 0x90, Data: []byte{0x08, 0x08, 0x08, 0x08}},
		{Cmd: 0xBD, Data: []byte{0x06}},
		{Cmd: 0xBC, Data: []byte{0x00}},
		{Cmd: 0xFF, Data: []byte{0x60, 0x01, 0x04}},
		{Cmd: 0xC3, Data: []byte{0x13}},
		{Cmd: 0xC4, Data: []byte{0x13}},
		{Cmd: 0xC9, Data: []byte{0x22}},
		{Cmd: 0xBE, Data: []byte{0x11}},
		{Cmd: 0xE1, Data: []byte{0x10, 0x0E}},
		{Cmd: 0xDF, Data: []byte{0x21, 0x0C, 0x02}},
		{Cmd: 0xF0, Data: []byte{0x45, 0x09, 0x08, 0x08, 0x26, 0x2A}},
		{Cmd: 0xF1, Data: []byte{0x43, 0x70, 0x72, 0x36, 0x37, 0x6F}},
		{Cmd: 0xF2, Data: []byte{0x45, 0x09, 0x08, 0x08, 0x26, 0x2A}},
		{Cmd: 0xF3, Data: []byte{0x43, 0x70, 0x72, 0x36, 0x37, 0x6F}},
		{Cmd: 0xED, Data: []byte{0x1B, 0x0B}},
		{Cmd: 0xAE, Data: []byte{0x77}},
		{Cmd: 0xCD, Data: []byte{0x63}},
		{Cmd: 0x70, Data: []byte{0x07, 0x07, 0x04, 0x0E, 0x0F, 0x09, 0x07, 0x08, 0x03}},
		{Cmd: 0xE8, Data: []byte{0x34}},
		{Cmd: 0x35, Data: []byte{0x00}}, // tearing effect on
		{Cmd: cmdSLPOUT, Delay: 120 * time.Millisecond},
		{Cmd: cmdDISPON},
	},
}
