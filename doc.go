// Package lgfx drives small displays and their touch controllers.
//
// A display is made of three layers:
//
// - bus: a Transport moving command and pixel bytes (SPI, I2C, 8080
// parallel, RGB frame memory) and the Arbiter that shares it between
// devices
// - panel: a Driver turning logical rectangles into controller commands
// (ILI9341, ST7789, ST7735, ILI9488, GC9A01, SSD1306, SSD1322, frame buffer)
// - pixfmt: conversion between the caller's pixels and the controller's
//
// Dev ties a panel to the BMP blitter (package blit) and an optional touch
// controller (package touch), and implements the display.Drawer interface
// from periph.io.
//
// # Hardware Connection
//
// Connect an ILI9341 display via SPI:
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	SCK         → SPI Clock (SCLK)
//	SDI/MOSI    → SPI Data (MOSI)
//	SDO/MISO    → SPI Data (MISO), only needed for readback
//	DC          → GPIO (any available pin)
//	CS          → SPI Chip Select
//	RESET       → Optional: GPIO for hardware reset
//
// # Basic Usage
//
//	package main
//
//	import (
//		"image"
//		"image/color"
//
//		"github.com/flavioheleno/lgfx"
//		"github.com/flavioheleno/lgfx/blit"
//		"github.com/flavioheleno/lgfx/bus"
//		"github.com/flavioheleno/lgfx/panel"
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/host/v3"
//	)
//
//	func main() {
//		host.Init()
//
//		port, _ := spireg.Open("")
//		t, _ := bus.NewSPI(port, gpioreg.ByName("GPIO25"), nil, nil)
//		arb := bus.NewArbiter(t, nil)
//
//		dev, _ := lgfx.New(panel.NewILI9341(arb, nil), nil)
//		defer dev.Halt()
//
//		dev.Clear(color.RGBA{B: 0x40, A: 0xFF})
//		dev.FillRect(image.Rect(10, 10, 50, 50), color.White)
//		dev.DrawBMPFile(blit.Dir("/srv/images"), "splash.bmp", 0, 0)
//	}
//
// # Transactions
//
// Every drawing call claims the bus for its own duration. Wrap a batch of
// calls in StartWrite and EndWrite to keep the bus claimed across them;
// panels keeping a shadow copy (SSD1306, SSD1322, frame buffer) send the
// changed area once, when the outermost EndWrite runs:
//
//	dev.StartWrite()
//	for _, r := range cells {
//		dev.FillRect(r, color.Black)
//	}
//	dev.EndWrite()
//
// # Rotation
//
// Rotations 0-3 turn the display by quarter turns clockwise; 4-7 do the
// same on a mirrored image. Bounds follows the rotation, and so do the
// points returned by Touch.
//
// # Touch
//
// Attach a controller sharing the display's coordinate space:
//
//	b, _ := i2creg.Open("")
//	dev.AttachTouch(touch.NewFT5x06(b, 0), nil)
//
//	pts := make([]touch.Point, touch.MaxPoints)
//	n := dev.Touch(pts)
//
// A controller on the same SPI bus as the panel (XPT2046) is given the
// panel's Arbiter in touch.Opts; polling then releases the panel's
// transaction for the duration of the read.
//
// # Compatibility with periph.io
//
// Dev implements the display.Drawer interface from periph.io:
// https://pkg.go.dev/periph.io/x/conn/v3/display
//
// It can be used with any periph.io tool or library expecting a display.Drawer.
package lgfx
