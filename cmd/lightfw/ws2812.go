//go:build tinygo

package main

import (
	"image/color"
	"machine"
	"runtime/interrupt"

	"tinygo.org/x/drivers/ws2812"
)

// ws2812Strip is a ledserial.Strip on a ws2812 data line.
type ws2812Strip struct {
	dev ws2812.Device
	buf []color.RGBA
}

func newWS2812Strip(pin machine.Pin) *ws2812Strip {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &ws2812Strip{dev: ws2812.New(pin)}
}

func (s *ws2812Strip) WritePixels(pix []uint8) error {
	n := len(pix) / 3
	if cap(s.buf) < n {
		s.buf = make([]color.RGBA, n)
	}
	s.buf = s.buf[:n]

	for i := range s.buf {
		s.buf[i] = color.RGBA{pix[3*i], pix[3*i+1], pix[3*i+2], 0xFF}
	}

	var err error
	critical(func() { err = s.dev.WriteColors(s.buf) })
	return err
}

// critical runs f with interrupts disabled. The ws2812 timing is too tight to
// be interrupted.
func critical(f func()) {
	state := interrupt.Disable()
	f()
	interrupt.Restore(state)
}
