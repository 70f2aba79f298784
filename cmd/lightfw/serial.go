//go:build tinygo

package main

import (
	"io"
	"machine"
	"runtime"
	"time"

	"libdb.so/lightctl/ledserial"
)

// serialIO wraps a machine.Serialer into an io.ReadWriter.
type serialIO struct {
	machine.Serialer
}

var _ io.ReadWriter = serialIO{}

// newDevice creates a ledserial.Device talking over serial and driving a ws2812
// strip on pin.
func newDevice(serial machine.Serialer, pin machine.Pin) *ledserial.Device {
	return ledserial.NewDevice(serialIO{serial}, newWS2812Strip(pin))
}

// Read blocks until at least one byte is available. The status LED is lit
// while bytes are being read.
func (s serialIO) Read(b []byte) (int, error) {
	for s.Buffered() == 0 {
		// Sleep to reduce CPU usage.
		time.Sleep(time.Millisecond)
	}

	machine.LED.High()
	defer machine.LED.Low()

	n := min(s.Buffered(), len(b))
	for i := 0; i < n; i++ {
		c, err := s.ReadByte()
		if err != nil {
			return i, err
		}
		b[i] = c
	}

	runtime.Gosched()
	return n, nil
}

func (s serialIO) Write(b []byte) (int, error) {
	for i, c := range b {
		if err := s.WriteByte(c); err != nil {
			return i, err
		}
	}
	runtime.Gosched()
	return len(b), nil
}
