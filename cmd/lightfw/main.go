//go:build tinygo

// Command lightfw is the firmware of the board that drives the LED strip. It
// speaks the ledserial protocol with lightctl over the board's USB serial port.
package main

import (
	"machine"
)

// stripPin is the data pin of the LED strip.
var stripPin = machine.GPIO27

func main() {
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	device := newDevice(machine.Serial, stripPin)
	for {
		device.Run()
	}
}
