package ledserial

import (
	"errors"
	"fmt"
	"io"
)

// Strip is the LED strip driven by a Device.
type Strip interface {
	// WritePixels writes the strip. pix holds three bytes (R, G, B) per LED.
	WritePixels(pix []uint8) error
}

// Device is the board side of the protocol. It reads incoming packets from
// the host, drives the strip and acknowledges every packet it handled.
type Device struct {
	rw    io.ReadWriter
	strip Strip
	ctx   ReadContext
	pix   []uint8
}

// NewDevice creates a new device talking to the host over rw.
func NewDevice(rw io.ReadWriter, strip Strip) *Device {
	return &Device{
		rw:    rw,
		strip: strip,
	}
}

// Run handles packets until the connection is closed. Errors while handling a
// packet are reported to the host as ErrorPackets.
//
// The framing has no sync marker, so after a malformed packet the following
// bytes are read as new packets until one parses. Only the first read error of
// such a run is reported.
func (d *Device) Run() error {
	var desynced bool
	for {
		p, err := ReadIncomingPacket(d.rw, d.ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return err
			}
			if !desynced {
				d.logError(err)
				desynced = true
			}
			continue
		}
		desynced = false

		if err := d.handlePacket(p); err != nil {
			d.logError(err)
			continue
		}

		if err := d.sendPacket(AckPacket{IncomingPacketType: p.Type()}); err != nil {
			return err
		}
	}
}

func (d *Device) handlePacket(p IncomingPacket) error {
	switch p := p.(type) {
	case InitializePacket:
		if p.NumLEDs < 1 {
			return fmt.Errorf("invalid number of LEDs: %d", p.NumLEDs)
		}
		d.ctx.NumLEDs = p.NumLEDs
		d.pix = make([]uint8, 3*int(p.NumLEDs))
		if err := d.strip.WritePixels(d.pix); err != nil {
			return fmt.Errorf("failed to clear strip: %w", err)
		}
		d.log(fmt.Sprintf("initialized %d LEDs", p.NumLEDs))

	case ClearPacket:
		if d.ctx.NumLEDs == 0 {
			return errors.New("strip is not initialized")
		}
		clear(d.pix)
		if err := d.strip.WritePixels(d.pix); err != nil {
			return fmt.Errorf("failed to clear strip: %w", err)
		}

	case SetPacket:
		if d.ctx.NumLEDs == 0 {
			return errors.New("strip is not initialized")
		}
		if len(p.Pix) != 3*int(d.ctx.NumLEDs) {
			return fmt.Errorf("invalid number of pixels: %d", len(p.Pix)/3)
		}
		if err := d.strip.WritePixels(p.Pix); err != nil {
			return fmt.Errorf("failed to write strip: %w", err)
		}

	default:
		return fmt.Errorf("unknown packet type: %T", p)
	}

	return nil
}

func (d *Device) log(msg string) {
	d.sendPacket(LogPacket{Message: msg})
}

func (d *Device) logError(err error) {
	d.sendPacket(ErrorPacket{Message: err.Error()})
}

func (d *Device) sendPacket(p OutgoingPacket) error {
	return WriteOutgoingPacket(d.rw, p)
}
