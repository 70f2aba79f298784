package lightctl

import (
	"testing"

	"github.com/pkg/errors"
	"libdb.so/lightctl/led"
)

type recordingWriter struct {
	writes []led.LEDs
}

func (w *recordingWriter) WriteLEDs(leds led.LEDs) error {
	w.writes = append(w.writes, leds.Clone())
	return nil
}

func TestStripSegments(t *testing.T) {
	writer := &recordingWriter{}

	strip, err := NewStrip(6, writer)
	if err != nil {
		t.Fatal("failed to create strip:", err)
	}

	left, err := strip.Segment(0, 2)
	if err != nil {
		t.Fatal("failed to create left segment:", err)
	}
	right, err := strip.Segment(3, 6)
	if err != nil {
		t.Fatal("failed to create right segment:", err)
	}

	leftCtrl, err := NewController(2, left, ControllerOpts{})
	if err != nil {
		t.Fatal(err)
	}
	rightCtrl, err := NewController(3, right, ControllerOpts{})
	if err != nil {
		t.Fatal(err)
	}

	leftCtrl.SetColor(red)
	rightCtrl.SetColor(blue)
	leftCtrl.Toggle()

	assertEq(t, []led.LEDs{
		{red, red, led.Off, led.Off, led.Off, led.Off},
		{red, red, led.Off, blue, blue, blue},
		{led.Off, led.Off, led.Off, blue, blue, blue},
	}, writer.writes)

	assertEq(t, writer.writes[2], strip.LEDs())
}

func TestStripSegmentInvalid(t *testing.T) {
	strip, err := NewStrip(4, &recordingWriter{})
	if err != nil {
		t.Fatal("failed to create strip:", err)
	}

	for _, r := range [][2]int{{-1, 2}, {2, 2}, {3, 1}, {2, 5}} {
		if _, err := strip.Segment(r[0], r[1]); !errors.Is(err, ErrInvalidConfiguration) {
			t.Errorf("Segment(%d, %d) error = %v, want ErrInvalidConfiguration", r[0], r[1], err)
		}
	}

	if _, err := NewStrip(0, &recordingWriter{}); !errors.Is(err, ErrInvalidConfiguration) {
		t.Errorf("NewStrip(0) error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestStripFlush(t *testing.T) {
	writer := &recordingWriter{}

	strip, err := NewStrip(2, writer)
	if err != nil {
		t.Fatal("failed to create strip:", err)
	}

	if err := strip.Flush(); err != nil {
		t.Fatal("unexpected flush error:", err)
	}

	assertEq(t, []led.LEDs{{led.Off, led.Off}}, writer.writes)
}
