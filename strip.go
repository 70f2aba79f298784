package lightctl

import (
	"sync"

	"github.com/pkg/errors"
	"libdb.so/lightctl/led"
)

// StripWriter writes an entire LED strip to the hardware.
type StripWriter interface {
	// WriteLEDs writes the LEDs to the hardware. The slice must not be retained
	// after WriteLEDs returns.
	WriteLEDs(leds led.LEDs) error
}

// StripWriterFunc is a function that implements StripWriter.
type StripWriterFunc func(leds led.LEDs) error

// WriteLEDs implements StripWriter.
func (f StripWriterFunc) WriteLEDs(leds led.LEDs) error { return f(leds) }

// Strip is a strip of LEDs on a single data line that is shared by multiple
// fixtures. Each fixture draws into its own segment, and every commit flushes
// the whole strip.
type Strip struct {
	mu     sync.Mutex
	leds   led.LEDs
	writer StripWriter
}

// NewStrip creates a new strip of numLEDs LEDs, all off.
func NewStrip(numLEDs int, writer StripWriter) (*Strip, error) {
	if numLEDs <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "strip of %d LEDs", numLEDs)
	}
	return &Strip{
		leds:   led.NewLEDs(numLEDs),
		writer: writer,
	}, nil
}

// Len returns the number of LEDs in the strip.
func (s *Strip) Len() int {
	return len(s.leds)
}

// LEDs returns a copy of the strip's current contents.
func (s *Strip) LEDs() led.LEDs {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.leds.Clone()
}

// Flush writes the current contents of the strip.
func (s *Strip) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writer.WriteLEDs(s.leds)
}

// Segment returns a PixelSink for the LEDs in [start, end).
func (s *Strip) Segment(start, end int) (PixelSink, error) {
	if start < 0 || end <= start || end > len(s.leds) {
		return nil, errors.Wrapf(ErrInvalidConfiguration,
			"segment [%d, %d) does not fit in a strip of %d LEDs", start, end, len(s.leds))
	}
	return stripSegment{strip: s, start: start, end: end}, nil
}

type stripSegment struct {
	strip      *Strip
	start, end int
}

func (s stripSegment) Commit(leds led.LEDs) error {
	s.strip.mu.Lock()
	defer s.strip.mu.Unlock()

	if len(leds) > s.end-s.start {
		leds = leds[:s.end-s.start]
	}
	s.strip.leds.Draw(s.start, leds)

	return s.strip.writer.WriteLEDs(s.strip.leds)
}
