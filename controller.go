package lightctl

import (
	"io"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"libdb.so/lightctl/led"
)

// ErrInvalidConfiguration is returned when a fixture or strip is described
// with an impossible shape, such as a non-positive pixel count.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// PixelSink is the hardware-facing side of a fixture. Commit is called after
// every change to the fixture's buffer.
type PixelSink interface {
	// Commit pushes the given buffer to the hardware. The buffer must not be
	// retained after Commit returns.
	Commit(leds led.LEDs) error
}

// PixelSinkFunc is a function that implements PixelSink.
type PixelSinkFunc func(leds led.LEDs) error

// Commit implements PixelSink.
func (f PixelSinkFunc) Commit(leds led.LEDs) error { return f(leds) }

// FadeStepInterval is the granularity of FadeToColor. A fade of duration d
// has d/FadeStepInterval intermediate steps.
const FadeStepInterval = 150 * time.Millisecond

// Flash defaults, used by FlashDefault.
const (
	DefaultFlashOn          = 50 * time.Millisecond
	DefaultFlashRepetitions = 3
)

// FadeTiming selects how long FadeToColor waits between intermediate steps.
type FadeTiming uint8

const (
	// FadeTimingStepCount waits one millisecond per step between steps, so a
	// fade of n steps takes about n² milliseconds regardless of the requested
	// duration. This is the historical behavior.
	FadeTimingStepCount FadeTiming = iota
	// FadeTimingSpread spreads the steps evenly over the requested duration.
	FadeTimingSpread
)

// String returns the config name of the fade timing.
func (t FadeTiming) String() string {
	switch t {
	case FadeTimingStepCount:
		return "step-count"
	case FadeTimingSpread:
		return "spread"
	default:
		return "FadeTiming(" + strconv.Itoa(int(t)) + ")"
	}
}

// ControllerOpts are optional settings for a Controller.
type ControllerOpts struct {
	// Logger is used to report commit failures. If nil, nothing is logged.
	Logger *slog.Logger
	// Sleep blocks for the given duration. If nil, time.Sleep is used.
	Sleep func(time.Duration)
	// FadeTiming selects the inter-step delay of FadeToColor.
	FadeTiming FadeTiming
}

// Controller controls one light fixture: a fixed number of pixels that always
// show the same color. It keeps track of whether the fixture is on and of the
// last color it was set to, so that it can be turned back on with the same
// color.
//
// Effects (Blink, Flash and FadeToColor) block the caller until they are
// done. A Controller is not safe for concurrent use.
type Controller struct {
	sink   PixelSink
	logger *slog.Logger
	sleep  func(time.Duration)
	timing FadeTiming

	leds      led.LEDs
	lastColor led.RGBColor
	on        bool
}

// NewController creates a controller for a fixture of pixelCount pixels. All
// pixels start off. Nothing is committed until the first operation.
func NewController(pixelCount int, sink PixelSink, opts ControllerOpts) (*Controller, error) {
	if pixelCount <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfiguration, "pixel count %d is not positive", pixelCount)
	}
	if sink == nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, "no pixel sink")
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}

	return &Controller{
		sink:   sink,
		logger: opts.Logger,
		sleep:  opts.Sleep,
		timing: opts.FadeTiming,
		leds:   led.NewLEDs(pixelCount),
	}, nil
}

// PixelCount returns the number of pixels in the fixture.
func (c *Controller) PixelCount() int {
	return len(c.leds)
}

// Pixels returns a copy of the fixture's buffer.
func (c *Controller) Pixels() led.LEDs {
	return c.leds.Clone()
}

// SetColor sets the fixture to the given color and turns it on. Setting it to
// led.Off turns the fixture off while keeping the last color.
func (c *Controller) SetColor(color led.RGBColor) {
	if color.IsOff() {
		if c.on {
			c.Toggle()
		}
		return
	}

	c.lastColor = color
	c.on = true
	c.fill(color)
}

// SetUint is like SetColor, but takes a packed 0xRRGGBB00 color.
func (c *Controller) SetUint(color uint32) {
	c.SetColor(led.RGBFromUint(color))
}

// Color returns the color the fixture is showing, or led.Off if it is off.
func (c *Controller) Color() led.RGBColor {
	if len(c.leds) < 1 || !c.on {
		return led.Off
	}
	return c.leds[0]
}

// LastColor returns the last color the fixture was set to. It is never
// led.Off unless the fixture was never turned on.
func (c *Controller) LastColor() led.RGBColor {
	return c.lastColor
}

// On returns true if the fixture is on.
func (c *Controller) On() bool {
	return c.on
}

// Toggle turns the fixture off if it is on, or back on with its last color if
// it is off.
func (c *Controller) Toggle() {
	if c.on {
		c.on = false
		c.fill(led.Off)
	} else {
		c.on = true
		c.fill(c.lastColor)
	}
}

// Blink toggles the fixture, waits for d, then toggles it back.
func (c *Controller) Blink(d time.Duration) {
	c.Toggle()
	c.sleep(d)
	c.Toggle()
}

// Flash shows color for on, then the last color for gap, and repeats that
// the given number of times. If gap is zero, on is used instead. The last
// color is shown between flashes even if the fixture is off. On, Color and
// LastColor are left untouched.
func (c *Controller) Flash(color led.RGBColor, on time.Duration, repetitions uint, gap time.Duration) {
	if gap == 0 {
		gap = on
	}

	for i := uint(0); i < repetitions; i++ {
		c.fill(color)
		c.sleep(on)
		c.fill(c.lastColor)
		c.sleep(gap)
	}
}

// FlashDefault flashes color three times for 50ms each.
func (c *Controller) FlashDefault(color led.RGBColor) {
	c.Flash(color, DefaultFlashOn, DefaultFlashRepetitions, 0)
}

// FadeToColor fades linearly from the current color to the given color, one
// step every FadeStepInterval of d, then sets the color. Fades shorter than
// FadeStepInterval set the color immediately.
func (c *Controller) FadeToColor(color led.RGBColor, d time.Duration) {
	steps := fadeSteps(d)
	delay := c.fadeDelay(d, steps)

	from := c.Color()
	for i := 0; i < steps; i++ {
		c.fill(fadeStep(from, color, i, steps))
		c.sleep(delay)
	}

	c.SetColor(color)
}

func fadeSteps(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / FadeStepInterval)
}

func (c *Controller) fadeDelay(d time.Duration, steps int) time.Duration {
	if steps == 0 {
		return 0
	}
	switch c.timing {
	case FadeTimingSpread:
		return d / time.Duration(steps)
	default:
		return time.Duration(steps) * time.Millisecond
	}
}

// fadeStep returns the color at step i of n when fading from one color to
// another. Each channel is interpolated on its own.
func fadeStep(from, to led.RGBColor, i, n int) led.RGBColor {
	var c led.RGBColor
	for ch := range c {
		c[ch] = fadeChannel(from[ch], to[ch], i, n)
	}
	return c
}

func fadeChannel(from, to uint8, i, n int) uint8 {
	diff := float64(from) - float64(to)
	v := math.Round(float64(from) - diff/float64(n)*float64(i))
	return uint8(math.Max(0, math.Min(255, v)))
}

// fill writes color into every pixel and commits the buffer.
func (c *Controller) fill(color led.RGBColor) {
	c.leds.Fill(color)

	if err := c.sink.Commit(c.leds); err != nil {
		c.logger.Warn(
			"failed to commit pixels",
			"color", color,
			"error", err)
	}
}
