package lightctl

import (
	"encoding"
	"fmt"
	"io"
	"time"

	"github.com/caarlos0/env"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"libdb.so/lightctl/led"
)

// Config is the configuration for the lightctl daemon.
type Config struct {
	// Device is the path to the serial device of the LED controller board.
	// This is usually /dev/ttyUSB0 or /dev/ttyACM0.
	Device string `toml:"device" env:"LIGHTCTL_DEVICE"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud" env:"LIGHTCTL_BAUD"`
	// AckTimeout is how long to wait for the board to acknowledge a packet.
	AckTimeout TOMLDuration `toml:"ack_timeout"`
	// HTTPAddr is the address the control API listens on.
	HTTPAddr string `toml:"http_addr" env:"LIGHTCTL_HTTP_ADDR"`
	// Advertise advertises the control API over mDNS.
	Advertise bool `toml:"advertise"`
	// FadeTiming is the fade timing used by all fixtures.
	FadeTiming FadeTimingName `toml:"fade_timing"`
	// Fixtures is a list of fixtures sharing the LED strip.
	Fixtures []FixtureConfig `toml:"fixture"`
}

// Default values for optional Config fields.
const (
	DefaultBaud       = 115200
	DefaultAckTimeout = 500 * time.Millisecond
	DefaultHTTPAddr   = "127.0.0.1:9000"
)

// FixtureConfig is the configuration for a single fixture.
type FixtureConfig struct {
	// Name identifies the fixture in the control API.
	Name string `toml:"name"`
	// Range is the range [start, end) of LEDs that the fixture occupies.
	Range [2]int `toml:"range"`
	// Color is the color the fixture is turned on with at startup. If unset,
	// the fixture starts off.
	Color *led.RGBColor `toml:"color,omitempty"`
}

// NumLEDs returns the number of LEDs in the fixture.
func (f FixtureConfig) NumLEDs() int {
	return f.Range[1] - f.Range[0]
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Fixtures) == 0 {
		return errors.New("no fixtures configured")
	}

	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}

	if _, err := c.FadeTiming.Timing(); err != nil {
		return err
	}

	names := make(map[string]bool, len(c.Fixtures))
	for _, f := range c.Fixtures {
		if f.Name == "" {
			return fmt.Errorf("fixture with range %v has no name", f.Range)
		}
		if names[f.Name] {
			return fmt.Errorf("duplicate fixture name %q", f.Name)
		}
		names[f.Name] = true

		if f.Range[0] < 0 || f.NumLEDs() <= 0 {
			return errors.Wrapf(ErrInvalidConfiguration, "fixture %q has empty range %v", f.Name, f.Range)
		}
	}

	// Check for overlapping LED ranges.
	for i, f1 := range c.Fixtures {
		for j, f2 := range c.Fixtures {
			if i == j {
				continue
			}

			if f1.Range[0] < f2.Range[1] && f2.Range[0] < f1.Range[1] {
				return fmt.Errorf("fixture %q range %v overlaps with %q range %v",
					f1.Name, f1.Range, f2.Name, f2.Range)
			}
		}
	}

	return nil
}

// NumLEDs returns the number of LEDs on the strip, which is the end of the
// furthest fixture.
func (c *Config) NumLEDs() int {
	var numLEDs int
	for _, f := range c.Fixtures {
		if f.Range[1] > numLEDs {
			numLEDs = f.Range[1]
		}
	}
	return numLEDs
}

// FadeTimingName is the config name of a FadeTiming.
type FadeTimingName string

// Timing returns the FadeTiming with this name. The empty name is the default
// timing.
func (n FadeTimingName) Timing() (FadeTiming, error) {
	switch n {
	case "", FadeTimingName(FadeTimingStepCount.String()):
		return FadeTimingStepCount, nil
	case FadeTimingName(FadeTimingSpread.String()):
		return FadeTimingSpread, nil
	default:
		return 0, fmt.Errorf("unknown fade timing %q", string(n))
	}
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader. LIGHTCTL_* environment
// variables override the file, and defaults fill in whatever is left unset.
func ParseConfig(r io.Reader) (*Config, error) {
	var config Config
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, err
	}
	if err := env.Parse(&config); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}
	config.setDefaults()
	return &config, nil
}

func (c *Config) setDefaults() {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = TOMLDuration(DefaultAckTimeout)
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
}
