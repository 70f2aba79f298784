package lightctl

import (
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"libdb.so/lightctl/led"
)

const testConfig = `
device      = "/dev/ttyACM0"
ack_timeout = "250ms"
fade_timing = "spread"

[[fixture]]
name  = "desk"
range = [0, 30]
color = "#ff8800"

[[fixture]]
name  = "shelf"
range = [30, 42]
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatal("failed to parse config:", err)
	}

	orange := led.RGB(0xFF, 0x88, 0x00)
	assertEq(t, &Config{
		Device:     "/dev/ttyACM0",
		Baud:       DefaultBaud,
		AckTimeout: TOMLDuration(250 * time.Millisecond),
		HTTPAddr:   DefaultHTTPAddr,
		FadeTiming: "spread",
		Fixtures: []FixtureConfig{
			{Name: "desk", Range: [2]int{0, 30}, Color: &orange},
			{Name: "shelf", Range: [2]int{30, 42}},
		},
	}, cfg)

	if err := cfg.Validate(); err != nil {
		t.Fatal("unexpected validation error:", err)
	}

	assertEq(t, 42, cfg.NumLEDs())

	timing, err := cfg.FadeTiming.Timing()
	if err != nil {
		t.Fatal("unexpected fade timing error:", err)
	}
	assertEq(t, FadeTimingSpread, timing)
}

func TestParseConfigEnv(t *testing.T) {
	t.Setenv("LIGHTCTL_DEVICE", "/dev/ttyUSB1")
	t.Setenv("LIGHTCTL_BAUD", "9600")

	cfg, err := ParseConfig(strings.NewReader(testConfig))
	if err != nil {
		t.Fatal("failed to parse config:", err)
	}

	assertEq(t, "/dev/ttyUSB1", cfg.Device)
	assertEq(t, 9600, cfg.Baud)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Baud: DefaultBaud,
			Fixtures: []FixtureConfig{
				{Name: "a", Range: [2]int{0, 10}},
				{Name: "b", Range: [2]int{10, 20}},
			},
		}
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		invalid bool // wraps ErrInvalidConfiguration
	}{
		{
			name:   "no fixtures",
			modify: func(c *Config) { c.Fixtures = nil },
		},
		{
			name:   "zero baud",
			modify: func(c *Config) { c.Baud = 0 },
		},
		{
			name:   "unknown fade timing",
			modify: func(c *Config) { c.FadeTiming = "bouncy" },
		},
		{
			name:   "missing name",
			modify: func(c *Config) { c.Fixtures[0].Name = "" },
		},
		{
			name:   "duplicate name",
			modify: func(c *Config) { c.Fixtures[1].Name = "a" },
		},
		{
			name:    "empty range",
			modify:  func(c *Config) { c.Fixtures[0].Range = [2]int{5, 5} },
			invalid: true,
		},
		{
			name:    "reversed range",
			modify:  func(c *Config) { c.Fixtures[0].Range = [2]int{5, 2} },
			invalid: true,
		},
		{
			name:    "negative start",
			modify:  func(c *Config) { c.Fixtures[0].Range = [2]int{-2, 2} },
			invalid: true,
		},
		{
			name:   "overlap",
			modify: func(c *Config) { c.Fixtures[1].Range = [2]int{9, 20} },
		},
		{
			name:   "contained",
			modify: func(c *Config) { c.Fixtures[0].Range = [2]int{0, 30} },
		},
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatal("valid config failed validation:", err)
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.modify(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if test.invalid && !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("error %v does not wrap ErrInvalidConfiguration", err)
			}
		})
	}
}
