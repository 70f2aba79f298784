package lightctl

import (
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/pkg/errors"
	"libdb.so/lightctl/led"
)

func newTestFixtures(t *testing.T, cfg *Config) (*Fixtures, *recordingWriter, *recordingSleeper) {
	t.Helper()

	if err := cfg.Validate(); err != nil {
		t.Fatal("invalid test config:", err)
	}

	writer := &recordingWriter{}
	sleeper := &recordingSleeper{}

	strip, err := NewStrip(cfg.NumLEDs(), writer)
	if err != nil {
		t.Fatal("failed to create strip:", err)
	}

	fixtures, err := NewFixtures(cfg, strip, ControllerOpts{
		Logger: slogt.New(t),
		Sleep:  sleeper.Sleep,
	})
	if err != nil {
		t.Fatal("failed to create fixtures:", err)
	}

	return fixtures, writer, sleeper
}

func TestFixtures(t *testing.T) {
	fixtures, writer, _ := newTestFixtures(t, &Config{
		Baud: DefaultBaud,
		Fixtures: []FixtureConfig{
			{Name: "desk", Range: [2]int{0, 2}, Color: &green},
			{Name: "shelf", Range: [2]int{2, 3}},
		},
	})

	assertEq(t, []string{"desk", "shelf"}, fixtures.Names())
	assertEq(t, []led.LEDs{{green, green, led.Off}}, writer.writes)

	assertEq(t, []FixtureState{
		{Name: "desk", Pixels: 2, On: true, Color: green, LastColor: green},
		{Name: "shelf", Pixels: 1},
	}, fixtures.States())

	state, err := fixtures.Do("shelf", func(c *Controller) { c.SetColor(blue) })
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	assertEq(t, FixtureState{Name: "shelf", Pixels: 1, On: true, Color: blue, LastColor: blue}, state)

	state, err = fixtures.Do("desk", (*Controller).Toggle)
	if err != nil {
		t.Fatal("unexpected error:", err)
	}
	assertEq(t, FixtureState{Name: "desk", Pixels: 2, Color: led.Off, LastColor: green}, state)

	assertEq(t, led.LEDs{led.Off, led.Off, blue}, writer.writes[len(writer.writes)-1])
}

func TestFixturesUnknown(t *testing.T) {
	fixtures, _, _ := newTestFixtures(t, &Config{
		Baud:     DefaultBaud,
		Fixtures: []FixtureConfig{{Name: "desk", Range: [2]int{0, 1}}},
	})

	called := false
	_, err := fixtures.Do("lamp", func(*Controller) { called = true })
	if !errors.Is(err, ErrUnknownFixture) {
		t.Fatalf("error = %v, want ErrUnknownFixture", err)
	}
	if called {
		t.Error("callback was called for an unknown fixture")
	}

	if _, err := fixtures.State("lamp"); !errors.Is(err, ErrUnknownFixture) {
		t.Fatalf("error = %v, want ErrUnknownFixture", err)
	}
}

func TestFixturesFadeTiming(t *testing.T) {
	fixtures, _, sleeper := newTestFixtures(t, &Config{
		Baud:       DefaultBaud,
		FadeTiming: "spread",
		Fixtures:   []FixtureConfig{{Name: "desk", Range: [2]int{0, 1}}},
	})

	_, err := fixtures.Do("desk", func(c *Controller) {
		c.FadeToColor(red, 1500*time.Millisecond)
	})
	if err != nil {
		t.Fatal("unexpected error:", err)
	}

	assertEq(t, 1500*time.Millisecond, sleeper.total())
}
