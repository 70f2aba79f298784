package lightctl

import (
	"sync"

	"github.com/pkg/errors"
	"libdb.so/lightctl/led"
)

// ErrUnknownFixture is returned when a fixture name is not configured.
var ErrUnknownFixture = errors.New("unknown fixture")

// FixtureState is a snapshot of a fixture's state.
type FixtureState struct {
	Name      string       `json:"name"`
	Pixels    int          `json:"pixels"`
	On        bool         `json:"on"`
	Color     led.RGBColor `json:"color"`
	LastColor led.RGBColor `json:"last_color"`
}

// Fixtures is the set of fixtures sharing a strip. Operations on any fixture
// are serialized, so an effect running on one fixture blocks all others until
// it is done.
type Fixtures struct {
	mu    sync.Mutex
	names []string
	ctrls map[string]*Controller
}

// NewFixtures creates a controller for every fixture in cfg, each drawing into
// its own segment of strip. Fixtures with a configured color are turned on
// with it. opts is shared by all controllers; the logger gets a fixture
// attribute and the fade timing is taken from cfg.
func NewFixtures(cfg *Config, strip *Strip, opts ControllerOpts) (*Fixtures, error) {
	timing, err := cfg.FadeTiming.Timing()
	if err != nil {
		return nil, errors.Wrap(ErrInvalidConfiguration, err.Error())
	}

	fixtures := &Fixtures{
		names: make([]string, 0, len(cfg.Fixtures)),
		ctrls: make(map[string]*Controller, len(cfg.Fixtures)),
	}

	for _, f := range cfg.Fixtures {
		if _, ok := fixtures.ctrls[f.Name]; ok {
			return nil, errors.Wrapf(ErrInvalidConfiguration, "duplicate fixture %q", f.Name)
		}

		segment, err := strip.Segment(f.Range[0], f.Range[1])
		if err != nil {
			return nil, errors.Wrapf(err, "fixture %q", f.Name)
		}

		fopts := opts
		fopts.FadeTiming = timing
		if opts.Logger != nil {
			fopts.Logger = opts.Logger.With("fixture", f.Name)
		}

		ctrl, err := NewController(f.NumLEDs(), segment, fopts)
		if err != nil {
			return nil, errors.Wrapf(err, "fixture %q", f.Name)
		}

		if f.Color != nil {
			ctrl.SetColor(*f.Color)
		}

		fixtures.names = append(fixtures.names, f.Name)
		fixtures.ctrls[f.Name] = ctrl
	}

	return fixtures, nil
}

// Names returns the fixture names in configuration order.
func (f *Fixtures) Names() []string {
	return append([]string(nil), f.names...)
}

// Do calls fn with the named fixture's controller while holding the lock, then
// returns the fixture's state.
func (f *Fixtures) Do(name string, fn func(*Controller)) (FixtureState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ctrl, ok := f.ctrls[name]
	if !ok {
		return FixtureState{}, errors.Wrapf(ErrUnknownFixture, "%q", name)
	}

	if fn != nil {
		fn(ctrl)
	}

	return stateOfController(name, ctrl), nil
}

// State returns the named fixture's state.
func (f *Fixtures) State(name string) (FixtureState, error) {
	return f.Do(name, nil)
}

// States returns the state of every fixture in configuration order.
func (f *Fixtures) States() []FixtureState {
	f.mu.Lock()
	defer f.mu.Unlock()

	states := make([]FixtureState, len(f.names))
	for i, name := range f.names {
		states[i] = stateOfController(name, f.ctrls[name])
	}
	return states
}

func stateOfController(name string, ctrl *Controller) FixtureState {
	return FixtureState{
		Name:      name,
		Pixels:    ctrl.PixelCount(),
		On:        ctrl.On(),
		Color:     ctrl.Color(),
		LastColor: ctrl.LastColor(),
	}
}
