package lightctl

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/pkg/errors"
	"libdb.so/hrt"
	"libdb.so/lightctl/led"
)

// MaxEffectDuration is the longest duration an HTTP request may ask an effect
// to run for. Effects hold every fixture while they run.
const MaxEffectDuration = time.Minute

// Handler is the HTTP control API for a set of fixtures.
type Handler struct {
	*chi.Mux
	fixtures *Fixtures
}

// NewHandler creates a new HTTP handler controlling the given fixtures.
// Requests are logged to logger at debug level.
func NewHandler(fixtures *Fixtures, logger *slog.Logger) *Handler {
	h := &Handler{
		Mux:      chi.NewRouter(),
		fixtures: fixtures,
	}

	h.Use(httplog.RequestLogger(&httplog.Logger{
		Logger: logger,
		Options: httplog.Options{
			LogLevel: slog.LevelDebug,
			Concise:  true,
		},
	}))

	h.Use(hrt.Use(hrt.Opts{
		Encoder: hrt.CombinedEncoder{
			Encoder: hrt.JSONEncoder,
			Decoder: hrt.URLDecoder,
		},
		ErrorWriter: hrt.TextErrorWriter,
	}))

	h.Get("/fixtures", hrt.Wrap(h.listFixtures))
	h.Post("/color", hrt.Wrap(h.setColor))
	h.Post("/toggle", hrt.Wrap(h.toggle))
	h.Post("/blink", hrt.Wrap(h.blink))
	h.Post("/flash", hrt.Wrap(h.flash))
	h.Post("/fade", hrt.Wrap(h.fade))

	return h
}

func (h *Handler) listFixtures(ctx context.Context, _ hrt.None) ([]FixtureState, error) {
	return h.fixtures.States(), nil
}

type setColorRequest struct {
	Fixture string `query:"fixture"`
	Color   string `query:"color"`
}

func (h *Handler) setColor(ctx context.Context, req setColorRequest) (FixtureState, error) {
	color, err := parseColorParam("color", req.Color)
	if err != nil {
		return FixtureState{}, err
	}
	return h.do(req.Fixture, func(c *Controller) { c.SetColor(color) })
}

type toggleRequest struct {
	Fixture string `query:"fixture"`
}

func (h *Handler) toggle(ctx context.Context, req toggleRequest) (FixtureState, error) {
	return h.do(req.Fixture, (*Controller).Toggle)
}

type blinkRequest struct {
	Fixture  string `query:"fixture"`
	Duration string `query:"duration"`
}

func (h *Handler) blink(ctx context.Context, req blinkRequest) (FixtureState, error) {
	d, err := parseDurationParam("duration", req.Duration, -1)
	if err != nil {
		return FixtureState{}, err
	}
	return h.do(req.Fixture, func(c *Controller) { c.Blink(d) })
}

type flashRequest struct {
	Fixture     string `query:"fixture"`
	Color       string `query:"color"`
	On          string `query:"on"`
	Repetitions string `query:"repetitions"`
	Gap         string `query:"gap"`
}

func (h *Handler) flash(ctx context.Context, req flashRequest) (FixtureState, error) {
	color, err := parseColorParam("color", req.Color)
	if err != nil {
		return FixtureState{}, err
	}

	on, err := parseDurationParam("on", req.On, DefaultFlashOn)
	if err != nil {
		return FixtureState{}, err
	}

	gap, err := parseDurationParam("gap", req.Gap, 0)
	if err != nil {
		return FixtureState{}, err
	}

	repetitions := uint64(DefaultFlashRepetitions)
	if req.Repetitions != "" {
		repetitions, err = strconv.ParseUint(req.Repetitions, 10, 16)
		if err != nil {
			return FixtureState{}, hrt.NewHTTPError(http.StatusBadRequest, "invalid repetitions")
		}
	}

	period := on + gap
	if gap == 0 {
		period = 2 * on
	}
	if time.Duration(repetitions)*period > MaxEffectDuration {
		return FixtureState{}, hrt.NewHTTPError(http.StatusBadRequest, "flash is too long")
	}

	return h.do(req.Fixture, func(c *Controller) {
		c.Flash(color, on, uint(repetitions), gap)
	})
}

type fadeRequest struct {
	Fixture  string `query:"fixture"`
	Color    string `query:"color"`
	Duration string `query:"duration"`
}

func (h *Handler) fade(ctx context.Context, req fadeRequest) (FixtureState, error) {
	color, err := parseColorParam("color", req.Color)
	if err != nil {
		return FixtureState{}, err
	}

	d, err := parseDurationParam("duration", req.Duration, -1)
	if err != nil {
		return FixtureState{}, err
	}

	return h.do(req.Fixture, func(c *Controller) { c.FadeToColor(color, d) })
}

func (h *Handler) do(fixture string, fn func(*Controller)) (FixtureState, error) {
	state, err := h.fixtures.Do(fixture, fn)
	if err != nil {
		if errors.Is(err, ErrUnknownFixture) {
			return state, hrt.WrapHTTPError(http.StatusNotFound, err)
		}
		return state, err
	}
	return state, nil
}

func parseColorParam(name, value string) (led.RGBColor, error) {
	if value == "" {
		return led.Off, hrt.NewHTTPError(http.StatusBadRequest, "missing "+name)
	}
	color, err := led.ParseRGB(value)
	if err != nil {
		return led.Off, hrt.WrapHTTPError(http.StatusBadRequest, errors.Wrapf(err, "invalid %s", name))
	}
	return color, nil
}

// parseDurationParam parses a duration parameter. An empty value yields def,
// or an error if def is negative.
func parseDurationParam(name, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		if def < 0 {
			return 0, hrt.NewHTTPError(http.StatusBadRequest, "missing "+name)
		}
		return def, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, hrt.WrapHTTPError(http.StatusBadRequest, errors.Wrapf(err, "invalid %s", name))
	}
	if d < 0 || d > MaxEffectDuration {
		return 0, hrt.NewHTTPError(http.StatusBadRequest, name+" is out of range")
	}

	return d, nil
}
