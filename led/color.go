// Package led contains the color and pixel buffer types shared by fixtures,
// strips and strip writers.
package led

import (
	"encoding"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// RGBColor is a 24-bit color with one byte per channel, in R, G, B order.
type RGBColor [3]uint8

// Off is the color of an LED that is turned off.
var Off = RGBColor{}

var (
	_ encoding.TextMarshaler   = RGBColor{}
	_ encoding.TextUnmarshaler = (*RGBColor)(nil)
	_ color.Color              = RGBColor{}
)

// RGB creates a color from its three channels.
func RGB(r, g, b uint8) RGBColor {
	return RGBColor{r, g, b}
}

// RGBFromUint converts a packed 0xRRGGBB00 value into a color. The low byte is
// ignored.
func RGBFromUint(v uint32) RGBColor {
	return RGBColor{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8)}
}

// ToUint packs the color as 0xRRGGBB00.
func (c RGBColor) ToUint() uint32 {
	return uint32(c[0])<<24 | uint32(c[1])<<16 | uint32(c[2])<<8
}

// R returns the red channel.
func (c RGBColor) R() uint8 { return c[0] }

// G returns the green channel.
func (c RGBColor) G() uint8 { return c[1] }

// B returns the blue channel.
func (c RGBColor) B() uint8 { return c[2] }

// IsOff returns true if every channel is zero.
func (c RGBColor) IsOff() bool {
	return c == Off
}

// RGBA implements color.Color. The color is always opaque.
func (c RGBColor) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xFF}.RGBA()
}

// String returns the color as #rrggbb.
func (c RGBColor) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// MarshalText implements encoding.TextMarshaler.
func (c RGBColor) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It accepts #rrggbb.
func (c *RGBColor) UnmarshalText(text []byte) error {
	parsed, err := ParseRGB(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseRGB parses a color in #rrggbb notation.
func ParseRGB(s string) (RGBColor, error) {
	hex, err := colorful.Hex(s)
	if err != nil {
		return Off, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := hex.RGB255()
	return RGBColor{r, g, b}, nil
}
