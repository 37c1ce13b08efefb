package renderer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/json-iterator/go"
)

// RGBA is a colour with components in the range [0, 1].
type RGBA struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// CSS returns the colour as a css rgb() value, ignoring alpha.
func (c RGBA) CSS() string {
	return fmt.Sprintf("rgb(%d,%d,%d)", to255(c.R), to255(c.G), to255(c.B))
}

func to255(v float64) int {
	return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// ColorFunc chooses the colour of the feature (or point) at index.
type ColorFunc func(index int, feature interface{}) RGBA

// Color is either a fixed colour or a function of the feature being drawn.
type Color struct {
	Fixed RGBA
	Func  ColorFunc
}

// FixedColor returns a Color that is the same for every feature.
func FixedColor(c RGBA) Color {
	return Color{Fixed: c}
}

// At returns the colour of the feature at index.
func (c Color) At(index int, feature interface{}) RGBA {
	if c.Func != nil {
		return c.Func(index, feature)
	}
	return c.Fixed
}

// ErrInvalidColor is returned when a colour cannot be decoded. It matches with errors.Is only on
// a direct call to Color.UnmarshalJSON or ParseHex; jsoniter re-reports the message as a new error.
var ErrInvalidColor = errors.New("invalid color")

// UnmarshalJSON accepts either {"r":..,"g":..,"b":..,"a":..} or a hex string (#RGB, #RRGGBB or #RRGGBBAA).
func (c *Color) UnmarshalJSON(b []byte) error {
	var s string
	if err := jsoniter.Unmarshal(b, &s); err == nil {
		rgba, err := ParseHex(s)
		if err != nil {
			return err
		}
		*c = FixedColor(rgba)
		return nil
	}
	var rgba RGBA
	if err := jsoniter.Unmarshal(b, &rgba); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidColor, string(b))
	}
	*c = FixedColor(rgba)
	return nil
}

// MarshalJSON writes the fixed colour. A ColorFunc cannot be serialised.
func (c Color) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(c.Fixed)
}

// ParseHex parses a hex colour, with or without the leading '#'.
func ParseHex(hex string) (RGBA, error) {
	h := strings.TrimPrefix(hex, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	return RGBA{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, nil
}

// Settings configure a single sub-renderer.
type Settings struct {
	// Map is the host map the sub-renderer draws on.
	Map     interface{}
	Pane    string
	Border  bool
	Opacity float64
	Size    float64
	Color   Color
	Data    interface{}
	Order   CoordinateOrder
}

// DefaultSettings returns the style every glify layer starts from.
func DefaultSettings() Settings {
	return Settings{
		Border:  true,
		Opacity: 0.2,
		Size:    10,
		Color:   FixedColor(RGBA{R: 0.2, G: 0.5333333333333333, B: 1, A: 0}),
	}
}

// StyleOptions is a partial set of style settings. Nil fields are left untouched when applied.
type StyleOptions struct {
	Border  *bool    `json:"border,omitempty"`
	Opacity *float64 `json:"opacity,omitempty"`
	Size    *float64 `json:"size,omitempty"`
	Color   *Color   `json:"color,omitempty"`
}

// Apply copies every set option onto s.
func (o StyleOptions) Apply(s *Settings) {
	if o.Border != nil {
		s.Border = *o.Border
	}
	if o.Opacity != nil {
		s.Opacity = *o.Opacity
	}
	if o.Size != nil {
		s.Size = *o.Size
	}
	if o.Color != nil {
		s.Color = *o.Color
	}
}

// Merge returns o overlaid with every option set in next.
func (o StyleOptions) Merge(next StyleOptions) StyleOptions {
	if next.Border != nil {
		o.Border = next.Border
	}
	if next.Opacity != nil {
		o.Opacity = next.Opacity
	}
	if next.Size != nil {
		o.Size = next.Size
	}
	if next.Color != nil {
		o.Color = next.Color
	}
	return o
}

// Bool returns a pointer to b, for building StyleOptions.
func Bool(b bool) *bool { return &b }

// Float returns a pointer to f, for building StyleOptions.
func Float(f float64) *float64 { return &f }
