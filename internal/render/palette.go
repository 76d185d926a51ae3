package render

import (
	"fmt"
	"image/color"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// Palette is the four-colour set used for bar gradients and overlays.
type Palette struct {
	Name          string `json:"name"`
	Primary       string `json:"primary"`
	Secondary     string `json:"secondary"`
	GradientStart string `json:"gradientStart"`
	GradientEnd   string `json:"gradientEnd"`
}

var (
	// Calm is shown while the excitement signal is low.
	Calm = Palette{
		Name:          "calm",
		Primary:       "#FF5042",
		Secondary:     "#FFEB3B",
		GradientStart: "#ffcc00",
		GradientEnd:   "#ff0000",
	}
	// Excited replaces Calm for as long as the signal is high.
	Excited = Palette{
		Name:          "excited",
		Primary:       "#00ffff",
		Secondary:     "#ff00ff",
		GradientStart: "#FF00FF",
		GradientEnd:   "#00F2F2",
	}
)

// Select returns Excited when excited is true and Calm otherwise.
func Select(excited bool) Palette {
	if excited {
		return Excited
	}
	return Calm
}

// Palettes lists every palette, calm first.
func Palettes() []Palette {
	return []Palette{Calm, Excited}
}

// ParseColor parses #rgb, #rrggbb and #rrggbbaa notation.
func ParseColor(hex string) (color.NRGBA, error) {
	alpha := uint8(0xff)
	base := hex
	if len(hex) == 9 && hex[0] == '#' {
		a, err := strconv.ParseUint(hex[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("color %q: bad alpha: %w", hex, err)
		}
		alpha = uint8(a)
		base = hex[:7]
	}
	c, err := colorful.Hex(base)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

func mustColor(hex string) color.NRGBA {
	c, err := ParseColor(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// gradientAt blends from -> to in sRGB space, t in [0,1].
func gradientAt(from, to colorful.Color, t float64) color.NRGBA {
	r, g, b := from.BlendRgb(to, clamp01(t)).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}
