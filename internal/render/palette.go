// SPDX-License-Identifier: MIT
package render

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"voiceeq/internal/config"
	"voiceeq/internal/spectrum"
)

// Palette holds parsed tone colours plus the chart chrome.
type Palette struct {
	Boost   colorful.Color
	Cut     colorful.Color
	Neutral colorful.Color
	Axis    colorful.Color
	Text    colorful.Color
}

// DefaultPalette is the green/red/blue scheme with grey axes.
func DefaultPalette() Palette {
	p, _ := ParsePalette(spectrum.Palette{
		Boost:   config.DefaultBoostColor,
		Cut:     config.DefaultCutColor,
		Neutral: config.DefaultNeutralColor,
	})
	return p
}

// ParsePalette parses hex colours such as "#22c55e".
func ParsePalette(p spectrum.Palette) (Palette, error) {
	var errs []error
	parse := func(name, hex string) colorful.Color {
		c, err := colorful.Hex(hex)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s colour: %w", name, err))
		}
		return c
	}
	out := Palette{
		Boost:   parse("boost", p.Boost),
		Cut:     parse("cut", p.Cut),
		Neutral: parse("neutral", p.Neutral),
		Axis:    colorful.Color{R: 0.6, G: 0.6, B: 0.6},
		Text:    colorful.Color{R: 0.4, G: 0.4, B: 0.4},
	}
	return out, errors.Join(errs...)
}

// Tone returns the fill colour for t.
func (p Palette) Tone(t spectrum.Tone) colorful.Color {
	switch t {
	case spectrum.Boost:
		return p.Boost
	case spectrum.Cut:
		return p.Cut
	default:
		return p.Neutral
	}
}

// Hex returns the palette as hex strings for displays that style by name.
func (p Palette) Hex() spectrum.Palette {
	return spectrum.Palette{Boost: p.Boost.Hex(), Cut: p.Cut.Hex(), Neutral: p.Neutral.Hex()}
}

func rgba(c colorful.Color) color.RGBA {
	r, g, b := c.Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
