// SPDX-License-Identifier: MIT
package spectrum

import (
	"fmt"
	"math"
	"strings"
)

// AdjustmentPoint is one graphic-EQ band: a centre frequency and the gain
// recommended for it.
type AdjustmentPoint struct {
	FrequencyHz float64 `json:"frequency" yaml:"frequency"`
	GainDb      float64 `json:"gain" yaml:"gain"`
}

// Tone classifies a bar by the adjustment that covers it.
type Tone int

const (
	Neutral Tone = iota
	Boost
	Cut
)

func (t Tone) String() string {
	switch t {
	case Boost:
		return "boost"
	case Cut:
		return "cut"
	default:
		return "neutral"
	}
}

func (t Tone) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tone) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "boost":
		*t = Boost
	case "cut":
		*t = Cut
	case "neutral", "":
		*t = Neutral
	default:
		return fmt.Errorf("unknown tone %q", b)
	}
	return nil
}

// ToneFor returns the tone of the first point within toneTolerance decades
// of f. Later points are not consulted once one matches, even if closer.
func ToneFor(f float64, points []AdjustmentPoint) Tone {
	if f <= 0 {
		return Neutral
	}
	lf := math.Log10(f)
	for _, p := range points {
		if p.FrequencyHz <= 0 {
			continue
		}
		if math.Abs(math.Log10(p.FrequencyHz)-lf) < toneTolerance {
			if p.GainDb > 0 {
				return Boost
			}
			return Cut
		}
	}
	return Neutral
}

// Palette assigns a colour to each tone.
type Palette struct {
	Boost   string `json:"boost" yaml:"boost"`
	Cut     string `json:"cut" yaml:"cut"`
	Neutral string `json:"neutral" yaml:"neutral"`
}

// Color returns the palette entry for t.
func (p Palette) Color(t Tone) string {
	switch t {
	case Boost:
		return p.Boost
	case Cut:
		return p.Cut
	default:
		return p.Neutral
	}
}
