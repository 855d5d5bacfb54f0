// SPDX-License-Identifier: MIT
/*
Package spectrum lays out a frequency snapshot as a bar chart.

Compute is pure: the same snapshot, adjustments and geometry always give the
same Layout. Frequencies run along a logarithmic axis from 20 Hz to 20 kHz,
magnitudes along a linear 0-255 axis with zero at the bottom, and each bar is
toned by the first adjustment point within a tenth of a decade of its
centre frequency.
*/
package spectrum

import (
	"math"

	"voiceeq/internal/snapshot"
)

const (
	MinFrequency = 20.0
	MaxFrequency = 20000.0
	MaxAmplitude = 255.0

	// NoDataMessage is shown when a snapshot has no data and no diagnostic.
	NoDataMessage = "No audio data to display."

	// toneTolerance is the matching window in log10 units, roughly a
	// quarter octave either side.
	toneTolerance = 0.1
)

// Margins surround the plot area inside the canvas.
type Margins struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// BinDatum is one analyser bin placed on the frequency axis.
type BinDatum struct {
	FrequencyHz float64 `json:"frequency"`
	Amplitude   uint8   `json:"amplitude"`
}

// Bar is a drawable rectangle in plot coordinates (origin at the plot's
// top-left corner, y growing downwards).
type Bar struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Tone      Tone    `json:"tone"`
	Frequency float64 `json:"frequency"`
	Amplitude uint8   `json:"amplitude"`
}

// Tick is an axis label at a plot-relative position.
type Tick struct {
	Value    float64 `json:"value"`
	Position float64 `json:"position"`
	Label    string  `json:"label"`
}

// Layout is everything a display needs to draw one chart. A Layout with no
// bars and no placeholder draws nothing.
type Layout struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Margins     Margins `json:"margins"`
	PlotWidth   float64 `json:"plotWidth"`
	PlotHeight  float64 `json:"plotHeight"`
	Bars        []Bar   `json:"bars,omitempty"`
	XTicks      []Tick  `json:"xTicks,omitempty"`
	YTicks      []Tick  `json:"yTicks,omitempty"`
	Placeholder string  `json:"placeholder,omitempty"`
}

// Empty reports whether the layout has nothing to draw.
func (l Layout) Empty() bool {
	return len(l.Bars) == 0 && l.Placeholder == ""
}

// Compute lays out snap on a width×height canvas.
//
// A plot area with no width or height yields an empty Layout. A snapshot
// without data yields a placeholder carrying its diagnostic. Neither case is
// an error.
func Compute(snap snapshot.FrequencySnapshot, adjustments []AdjustmentPoint, width, height int, margins Margins) Layout {
	l := Layout{
		Width:      width,
		Height:     height,
		Margins:    margins,
		PlotWidth:  float64(width - margins.Left - margins.Right),
		PlotHeight: float64(height - margins.Top - margins.Bottom),
	}
	if l.PlotWidth <= 0 || l.PlotHeight <= 0 {
		l.PlotWidth, l.PlotHeight = 0, 0
		return l
	}

	if !snap.Usable() {
		l.Placeholder = snap.DiagnosticMessage
		if l.Placeholder == "" {
			l.Placeholder = NoDataMessage
		}
		return l
	}

	bins := Bins(snap)
	l.XTicks = frequencyTicks(l.PlotWidth)
	l.YTicks = amplitudeTicks(l.PlotHeight)
	if len(bins) == 0 {
		return l
	}

	barWidth := max(1, l.PlotWidth/float64(len(bins)))
	l.Bars = make([]Bar, len(bins))
	for i, b := range bins {
		y := AmplitudeToY(b.Amplitude, l.PlotHeight)
		l.Bars[i] = Bar{
			X:         FrequencyToX(b.FrequencyHz, l.PlotWidth),
			Y:         y,
			Width:     barWidth,
			Height:    l.PlotHeight - y,
			Tone:      ToneFor(b.FrequencyHz, adjustments),
			Frequency: b.FrequencyHz,
			Amplitude: b.Amplitude,
		}
	}
	return l
}

// Bins converts every magnitude to a BinDatum at i·R/(2N) Hz and keeps those
// inside [MinFrequency, MaxFrequency].
func Bins(snap snapshot.FrequencySnapshot) []BinDatum {
	if !snap.Usable() {
		return nil
	}
	out := make([]BinDatum, 0, len(snap.Magnitudes))
	for i, m := range snap.Magnitudes {
		f := snap.BinFrequency(i)
		if f < MinFrequency || f > MaxFrequency {
			continue
		}
		out = append(out, BinDatum{FrequencyHz: f, Amplitude: m})
	}
	return out
}

// FrequencyToX maps f onto [0, plotWidth] on a log scale.
func FrequencyToX(f, plotWidth float64) float64 {
	lo, hi := math.Log10(MinFrequency), math.Log10(MaxFrequency)
	return (math.Log10(f) - lo) / (hi - lo) * plotWidth
}

// AmplitudeToY maps a magnitude onto [plotHeight, 0].
func AmplitudeToY(a uint8, plotHeight float64) float64 {
	return plotHeight - float64(a)/MaxAmplitude*plotHeight
}
