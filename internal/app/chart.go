// SPDX-License-Identifier: MIT
package app

import (
	"fmt"

	"voiceeq/internal/snapshot"
	"voiceeq/internal/spectrum"
	"voiceeq/internal/transport"
)

// Chart is the payload sent to every display: the snapshot, the adjustments
// that tone it, and a layout for the default surface. Displays that know
// their own size lay it out again with SizedFor.
type Chart struct {
	Title       string                     `json:"title"`
	Spectrum    snapshot.FrequencySnapshot `json:"snapshot"`
	Adjustments []spectrum.AdjustmentPoint `json:"adjustments,omitempty"`
	Palette     spectrum.Palette           `json:"palette"`
	Layout      spectrum.Layout            `json:"layout"`
}

// NewChart lays snap out on surface.
func NewChart(title string, snap snapshot.FrequencySnapshot, adjustments []spectrum.AdjustmentPoint,
	palette spectrum.Palette, surface spectrum.SurfaceMeasurer, margins spectrum.Margins) Chart {
	return Chart{
		Title:       title,
		Spectrum:    snap,
		Adjustments: adjustments,
		Palette:     palette,
		Layout:      spectrum.ComputeFor(surface, snap, adjustments, margins),
	}
}

// SizedFor returns a copy laid out on a width×height surface with the same
// margins.
func (c Chart) SizedFor(width, height int) any {
	c.Layout = spectrum.Compute(c.Spectrum, c.Adjustments, width, height, c.Layout.Margins)
	return c
}

// Snapshot returns the analyser read behind the chart.
func (c Chart) Snapshot() snapshot.FrequencySnapshot { return c.Spectrum }

func (c Chart) String() string {
	if c.Layout.Placeholder != "" {
		return fmt.Sprintf("%s: %s", c.Title, c.Layout.Placeholder)
	}
	return fmt.Sprintf("%s: %s, %d bars on %dx%d", c.Title, c.Spectrum, len(c.Layout.Bars), c.Layout.Width, c.Layout.Height)
}

var _ transport.Sizer = Chart{}
