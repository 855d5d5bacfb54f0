// SPDX-License-Identifier: MIT
package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/x/term"

	applog "voiceeq/internal/log"
	"voiceeq/internal/snapshot"
	"voiceeq/internal/spectrum"
)

// Size used when the output is not a terminal.
const (
	FallbackColumns = 80
	FallbackRows    = 20
)

// TerminalSurface measures the terminal attached to File in cells.
type TerminalSurface struct {
	File *os.File
}

// Measure returns the terminal size, or zero when File is not a terminal.
func (s TerminalSurface) Measure() (int, int) {
	if s.File == nil || !term.IsTerminal(s.File.Fd()) {
		return 0, 0
	}
	w, h, err := term.GetSize(s.File.Fd())
	if err != nil {
		applog.Debugf("TUI: Could not read terminal size: %v", err)
		return 0, 0
	}
	return w, h
}

// orFallback substitutes the fallback size for an unmeasurable surface.
type orFallback struct {
	spectrum.SurfaceMeasurer
}

func (s orFallback) Measure() (int, int) {
	w, h := s.SurfaceMeasurer.Measure()
	if w <= 0 || h <= 0 {
		return FallbackColumns, FallbackRows
	}
	return w, h
}

// WriteChart prints the chart once, sized to surface, without taking over
// the screen. Unmeasurable surfaces get the fallback size.
func WriteChart(w io.Writer, surface spectrum.SurfaceMeasurer, snap snapshot.FrequencySnapshot, adjustments []spectrum.AdjustmentPoint, palette spectrum.Palette) error {
	l := spectrum.ComputeFor(orFallback{surface}, snap, adjustments, CellMargins)
	out := Render(l, palette)
	if out == "" {
		return nil
	}
	_, err := io.WriteString(w, out+"\n")
	return err
}
