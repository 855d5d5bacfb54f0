// SPDX-License-Identifier: MIT
/*
Package render draws a spectrum.Layout to image formats: SVG for sharing
and PNG for quick previews. Both honour the layout's canvas size and
margins exactly; an empty layout produces a blank canvas.
*/
package render

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"os"

	applog "voiceeq/internal/log"
	"voiceeq/internal/spectrum"
)

// WriteSVG writes l as a standalone SVG document.
func WriteSVG(w io.Writer, l spectrum.Layout, p Palette) error {
	bw := bufio.NewWriter(w)
	width, height := max(l.Width, 0), max(l.Height, 0)

	fmt.Fprintf(bw, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="10">`+"\n",
		width, height, width, height)

	if !l.Empty() {
		fmt.Fprintf(bw, `<g transform="translate(%d,%d)">`+"\n", l.Margins.Left, l.Margins.Top)
		if l.Placeholder != "" {
			fmt.Fprintf(bw, `<text x="%.1f" y="%.1f" text-anchor="middle" fill="%s">%s</text>`+"\n",
				l.PlotWidth/2, l.PlotHeight/2, p.Text.Hex(), html.EscapeString(l.Placeholder))
		} else {
			writeBars(bw, l, p)
			writeAxes(bw, l, p)
		}
		bw.WriteString("</g>\n")
	}

	bw.WriteString("</svg>\n")
	return bw.Flush()
}

func writeBars(w *bufio.Writer, l spectrum.Layout, p Palette) {
	for _, b := range l.Bars {
		if b.Height <= 0 {
			continue
		}
		fmt.Fprintf(w, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"><title>%s Hz: %d</title></rect>`+"\n",
			b.X, b.Y, b.Width, b.Height, p.Tone(b.Tone).Hex(), spectrum.FormatFrequency(b.Frequency), b.Amplitude)
	}
}

func writeAxes(w *bufio.Writer, l spectrum.Layout, p Palette) {
	axis := p.Axis.Hex()
	text := p.Text.Hex()

	fmt.Fprintf(w, `<line x1="0" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s"/>`+"\n", l.PlotHeight, l.PlotWidth, l.PlotHeight, axis)
	for _, t := range l.XTicks {
		fmt.Fprintf(w, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s"/>`+"\n", t.Position, l.PlotHeight, t.Position, l.PlotHeight+6, axis)
		fmt.Fprintf(w, `<text x="%.2f" y="%.2f" text-anchor="middle" fill="%s">%s</text>`+"\n", t.Position, l.PlotHeight+18, text, t.Label)
	}
	fmt.Fprintf(w, `<text x="%.2f" y="%.2f" text-anchor="middle" fill="%s">Frequency (Hz)</text>`+"\n", l.PlotWidth/2, l.PlotHeight+34, text)

	fmt.Fprintf(w, `<line x1="0" y1="0" x2="0" y2="%.2f" stroke="%s"/>`+"\n", l.PlotHeight, axis)
	for _, t := range l.YTicks {
		fmt.Fprintf(w, `<line x1="-6" y1="%.2f" x2="0" y2="%.2f" stroke="%s"/>`+"\n", t.Position, t.Position, axis)
		fmt.Fprintf(w, `<text x="-9" y="%.2f" text-anchor="end" dominant-baseline="middle" fill="%s">%s</text>`+"\n", t.Position, text, t.Label)
	}
}

// StdoutPath as an output path writes the chart to standard output.
const StdoutPath = "-"

var stdout io.Writer = os.Stdout

// SaveSVG writes l to path, or to stdout when path is StdoutPath.
func SaveSVG(path string, l spectrum.Layout, p Palette) error {
	if path == StdoutPath {
		return WriteSVG(stdout, l, p)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create svg file: %w", err)
	}
	if err := WriteSVG(f, l, p); err != nil {
		f.Close()
		return fmt.Errorf("failed to write svg file: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	applog.Infof("Chart written to %s (%dx%d, %d bars)", path, l.Width, l.Height, len(l.Bars))
	return nil
}
