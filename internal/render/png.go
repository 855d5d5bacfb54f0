// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"

	"voiceeq/internal/spectrum"
)

// Rasterize draws the bars and axis lines of l. Text is not rendered; a
// placeholder layout comes out as a blank plot frame.
func Rasterize(l spectrum.Layout, p Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, max(l.Width, 0), max(l.Height, 0)))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	if l.Empty() {
		return img
	}

	ox, oy := l.Margins.Left, l.Margins.Top
	for _, b := range l.Bars {
		x0 := ox + int(math.Floor(b.X))
		x1 := ox + int(math.Ceil(b.X+b.Width))
		y0 := oy + int(math.Round(b.Y))
		y1 := oy + int(math.Round(b.Y+b.Height))
		if y1 <= y0 {
			continue
		}
		fill := image.NewUniform(rgba(p.Tone(b.Tone)))
		draw.Draw(img, image.Rect(x0, y0, x1, y1).Intersect(img.Bounds()), fill, image.Point{}, draw.Src)
	}

	axis := rgba(p.Axis)
	bottom := oy + int(l.PlotHeight)
	hline(img, ox, ox+int(l.PlotWidth), bottom, axis)
	vline(img, ox, oy, bottom, axis)
	for _, t := range l.XTicks {
		vline(img, ox+int(math.Round(t.Position)), bottom, bottom+5, axis)
	}
	for _, t := range l.YTicks {
		hline(img, ox-5, ox, oy+int(math.Round(t.Position)), axis)
	}
	return img
}

func hline(img *image.RGBA, x0, x1, y int, c color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y, c)
	}
}

func vline(img *image.RGBA, x, y0, y1 int, c color.RGBA) {
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x, y, c)
	}
}

// WritePNG encodes the rasterised layout.
func WritePNG(w io.Writer, l spectrum.Layout, p Palette) error {
	return png.Encode(w, Rasterize(l, p))
}

// SavePNG writes the rasterised layout to path.
func SavePNG(path string, l spectrum.Layout, p Palette) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create png file: %w", err)
	}
	if err := WritePNG(f, l, p); err != nil {
		f.Close()
		return fmt.Errorf("failed to write png file: %w", err)
	}
	return f.Close()
}
