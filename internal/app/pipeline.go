// SPDX-License-Identifier: MIT
/*
Package app wires the capture session, the spectrum layout and the outputs
into one pipeline:

	blob ──► Session.Capture ──► FrequencySnapshot ──► Chart ──┬─► SVG / PNG file
	                                                           ├─► terminal
	                                                           └─► displays (WebSocket, UDP, log)

Outputs for one chart are written concurrently; the first failure is
reported once every output has finished.
*/
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"voiceeq/internal/audioctx"
	"voiceeq/internal/config"
	"voiceeq/internal/decode"
	applog "voiceeq/internal/log"
	"voiceeq/internal/render"
	"voiceeq/internal/snapshot"
	"voiceeq/internal/spectrum"
	"voiceeq/internal/transport"
	"voiceeq/internal/tui"
)

// Outputs selects the per-chart outputs. Zero values are skipped.
type Outputs struct {
	SVGPath  string
	PNGPath  string
	Terminal io.Writer
	Surface  spectrum.SurfaceMeasurer // sizes the Terminal chart
}

// Pipeline turns audio blobs into charts and publishes them.
type Pipeline struct {
	host     *audioctx.Host
	session  *snapshot.Session
	palette  render.Palette
	surface  spectrum.SurfaceMeasurer
	margins  spectrum.Margins
	displays transport.Multi
}

// Option configures a Pipeline.
type Option func(*pipelineOptions)

type pipelineOptions struct {
	clock    audioctx.Clock
	decoder  audioctx.Decoder
	displays []transport.Transport
}

// WithClock replaces the wall clock used for the snapshot delay.
func WithClock(c audioctx.Clock) Option {
	return func(o *pipelineOptions) { o.clock = c }
}

// WithDecoder replaces the default decoder registry.
func WithDecoder(d audioctx.Decoder) Option {
	return func(o *pipelineOptions) { o.decoder = d }
}

// WithDisplays adds transports that receive every chart.
func WithDisplays(ts ...transport.Transport) Option {
	return func(o *pipelineOptions) { o.displays = append(o.displays, ts...) }
}

// New builds a pipeline from cfg.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	o := pipelineOptions{clock: audioctx.SystemClock(), decoder: decode.NewRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	palette, err := render.ParsePalette(spectrum.Palette{
		Boost:   cfg.Chart.BoostColor,
		Cut:     cfg.Chart.CutColor,
		Neutral: cfg.Chart.NeutralColor,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid chart colours: %w", err)
	}

	host := audioctx.NewHost(o.decoder,
		audioctx.WithClock(o.clock),
		audioctx.WithMaxContexts(cfg.Analyser.MaxContexts))
	capturer, err := snapshot.NewCapturer(host, snapshot.OptionsFromConfig(cfg.Analyser))
	if err != nil {
		host.Close()
		return nil, fmt.Errorf("invalid analyser settings: %w", err)
	}

	return &Pipeline{
		host:    host,
		session: snapshot.NewSession(capturer),
		palette: palette,
		surface: spectrum.FixedSurface{Width: cfg.Chart.Width, Height: cfg.Chart.Height},
		margins: spectrum.Margins{
			Top:    cfg.Chart.MarginTop,
			Right:  cfg.Chart.MarginRight,
			Bottom: cfg.Chart.MarginBottom,
			Left:   cfg.Chart.MarginLeft,
		},
		displays: transport.Multi(o.displays),
	}, nil
}

// Palette returns the parsed chart colours.
func (p *Pipeline) Palette() render.Palette { return p.palette }

// Analyze captures one snapshot of blob and lays it out on the configured
// chart surface. A capture replaced by a later one, or cancelled through
// ctx, returns snapshot.ErrSkipped.
func (p *Pipeline) Analyze(ctx context.Context, title string, blob snapshot.Blob, adjustments []spectrum.AdjustmentPoint) (Chart, error) {
	snap, err := p.session.Capture(ctx, blob)
	if err != nil {
		if errors.Is(err, snapshot.ErrSkipped) {
			applog.Debugf("Pipeline: Capture of %q skipped", title)
		}
		return Chart{}, err
	}

	if !snap.Usable() {
		applog.Warnf("%s: %s", title, snap.DiagnosticMessage)
	} else {
		applog.Infof("%s: %s", title, snap)
	}
	return NewChart(title, snap, adjustments, p.palette.Hex(), p.surface, p.margins), nil
}

// Publish writes chart to every selected output and display.
func (p *Pipeline) Publish(ctx context.Context, chart Chart, out Outputs) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var g errgroup.Group

	if out.SVGPath != "" {
		g.Go(func() error { return render.SaveSVG(out.SVGPath, chart.Layout, p.palette) })
	}
	if out.PNGPath != "" {
		g.Go(func() error { return render.SavePNG(out.PNGPath, chart.Layout, p.palette) })
	}
	if out.Terminal != nil {
		surface := out.Surface
		if surface == nil {
			surface = tui.TerminalSurface{File: os.Stdout}
		}
		g.Go(func() error {
			return tui.WriteChart(out.Terminal, surface, chart.Spectrum, chart.Adjustments, chart.Palette)
		})
	}
	if len(p.displays) > 0 {
		g.Go(func() error { return p.displays.Send(chart) })
	}
	return g.Wait()
}

// Run analyses blob and publishes the result. A skipped capture publishes
// nothing and is not an error.
func (p *Pipeline) Run(ctx context.Context, title string, blob snapshot.Blob, adjustments []spectrum.AdjustmentPoint, out Outputs) (Chart, error) {
	chart, err := p.Analyze(ctx, title, blob, adjustments)
	if errors.Is(err, snapshot.ErrSkipped) {
		return Chart{}, nil
	}
	if err != nil {
		return Chart{}, err
	}
	return chart, p.Publish(ctx, chart, out)
}

// Close disposes the capture session and every display.
func (p *Pipeline) Close() error {
	err := p.session.Close()
	p.host.Close()
	return errors.Join(err, p.displays.Close())
}

// LoadBlob reads an audio file. An empty mediaType is derived from the
// file extension; the decoder sniffs the content either way.
func LoadBlob(path, mediaType string) (snapshot.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot.Blob{}, fmt.Errorf("failed to read audio file: %w", err)
	}
	if mediaType == "" {
		mediaType = decode.MediaTypeForExtension(filepath.Ext(path))
	}
	return snapshot.Blob{Data: data, MediaType: mediaType}, nil
}
