// SPDX-License-Identifier: MIT
package audioctx

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"voiceeq/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

const (
	minFFTSize = 32
	maxFFTSize = 32768
)

// AnalyserOptions mirror the AnalyserNode attributes of the Web Audio model.
type AnalyserOptions struct {
	FFTSize               int     // Window length in frames, power of two.
	SmoothingTimeConstant float64 // Weight of the previous frame, 0-1.
	MinDecibels           float64 // Maps to byte 0.
	MaxDecibels           float64 // Maps to byte 255.
}

// DefaultAnalyserOptions returns a 2048-point analyser (1024 bins) with
// 0.8 smoothing over the [-100, -30] dB range.
func DefaultAnalyserOptions() AnalyserOptions {
	return AnalyserOptions{
		FFTSize:               2048,
		SmoothingTimeConstant: 0.8,
		MinDecibels:           -100,
		MaxDecibels:           -30,
	}
}

// Validate checks the option ranges.
func (o AnalyserOptions) Validate() error {
	if !bitint.IsPowerOfTwo(o.FFTSize) || o.FFTSize < minFFTSize || o.FFTSize > maxFFTSize {
		return fmt.Errorf("analyser: fft size must be a power of 2 in [%d, %d], got %d", minFFTSize, maxFFTSize, o.FFTSize)
	}
	if o.SmoothingTimeConstant < 0 || o.SmoothingTimeConstant > 1 {
		return fmt.Errorf("analyser: smoothing time constant must be in [0, 1], got %g", o.SmoothingTimeConstant)
	}
	if o.MinDecibels >= o.MaxDecibels {
		return fmt.Errorf("analyser: min decibels (%g) must be below max decibels (%g)", o.MinDecibels, o.MaxDecibels)
	}
	return nil
}

// Pre-allocated buffers for one analysis frame.
type analyserWorkspace struct {
	input    []float64    // windowed time-domain frame
	coeffs   []complex128 // FFT output, N/2+1
	smoothed []float64    // smoothed magnitude, carried between reads
	window   []float64    // Blackman coefficients
}

// Analyser computes byte frequency data from its connected source.
type Analyser struct {
	ctx  *Context
	opts AnalyserOptions
	fft  *fourier.FFT

	mu        sync.Mutex
	source    *BufferSource
	workspace analyserWorkspace
}

func newAnalyser(ctx *Context, opts AnalyserOptions) (*Analyser, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	n := opts.FFTSize
	win := make([]float64, n)
	for i := range win {
		win[i] = 1
	}
	window.Blackman(win)

	return &Analyser{
		ctx:  ctx,
		opts: opts,
		fft:  fourier.NewFFT(n),
		workspace: analyserWorkspace{
			input:    make([]float64, n),
			coeffs:   make([]complex128, n/2+1),
			smoothed: make([]float64, n/2),
			window:   win,
		},
	}, nil
}

func (a *Analyser) connect(s *BufferSource) {
	a.mu.Lock()
	a.source = s
	a.mu.Unlock()
}

// FFTSize returns the analysis window length.
func (a *Analyser) FFTSize() int { return a.opts.FFTSize }

// FrequencyBinCount returns FFTSize/2.
func (a *Analyser) FrequencyBinCount() int { return a.opts.FFTSize / 2 }

// ByteFrequencyData writes the current spectrum into dst, one byte per bin,
// up to min(len(dst), FrequencyBinCount()) values.
//
// Per bin k: X = |FFT(blackman * frame)[k]| / N, smoothed against the
// previous read as S = τ·S' + (1-τ)·X, then 20·log10(S) is mapped linearly
// from [MinDecibels, MaxDecibels] onto [0, 255] and clamped.
func (a *Analyser) ByteFrequencyData(dst []uint8) error {
	if a.ctx.IsClosed() {
		return ErrContextClosed
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ws := &a.workspace
	if a.source == nil || !a.source.fill(ws.input) {
		for i := range ws.input {
			ws.input[i] = 0
		}
	}
	for i := range ws.input {
		ws.input[i] *= ws.window[i]
	}

	a.fft.Coefficients(ws.coeffs, ws.input)

	n := float64(a.opts.FFTSize)
	tau := a.opts.SmoothingTimeConstant
	scale := 255 / (a.opts.MaxDecibels - a.opts.MinDecibels)

	bins := min(len(dst), len(ws.smoothed))
	for k := range ws.smoothed {
		mag := cmplx.Abs(ws.coeffs[k]) / n
		s := tau*ws.smoothed[k] + (1-tau)*mag
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		ws.smoothed[k] = s

		if k >= bins {
			continue
		}
		v := math.Floor(scale * (20*math.Log10(s) - a.opts.MinDecibels))
		switch {
		case v < 0 || math.IsNaN(v):
			dst[k] = 0
		case v > 255:
			dst[k] = 255
		default:
			dst[k] = uint8(v)
		}
	}
	return nil
}
