// SPDX-License-Identifier: MIT
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voiceeq/internal/audioctx"
	"voiceeq/internal/config"
	applog "voiceeq/internal/log"
)

// ContextFactory hands out scoped processing contexts. *audioctx.Host
// satisfies it.
type ContextFactory interface {
	NewContext() (*audioctx.Context, error)
}

// Options tune a Capturer.
type Options struct {
	Analyser       audioctx.AnalyserOptions
	SnapshotDelay  time.Duration // Wait between Start and the read.
	PlaybackOffset time.Duration // Upper bound on the start offset.
	MaxPlayback    time.Duration // Upper bound on the played region.
}

// DefaultOptions returns the 2048-point analyser read 100 ms after starting
// 100 ms into the clip.
func DefaultOptions() Options {
	return Options{
		Analyser:       audioctx.DefaultAnalyserOptions(),
		SnapshotDelay:  config.DefaultSnapshotDelay,
		PlaybackOffset: config.DefaultPlaybackOffset,
		MaxPlayback:    config.DefaultMaxPlayback,
	}
}

// OptionsFromConfig maps the analyser section of the config file.
func OptionsFromConfig(c config.AnalyserConfig) Options {
	return Options{
		Analyser: audioctx.AnalyserOptions{
			FFTSize:               c.FFTSize,
			SmoothingTimeConstant: c.SmoothingTimeConstant,
			MinDecibels:           c.MinDecibels,
			MaxDecibels:           c.MaxDecibels,
		},
		SnapshotDelay:  c.SnapshotDelay,
		PlaybackOffset: c.PlaybackOffset,
		MaxPlayback:    c.MaxPlayback,
	}
}

// Capturer takes single frequency snapshots. It holds no per-capture state
// and may be shared, but every capture needs its own context from the
// factory, so concurrency is bounded by the factory.
type Capturer struct {
	contexts ContextFactory
	opts     Options
}

// NewCapturer validates opts and returns a Capturer.
func NewCapturer(contexts ContextFactory, opts Options) (*Capturer, error) {
	if contexts == nil {
		return nil, errors.New("snapshot: nil context factory")
	}
	if err := opts.Analyser.Validate(); err != nil {
		return nil, err
	}
	if opts.SnapshotDelay < 0 || opts.PlaybackOffset < 0 || opts.MaxPlayback <= 0 {
		return nil, fmt.Errorf("snapshot: invalid timing delay=%v offset=%v max=%v",
			opts.SnapshotDelay, opts.PlaybackOffset, opts.MaxPlayback)
	}
	return &Capturer{contexts: contexts, opts: opts}, nil
}

// Capture decodes blob and reads one analyser frame SnapshotDelay after
// playback starts. See the package documentation for the possible outcomes.
// The processing context is closed before Capture returns, whatever the
// outcome.
func (c *Capturer) Capture(ctx context.Context, blob Blob) (FrequencySnapshot, error) {
	actx, err := c.contexts.NewContext()
	if err != nil {
		return FrequencySnapshot{}, fmt.Errorf("snapshot: acquire audio context: %w", err)
	}
	defer actx.Close()

	buf, err := actx.DecodeAudioData(blob.Data, blob.MediaType)
	if err != nil {
		if errors.Is(err, audioctx.ErrContextClosed) {
			return FrequencySnapshot{}, ErrSkipped
		}
		applog.Warnf("Snapshot: decode failed (%d bytes, %q): %v", len(blob.Data), blob.MediaType, err)
		return diagnostic(DecodeErrorMessage), nil
	}
	if ctx.Err() != nil || actx.IsClosed() {
		return FrequencySnapshot{}, ErrSkipped
	}

	analyser, err := actx.CreateAnalyser(c.opts.Analyser)
	if err != nil {
		return c.graphFailure(err)
	}
	source, err := actx.CreateBufferSource(buf)
	if err != nil {
		return c.graphFailure(err)
	}
	if err := source.Connect(analyser); err != nil {
		return c.graphFailure(err)
	}

	offset := min(c.opts.PlaybackOffset, buf.Duration())
	if err := source.Start(offset, c.opts.MaxPlayback); err != nil {
		return c.graphFailure(err)
	}
	applog.Debugf("Snapshot: context %d playing %v of audio from %v (%d Hz, %d ch)",
		actx.ID(), buf.Duration(), offset, buf.SampleRate, buf.NumChannels())

	select {
	case <-ctx.Done():
		applog.Debugf("Snapshot: context %d cancelled before read", actx.ID())
		return FrequencySnapshot{}, ErrSkipped
	case <-actx.Done():
		return FrequencySnapshot{}, ErrSkipped
	case <-actx.Clock().After(c.opts.SnapshotDelay):
	}

	mags := make([]uint8, analyser.FrequencyBinCount())
	if err := analyser.ByteFrequencyData(mags); err != nil {
		return c.graphFailure(err)
	}
	source.Stop()
	actx.Close()

	if allZero(mags) {
		applog.Infof("Snapshot: analyser output is silent")
		return diagnostic(SilenceMessage), nil
	}

	snap := FrequencySnapshot{Magnitudes: mags, SampleRate: buf.SampleRate}
	applog.Debugf("Snapshot: %s", snap)
	return snap, nil
}

// graphFailure maps node errors. A closed context means the capture was
// disposed mid-flight; anything else is a graph that could not be built,
// which only a bad Options value can cause after NewCapturer.
func (c *Capturer) graphFailure(err error) (FrequencySnapshot, error) {
	if errors.Is(err, audioctx.ErrContextClosed) {
		return FrequencySnapshot{}, ErrSkipped
	}
	return FrequencySnapshot{}, fmt.Errorf("snapshot: build graph: %w", err)
}

func allZero(b []uint8) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
