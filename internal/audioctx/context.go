// SPDX-License-Identifier: MIT
/*
Package audioctx implements a minimal offline audio-processing graph: a
Host hands out scoped Contexts, a Context decodes blobs and creates a
BufferSource feeding an Analyser, and the Analyser reads a byte-frequency
snapshot of whatever the source has "played" so far on the Context's clock.

Nothing is sent to an output device. Playback is a position derived from
the clock, so a snapshot taken 100 ms after Start sees the 2048 frames that
precede the 100 ms mark.

Lifecycle:
  - Host.NewContext fails with ErrContextUnavailable when the host is
    closed or its live-context limit is reached.
  - Context.Close is idempotent; the host slot is released exactly once.
  - Every node method on a closed Context returns ErrContextClosed.
*/
package audioctx

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"voiceeq/internal/decode"
	applog "voiceeq/internal/log"
)

var (
	ErrContextUnavailable = errors.New("audio context unavailable")
	ErrContextClosed      = errors.New("audio context closed")
	ErrAlreadyStarted     = errors.New("buffer source already started")
)

// Clock abstracts time so captures can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

// Decoder is the decoding capability a Host delegates to. *decode.Registry
// satisfies it.
type Decoder interface {
	Decode(data []byte, mediaType string) (*decode.Buffer, error)
}

// Host creates processing contexts and bounds how many may be live.
type Host struct {
	decoder     Decoder
	clock       Clock
	maxContexts int

	mu     sync.Mutex
	live   int
	closed bool
	nextID uint64
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithClock replaces the wall clock.
func WithClock(c Clock) HostOption {
	return func(h *Host) { h.clock = c }
}

// WithMaxContexts bounds the number of simultaneously open contexts.
func WithMaxContexts(n int) HostOption {
	return func(h *Host) { h.maxContexts = n }
}

// NewHost returns a host that decodes with decoder. By default one context
// may be open at a time.
func NewHost(decoder Decoder, opts ...HostOption) *Host {
	h := &Host{
		decoder:     decoder,
		clock:       SystemClock(),
		maxContexts: 1,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.maxContexts < 1 {
		h.maxContexts = 1
	}
	return h
}

// NewContext acquires a context slot.
func (h *Host) NewContext() (*Context, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, fmt.Errorf("%w: host closed", ErrContextUnavailable)
	}
	if h.live >= h.maxContexts {
		return nil, fmt.Errorf("%w: %d of %d contexts in use", ErrContextUnavailable, h.live, h.maxContexts)
	}

	h.live++
	h.nextID++
	c := &Context{
		host: h,
		id:   h.nextID,
		done: make(chan struct{}),
	}
	applog.Debugf("AudioContext %d: opened (%d live)", c.id, h.live)
	return c, nil
}

// Live returns the number of open contexts.
func (h *Host) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.live
}

// Close refuses further contexts. Open contexts stay usable until closed.
func (h *Host) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}

func (h *Host) release(id uint64) {
	h.mu.Lock()
	h.live--
	live := h.live
	h.mu.Unlock()
	applog.Debugf("AudioContext %d: closed (%d live)", id, live)
}

// Context owns one processing graph for the duration of a capture.
type Context struct {
	host *Host
	id   uint64

	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once

	mu      sync.Mutex
	sources []*BufferSource
}

// ID identifies the context in logs.
func (c *Context) ID() uint64 { return c.id }

// Clock returns the clock the graph is timed against.
func (c *Context) Clock() Clock { return c.host.clock }

// Done is closed when the context is closed.
func (c *Context) Done() <-chan struct{} { return c.done }

// IsClosed reports whether Close has been called.
func (c *Context) IsClosed() bool { return c.closed.Load() }

// DecodeAudioData decodes a blob. Decoding is not interruptible; closing the
// context while it runs only affects what happens afterwards.
func (c *Context) DecodeAudioData(data []byte, mediaType string) (*decode.Buffer, error) {
	if c.IsClosed() {
		return nil, ErrContextClosed
	}
	return c.host.decoder.Decode(data, mediaType)
}

// CreateBufferSource returns an unstarted source playing buf.
func (c *Context) CreateBufferSource(buf *decode.Buffer) (*BufferSource, error) {
	if c.IsClosed() {
		return nil, ErrContextClosed
	}
	if buf == nil || buf.SampleRate <= 0 {
		return nil, fmt.Errorf("buffer source: %w", decode.ErrInvalidData)
	}

	s := newBufferSource(c, buf)
	c.mu.Lock()
	c.sources = append(c.sources, s)
	c.mu.Unlock()
	return s, nil
}

// CreateAnalyser returns an analyser with the given options.
func (c *Context) CreateAnalyser(opts AnalyserOptions) (*Analyser, error) {
	if c.IsClosed() {
		return nil, ErrContextClosed
	}
	return newAnalyser(c, opts)
}

// Close stops every source and releases the host slot. Only the first call
// has any effect.
func (c *Context) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)

		c.mu.Lock()
		sources := c.sources
		c.sources = nil
		c.mu.Unlock()
		for _, s := range sources {
			s.Stop()
		}

		close(c.done)
		c.host.release(c.id)
	})
	return nil
}
