// SPDX-License-Identifier: MIT
package audioctx

import (
	"sync"
	"time"

	"voiceeq/internal/decode"
)

// BufferSource plays a decoded buffer into a connected analyser. Channels
// are averaged to mono once at creation, which is what the analyser sees.
type BufferSource struct {
	ctx  *Context
	rate int
	mono []float32

	mu          sync.Mutex
	started     bool
	stopped     bool
	startedAt   time.Time
	stoppedAt   time.Time
	offsetFrame int
	playFrames  int
}

func newBufferSource(ctx *Context, buf *decode.Buffer) *BufferSource {
	frames := buf.Frames()
	mono := make([]float32, frames)
	if n := buf.NumChannels(); n > 0 {
		inv := 1 / float32(n)
		for _, ch := range buf.Channels {
			for i, v := range ch {
				mono[i] += v * inv
			}
		}
	}
	return &BufferSource{ctx: ctx, rate: buf.SampleRate, mono: mono}
}

// Connect routes the source into an analyser. The analyser is the end of
// the graph; there is no audible destination.
func (s *BufferSource) Connect(a *Analyser) error {
	if s.ctx.IsClosed() {
		return ErrContextClosed
	}
	a.connect(s)
	return nil
}

// Start begins playback now, offset into the buffer, for at most duration.
// The offset is clamped to the buffer length; a source started at the very
// end plays nothing.
func (s *BufferSource) Start(offset, duration time.Duration) error {
	if s.ctx.IsClosed() {
		return ErrContextClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	total := len(s.mono)
	offsetFrame := s.framesFor(offset)
	if offsetFrame < 0 {
		offsetFrame = 0
	}
	if offsetFrame > total {
		offsetFrame = total
	}

	play := total - offsetFrame
	if limit := s.framesFor(duration); duration > 0 && limit < play {
		play = limit
	}

	s.started = true
	s.startedAt = s.ctx.Clock().Now()
	s.offsetFrame = offsetFrame
	s.playFrames = play
	return nil
}

// Stop freezes the playback position. Stopping twice, or stopping an
// unstarted source, is a no-op.
func (s *BufferSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.stopped {
		return
	}
	s.stopped = true
	s.stoppedAt = s.ctx.Clock().Now()
}

// fill writes the len(dst) most recent input frames into dst. Frames before
// Start and after the played region are silence. It reports false, leaving
// dst untouched, if the source never started.
func (s *BufferSource) fill(dst []float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return false
	}

	now := s.ctx.Clock().Now()
	if s.stopped {
		now = s.stoppedAt
	}
	end := s.framesFor(now.Sub(s.startedAt))

	first := end - len(dst)
	for i := range dst {
		t := first + i
		if t < 0 || t >= s.playFrames {
			dst[i] = 0
			continue
		}
		dst[i] = float64(s.mono[s.offsetFrame+t])
	}
	return true
}

func (s *BufferSource) framesFor(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(int64(d) * int64(s.rate) / int64(time.Second))
}
