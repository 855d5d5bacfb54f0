// SPDX-License-Identifier: MIT
package decode

import (
	"fmt"
	"time"
)

// Buffer is decoded linear PCM: one sample slice per channel, all of equal
// length, in the range [-1, 1]. A Buffer is never modified after decoding.
type Buffer struct {
	Channels   [][]float32
	SampleRate int
}

// NumChannels returns the number of channels.
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// Frames returns the number of sample frames per channel.
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// validate rejects buffers a decoder should never hand out.
func (b *Buffer) validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidData, b.SampleRate)
	}
	if len(b.Channels) == 0 || b.Frames() == 0 {
		return fmt.Errorf("%w: no audio frames", ErrInvalidData)
	}
	frames := b.Frames()
	for i, ch := range b.Channels {
		if len(ch) != frames {
			return fmt.Errorf("%w: channel %d has %d frames, want %d", ErrInvalidData, i, len(ch), frames)
		}
	}
	return nil
}
