// SPDX-License-Identifier: MIT
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"
)

const (
	// libopusfile always decodes at 48 kHz.
	opusSampleRate = 48000
	// 120 ms at 48 kHz, the largest Opus frame.
	opusMaxFrame = 5760
)

type opusDecoder struct{}

func (opusDecoder) Decode(data []byte) (*Buffer, error) {
	channels, err := opusChannels(data)
	if err != nil {
		return nil, err
	}

	s, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer s.Close()

	out := make([][]float32, channels)
	pcm := make([]int16, opusMaxFrame*channels)
	for {
		n, err := s.Read(pcm)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for i := 0; i < n; i++ {
			base := i * channels
			for c := 0; c < channels; c++ {
				out[c] = append(out[c], float32(pcm[base+c])/32768)
			}
		}
	}

	return &Buffer{Channels: out, SampleRate: opusSampleRate}, nil
}

// opusChannels reads the output channel count from the OpusHead packet:
// "OpusHead", version byte, channel count byte.
func opusChannels(data []byte) (int, error) {
	head := data[:min(len(data), oggHeaderScan)]
	idx := bytes.Index(head, []byte("OpusHead"))
	if idx < 0 || idx+9 >= len(data) {
		return 0, fmt.Errorf("%w: missing OpusHead", ErrInvalidData)
	}
	channels := int(data[idx+9])
	if channels < 1 {
		return 0, fmt.Errorf("%w: OpusHead reports %d channels", ErrInvalidData, channels)
	}
	return channels, nil
}
