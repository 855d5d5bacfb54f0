// SPDX-License-Identifier: MIT
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
)

const (
	beepChunk = 4096
	// Stream lengths come from the file's own headers; preallocation stops
	// here and anything longer grows by append.
	maxPreallocFrames = 1 << 20
)

var (
	mp3Decoder = DecoderFunc(func(data []byte) (*Buffer, error) {
		s, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
		if err != nil {
			return nil, err
		}
		return drainStreamer(s, format)
	})

	flacDecoder = DecoderFunc(func(data []byte) (*Buffer, error) {
		if err := checkFLAC(data); err != nil {
			return nil, err
		}
		s, format, err := flac.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return drainStreamer(s, format)
	})

	vorbisDecoder = DecoderFunc(func(data []byte) (*Buffer, error) {
		s, format, err := vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
		if err != nil {
			return nil, err
		}
		return drainStreamer(s, format)
	})
)

// FLAC metadata: "fLaC", then blocks with a one byte header (last-block
// flag and type) and a 24-bit big-endian length. STREAMINFO comes first.
const (
	flacMarkerSize      = 4
	flacBlockHeaderSize = 4
	flacStreamInfoSize  = 34
	flacBlockInvalid    = 127
)

// checkFLAC walks the metadata block headers. The flac decoder allocates
// what a block declares, so lengths past the end of the blob are rejected.
func checkFLAC(data []byte) error {
	if len(data) < flacMarkerSize || string(data[:flacMarkerSize]) != "fLaC" {
		return fmt.Errorf("%w: missing fLaC marker", ErrInvalidData)
	}

	for off, first := flacMarkerSize, true; ; first = false {
		if off+flacBlockHeaderSize > len(data) {
			return fmt.Errorf("%w: truncated metadata block header", ErrInvalidData)
		}
		head := data[off]
		last := head&0x80 != 0
		kind := head & 0x7f
		length := int(data[off+1])<<16 | int(data[off+2])<<8 | int(data[off+3])
		body := off + flacBlockHeaderSize

		switch {
		case kind == flacBlockInvalid:
			return fmt.Errorf("%w: invalid metadata block type", ErrInvalidData)
		case first && (kind != 0 || length != flacStreamInfoSize):
			return fmt.Errorf("%w: first metadata block is not STREAMINFO", ErrInvalidData)
		case length > len(data)-body:
			return fmt.Errorf("%w: metadata block declares %d bytes, %d left", ErrInvalidData, length, len(data)-body)
		}

		off = body + length
		if last {
			return nil
		}
	}
}

// drainStreamer reads a beep stream to the end. beep always yields stereo
// pairs; mono sources carry the same value in both slots, so only the left
// slot is kept for them.
func drainStreamer(s beep.StreamSeekCloser, format beep.Format) (*Buffer, error) {
	defer s.Close()

	channels := format.NumChannels
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, channels)
	}

	out := make([][]float32, channels)
	if n := min(s.Len(), maxPreallocFrames); n > 0 {
		for c := range out {
			out[c] = make([]float32, 0, n)
		}
	}

	chunk := make([][2]float64, beepChunk)
	for {
		n, ok := s.Stream(chunk)
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				out[c] = append(out[c], float32(chunk[i][c]))
			}
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	return &Buffer{Channels: out, SampleRate: int(format.SampleRate)}, nil
}
