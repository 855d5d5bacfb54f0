// SPDX-License-Identifier: MIT
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-audio/wav"
)

type wavDecoder struct{}

// RIFF layout: "RIFF", uint32 size, "WAVE", then chunks of a four byte id,
// a little-endian uint32 size and a body padded to an even length.
const (
	riffHeaderSize  = 12
	chunkHeaderSize = 8
	fmtChunkMinSize = 16
)

// checkRIFF walks the chunk headers before go-audio/wav sees the blob. The
// decoder allocates whatever a chunk declares, so a chunk that claims more
// bytes than the blob holds is rejected here.
func checkRIFF(data []byte) error {
	if len(data) < riffHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidData)
	}

	var sawFmt, sawData bool
	for off := riffHeaderSize; off+chunkHeaderSize <= len(data); {
		id := string(data[off : off+4])
		size := binary.LittleEndian.Uint32(data[off+4 : off+8])
		body := off + chunkHeaderSize
		if uint64(size) > uint64(len(data)-body) {
			return fmt.Errorf("%w: %q chunk declares %d bytes, %d left", ErrInvalidData, id, size, len(data)-body)
		}

		switch id {
		case "fmt ":
			if size < fmtChunkMinSize {
				return fmt.Errorf("%w: fmt chunk is %d bytes", ErrInvalidData, size)
			}
			channels := binary.LittleEndian.Uint16(data[body+2 : body+4])
			depth := binary.LittleEndian.Uint16(data[body+14 : body+16])
			if channels == 0 || depth == 0 || depth > 32 || depth%8 != 0 {
				return fmt.Errorf("%w: %d channels at %d bits", ErrInvalidData, channels, depth)
			}
			sawFmt = true
		case "data":
			if !sawFmt {
				return fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidData)
			}
			sawData = true
		}
		off = body + int(size) + int(size&1)
	}

	if !sawFmt || !sawData {
		return fmt.Errorf("%w: missing fmt or data chunk", ErrInvalidData)
	}
	return nil
}

func (wavDecoder) Decode(data []byte) (*Buffer, error) {
	if err := checkRIFF(data); err != nil {
		return nil, err
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a PCM wav file", ErrInvalidData)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pcm.Format == nil || pcm.Format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: missing wav format", ErrInvalidData)
	}

	depth := pcm.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}
	if depth < 8 || depth > 32 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d", ErrUnsupportedFormat, depth)
	}

	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels
	scale := 1 / float32(int64(1)<<(depth-1))

	// 8-bit wav is unsigned; everything wider is two's complement.
	bias := 0
	if depth == 8 {
		bias = 128
	}

	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		base := i * channels
		for c := 0; c < channels; c++ {
			out[c][i] = float32(pcm.Data[base+c]-bias) * scale
		}
	}

	return &Buffer{Channels: out, SampleRate: pcm.Format.SampleRate}, nil
}
