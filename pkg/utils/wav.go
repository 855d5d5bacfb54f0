// SPDX-License-Identifier: MIT
package utils

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteSeeker is an in-memory io.WriteSeeker. The wav encoder seeks back to
// patch chunk sizes on Close, so a plain bytes.Buffer is not enough.
type WriteSeeker struct {
	buf []byte
	pos int
}

func (w *WriteSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > len(w.buf) {
		if end > cap(w.buf) {
			grown := make([]byte, end, max(end, 2*cap(w.buf)))
			copy(grown, w.buf)
			w.buf = grown
		} else {
			w.buf = w.buf[:end]
		}
	}
	copy(w.buf[w.pos:], p)
	w.pos = end
	return len(p), nil
}

func (w *WriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative seek position")
	}
	w.pos = int(abs)
	return abs, nil
}

// Bytes returns the written data.
func (w *WriteSeeker) Bytes() []byte {
	return w.buf
}

// EncodeWAV encodes an interleaved integer buffer as a PCM wav file in memory.
func EncodeWAV(buf *audio.IntBuffer, bitDepth int) ([]byte, error) {
	if buf == nil || buf.Format == nil {
		return nil, errors.New("wav: buffer has no format")
	}
	ws := &WriteSeeker{}
	enc := wav.NewEncoder(ws, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("wav: write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav: close: %w", err)
	}
	return ws.Bytes(), nil
}

// FloatsToIntBuffer interleaves per-channel float samples in [-1, 1] into
// an IntBuffer at the given bit depth.
func FloatsToIntBuffer(channels [][]float64, sampleRate, bitDepth int) *audio.IntBuffer {
	numCh := len(channels)
	frames := 0
	if numCh > 0 {
		frames = len(channels[0])
	}
	full := float64(int64(1)<<(bitDepth-1) - 1)

	data := make([]int, frames*numCh)
	for i := 0; i < frames; i++ {
		for c := 0; c < numCh; c++ {
			v := math.Max(-1, math.Min(1, channels[c][i]))
			data[i*numCh+c] = int(math.Round(v * full))
		}
	}

	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numCh, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
}

// SineWAV returns a mono 16-bit wav of a sine tone, used by tests across
// the decode and snapshot packages.
func SineWAV(frames, sampleRate int, frequency, amplitude float64) []byte {
	tone := GenerateSineWave(frames, float64(sampleRate), frequency, amplitude)
	data, err := EncodeWAV(FloatsToIntBuffer([][]float64{tone}, sampleRate, 16), 16)
	if err != nil {
		panic("utils: encoding sine wav: " + err.Error())
	}
	return data
}
