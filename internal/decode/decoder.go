// SPDX-License-Identifier: MIT
/*
Package decode turns an uploaded or recorded audio blob into linear PCM.

Supported containers:
  - WAV (PCM) via go-audio/wav
  - MP3, FLAC and Ogg Vorbis via beep
  - Ogg Opus via libopusfile

The container is sniffed from the leading bytes first; the declared media
type is only used when sniffing is inconclusive. WebM/Matroska, the default
of many browser recorders, is recognised and rejected as unsupported.
*/
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strings"
	"sync"

	applog "voiceeq/internal/log"
)

var (
	ErrInvalidData       = errors.New("invalid audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Format names a container/codec pair the registry can decode.
type Format string

const (
	FormatUnknown Format = ""
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatVorbis  Format = "vorbis"
	FormatOpus    Format = "opus"
	FormatWebM    Format = "webm"
)

// Decoder decodes one container format.
type Decoder interface {
	Decode(data []byte) (*Buffer, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(data []byte) (*Buffer, error)

func (f DecoderFunc) Decode(data []byte) (*Buffer, error) { return f(data) }

// Registry maps formats to decoders. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[Format]Decoder
}

// NewRegistry returns a registry with every built-in decoder registered.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[Format]Decoder)}
	r.Register(FormatWAV, wavDecoder{})
	r.Register(FormatMP3, mp3Decoder)
	r.Register(FormatFLAC, flacDecoder)
	r.Register(FormatVorbis, vorbisDecoder)
	r.Register(FormatOpus, opusDecoder{})
	return r
}

// Register installs or replaces the decoder for a format.
func (r *Registry) Register(f Format, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[f] = d
}

// Decode detects the blob's format and decodes it. Failures wrap
// ErrInvalidData or ErrUnsupportedFormat.
func (r *Registry) Decode(data []byte, mediaType string) (*Buffer, error) {
	format, err := Detect(data, mediaType)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	d, ok := r.decoders[format]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no decoder for %s", ErrUnsupportedFormat, format)
	}

	buf, err := decodeRecovered(d, format, data)
	if err != nil {
		if errors.Is(err, ErrInvalidData) || errors.Is(err, ErrUnsupportedFormat) {
			return nil, fmt.Errorf("decode %s: %w", format, err)
		}
		return nil, fmt.Errorf("decode %s: %w: %v", format, ErrInvalidData, err)
	}
	if err := buf.validate(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	applog.Debugf("Decode: %s, %d ch, %d Hz, %s", format, buf.NumChannels(), buf.SampleRate, buf.Duration())
	return buf, nil
}

// decodeRecovered runs d, turning a panic inside a third-party decoder into
// ErrInvalidData.
func decodeRecovered(d Decoder, format Format, data []byte) (buf *Buffer, err error) {
	defer func() {
		if r := recover(); r != nil {
			applog.Debugf("Decode: %s decoder panicked: %v", format, r)
			buf, err = nil, fmt.Errorf("%w: %v", ErrInvalidData, r)
		}
	}()
	return d.Decode(data)
}

// Detect picks the format from magic bytes, falling back to the media type.
func Detect(data []byte, mediaType string) (Format, error) {
	format := sniff(data)
	if format == FormatUnknown {
		format = fromMediaType(mediaType)
	}

	switch format {
	case FormatUnknown:
		if len(data) == 0 {
			return FormatUnknown, fmt.Errorf("%w: empty blob", ErrInvalidData)
		}
		return FormatUnknown, fmt.Errorf("%w: unrecognised data (media type %q)", ErrUnsupportedFormat, mediaType)
	case FormatWebM:
		return format, fmt.Errorf("%w: webm/matroska containers are not decoded", ErrUnsupportedFormat)
	}
	return format, nil
}

const oggHeaderScan = 512

func sniff(data []byte) Format {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(data, []byte("OggS")):
		head := data[:min(len(data), oggHeaderScan)]
		if bytes.Contains(head, []byte("OpusHead")) {
			return FormatOpus
		}
		if bytes.Contains(head, []byte("\x01vorbis")) {
			return FormatVorbis
		}
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatWebM
	}
	return FormatUnknown
}

func fromMediaType(mediaType string) Format {
	if mediaType == "" {
		return FormatUnknown
	}
	base, params, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return FormatUnknown
	}

	switch base {
	case "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return FormatWAV
	case "audio/mpeg", "audio/mp3":
		return FormatMP3
	case "audio/flac", "audio/x-flac":
		return FormatFLAC
	case "audio/opus":
		return FormatOpus
	case "audio/ogg", "application/ogg":
		if strings.Contains(strings.ToLower(params["codecs"]), "opus") {
			return FormatOpus
		}
		return FormatVorbis
	case "audio/webm", "video/webm", "audio/x-matroska":
		return FormatWebM
	}
	return FormatUnknown
}

// MediaTypeForExtension maps a file extension to the media type a browser
// upload would carry.
func MediaTypeForExtension(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "wav", "wave":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "flac":
		return "audio/flac"
	case "ogg", "oga":
		return "audio/ogg"
	case "opus":
		return "audio/ogg; codecs=opus"
	case "webm":
		return "audio/webm"
	}
	return ""
}
