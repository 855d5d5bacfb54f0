// SPDX-License-Identifier: MIT
/*
Package snapshot captures one steady-state frequency snapshot of an audio
blob: decode, play a short window through an analyser, read it once, and
release every resource.

A capture ends in exactly one of three ways:
  - usable data (non-empty magnitudes, positive sample rate)
  - a diagnostic-only snapshot (decode failure or silence)
  - ErrSkipped, when the capture was cancelled or its context disposed
    before the read. Callers treat ErrSkipped as "publish nothing".

Construction failure of the processing context is the only error surfaced
to the caller as an error of its own.
*/
package snapshot

import (
	"errors"
	"fmt"
)

// User-facing diagnostics. They are stable strings; callers render them verbatim.
const (
	DecodeErrorMessage = "Error decoding audio file."
	SilenceMessage     = "Could not visualize audio: sample may be silent."
)

var (
	// ErrSkipped reports that a capture was abandoned before it produced
	// a result. Nothing should be published.
	ErrSkipped = errors.New("snapshot skipped")

	ErrSessionClosed = errors.New("snapshot session closed")
)

// FrequencySnapshot is one analyser read. Either Magnitudes is non-empty and
// SampleRate positive, or DiagnosticMessage explains why there is no data.
type FrequencySnapshot struct {
	Magnitudes        []uint8 `json:"magnitudes"`
	SampleRate        int     `json:"sampleRate"`
	DiagnosticMessage string  `json:"diagnosticMessage,omitempty"`
}

// Usable reports whether the snapshot carries chartable data.
func (s FrequencySnapshot) Usable() bool {
	return len(s.Magnitudes) > 0 && s.SampleRate > 0
}

// BinFrequency returns the centre frequency of bin i: i·R/(2N) where N is
// the number of bins.
func (s FrequencySnapshot) BinFrequency(i int) float64 {
	if len(s.Magnitudes) == 0 {
		return 0
	}
	return float64(i) * float64(s.SampleRate) / float64(2*len(s.Magnitudes))
}

// Peak returns the bin index and value of the loudest bin.
func (s FrequencySnapshot) Peak() (int, uint8) {
	bin, peak := 0, uint8(0)
	for i, v := range s.Magnitudes {
		if v > peak {
			bin, peak = i, v
		}
	}
	return bin, peak
}

func (s FrequencySnapshot) String() string {
	if !s.Usable() {
		return fmt.Sprintf("snapshot{diagnostic=%q}", s.DiagnosticMessage)
	}
	bin, peak := s.Peak()
	return fmt.Sprintf("snapshot{bins=%d rate=%d peak=%.0fHz/%d}",
		len(s.Magnitudes), s.SampleRate, s.BinFrequency(bin), peak)
}

func diagnostic(msg string) FrequencySnapshot {
	return FrequencySnapshot{DiagnosticMessage: msg}
}

// Blob is an encoded audio payload plus its declared media type, which may
// be empty.
type Blob struct {
	Data      []byte
	MediaType string
}
