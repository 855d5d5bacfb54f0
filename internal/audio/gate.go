// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

func (r *Recorder) EnableGate() {
	r.gateEnabled = true
}

func (r *Recorder) DisableGate() {
	r.gateEnabled = false
}

// SetGateThreshold adjusts the noise gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (r *Recorder) SetGateThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	r.gateThreshold = int32(threshold * float64(math.MaxInt32))
}

// GetGateThreshold returns the current noise gate threshold as a float64.
func (r *Recorder) GetGateThreshold() float64 {
	return float64(r.gateThreshold) / float64(math.MaxInt32)
}

// GateOpened reports whether any buffer of the current recording rose
// above the gate threshold. With the gate disabled it is always true.
func (r *Recorder) GateOpened() bool {
	return !r.gateEnabled || atomic.LoadInt32(&r.gateOpened) == 1
}

// Peak returns the largest absolute sample seen in the current recording,
// as a fraction of full scale.
func (r *Recorder) Peak() float64 {
	return float64(atomic.LoadInt32(&r.peak)) / float64(math.MaxInt32)
}

// peakAmplitude returns max(|s|) over buffer without branching per sample.
func peakAmplitude(buffer []int32) int32 {
	var maxAmplitude int32
	for _, sample := range buffer {
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask

		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return maxAmplitude
}

// updateGate folds one buffer into the recording's gate state.
func (r *Recorder) updateGate(buffer []int32) {
	p := peakAmplitude(buffer)
	if p > atomic.LoadInt32(&r.peak) {
		atomic.StoreInt32(&r.peak, p)
	}
	if p > r.gateThreshold {
		atomic.StoreInt32(&r.gateOpened, 1)
	}
}
