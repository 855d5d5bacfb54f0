// SPDX-License-Identifier: MIT
/*
Package audio records short voice samples from a PortAudio input device
into an in-memory WAV blob.

Thread Safety:
  - The PortAudio callback owns the capture buffer while recording; state
    flags are atomic
  - Buffers are pre-allocated for the full recording so the callback never
    allocates
  - The callback locks its OS thread while it runs

Nothing is written to disk: the blob lives only as long as the caller
keeps it.
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"

	"voiceeq/internal/config"
	applog "voiceeq/internal/log"
	"voiceeq/pkg/utils"
)

// ErrAlreadyRecording is returned by StartRecording while a take is open.
var ErrAlreadyRecording = errors.New("already recording")

// Recorded blobs are 16-bit PCM, which is plenty for a voice snapshot.
const recordBitDepth = 16

type Recorder struct {
	cfg config.AudioConfig

	// Audio input handling.
	inputBuffer  []int32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Noise gate, used here only to flag silent takes.
	gateEnabled   bool
	gateThreshold int32 // Absolute amplitude threshold (0-2147483647)
	gateOpened    int32
	peak          int32

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	captured    []int32
	written     int64 // Samples in captured, atomic
}

// NewRecorder opens nothing yet; it resolves the input device and sizes the
// capture buffer for cfg.RecordDuration. PortAudio must be initialised.
func NewRecorder(cfg config.AudioConfig) (*Recorder, error) {
	inputDevice, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}

	r := newRecorder(cfg)
	r.inputDevice = inputDevice
	if cfg.LowLatency {
		r.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		r.inputLatency = inputDevice.DefaultHighInputLatency
	}
	return r, nil
}

func newRecorder(cfg config.AudioConfig) *Recorder {
	samples := int(cfg.RecordDuration.Seconds()*cfg.SampleRate) * cfg.InputChannels
	r := &Recorder{
		cfg:         cfg,
		inputBuffer: make([]int32, cfg.FramesPerBuffer*cfg.InputChannels),
		captured:    make([]int32, samples),
		gateEnabled: true,
	}
	r.SetGateThreshold(cfg.GateThreshold)
	return r
}

func (r *Recorder) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: r.cfg.InputChannels,
			Device:   r.inputDevice,
			Latency:  r.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: r.cfg.FramesPerBuffer,
		SampleRate:      r.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, r.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	r.inputStream = stream

	if err := r.inputStream.Start(); err != nil {
		r.inputStream.Close()
		r.inputStream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	return nil
}

func (r *Recorder) StopInputStream() error {
	if r.inputStream == nil {
		return nil
	}
	if err := r.inputStream.Stop(); err != nil {
		return err
	}
	if err := r.inputStream.Close(); err != nil {
		return err
	}
	r.inputStream = nil
	return nil
}

// processInputStream is the PortAudio callback. It must not allocate.
func (r *Recorder) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	n := copy(r.inputBuffer, in)
	buffer := r.inputBuffer[:n]

	if atomic.LoadInt32(&r.isRecording) == 0 {
		return
	}
	r.updateGate(buffer)

	w := atomic.LoadInt64(&r.written)
	c := copy(r.captured[w:], buffer)
	atomic.StoreInt64(&r.written, w+int64(c))
}

// StartRecording resets the capture buffer and starts accepting input.
func (r *Recorder) StartRecording() error {
	if !atomic.CompareAndSwapInt32(&r.isRecording, 0, 1) {
		return ErrAlreadyRecording
	}
	atomic.StoreInt64(&r.written, 0)
	atomic.StoreInt32(&r.gateOpened, 0)
	atomic.StoreInt32(&r.peak, 0)
	return nil
}

// StopRecording stops accepting input. Stopping twice is harmless.
func (r *Recorder) StopRecording() {
	atomic.StoreInt32(&r.isRecording, 0)
}

// Full reports whether the capture buffer has no room left.
func (r *Recorder) Full() bool {
	return atomic.LoadInt64(&r.written) >= int64(len(r.captured))
}

// Recorded returns the duration captured so far.
func (r *Recorder) Recorded() time.Duration {
	frames := atomic.LoadInt64(&r.written) / int64(max(r.cfg.InputChannels, 1))
	return time.Duration(frames) * time.Second / time.Duration(r.cfg.SampleRate)
}

// Encode returns the captured take as a 16-bit WAV.
func (r *Recorder) Encode() ([]byte, error) {
	n := atomic.LoadInt64(&r.written)
	data := make([]int, n)
	for i, s := range r.captured[:n] {
		data[i] = int(s >> (32 - recordBitDepth))
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: r.cfg.InputChannels,
			SampleRate:  int(r.cfg.SampleRate),
		},
		Data:           data,
		SourceBitDepth: recordBitDepth,
	}
	return utils.EncodeWAV(buf, recordBitDepth)
}

// Record captures up to d of input, stopping early if ctx is done, and
// returns the take as WAV bytes.
func (r *Recorder) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	if err := r.StartRecording(); err != nil {
		return nil, err
	}
	if err := r.StartInputStream(); err != nil {
		r.StopRecording()
		return nil, err
	}

	applog.Infof("Recording for %v from %s...", d, r.inputDevice.Name)
	ticker := time.NewTicker(50 * time.Millisecond)
	deadline := time.NewTimer(d)
	defer ticker.Stop()
	defer deadline.Stop()

wait:
	for {
		select {
		case <-ctx.Done():
			applog.Infof("Recording interrupted")
			break wait
		case <-deadline.C:
			break wait
		case <-ticker.C:
			if r.Full() {
				break wait
			}
		}
	}

	r.StopRecording()
	if err := r.StopInputStream(); err != nil {
		return nil, err
	}

	applog.Infof("Recorded %v (peak %.1f%% of full scale)", r.Recorded(), r.Peak()*100)
	if !r.GateOpened() {
		applog.Warnf("Recording never rose above the gate threshold (%.4f); it may be silent", r.GetGateThreshold())
	}
	return r.Encode()
}

// Close stops the stream if it is still open.
func (r *Recorder) Close() error {
	r.StopRecording()
	return r.StopInputStream()
}
