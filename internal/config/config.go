// SPDX-License-Identifier: MIT
package config

import "time"

// Defaults for every tunable the program exposes. The analyser values mirror
// the byte-frequency conventions of a browser AnalyserNode so that snapshots
// taken here line up with charts drawn from a browser recording.
const (
	// Analyser
	DefaultFFTSize               = 2048 // 1024 bins
	DefaultSmoothingTimeConstant = 0.8
	DefaultMinDecibels           = -100.0
	DefaultMaxDecibels           = -30.0
	DefaultSnapshotDelay         = 100 * time.Millisecond // empirical, not validated for all rates
	DefaultPlaybackOffset        = 100 * time.Millisecond
	DefaultMaxPlayback           = 5 * time.Second
	DefaultMaxContexts           = 1

	// Chart
	DefaultChartWidth   = 800
	DefaultChartHeight  = 300
	DefaultMarginTop    = 20
	DefaultMarginRight  = 30
	DefaultMarginBottom = 40
	DefaultMarginLeft   = 50
	DefaultBoostColor   = "#22c55e"
	DefaultCutColor     = "#ef4444"
	DefaultNeutralColor = "#60a5fa"

	// Recording
	DefaultDeviceID        = MinDeviceID
	DefaultSampleRate      = 44100
	DefaultChannels        = 1
	DefaultFramesPerBuffer = 512
	DefaultRecordDuration  = 3 * time.Second
	DefaultGateThreshold   = 0.001

	// Transport
	DefaultWebSocketAddress = ":8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPRepeat        = time.Second

	// Limits
	MinDeviceID   = -1 // system default device
	MinFFTSize    = 32
	MaxFFTSize    = 32768
	MinSampleRate = 8000
	MaxSampleRate = 192000
)
