// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"voiceeq/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug logging.
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Microphone recording settings.
	Analyser  AnalyserConfig  `yaml:"analyser"`  // Snapshot analyser settings.
	Chart     ChartConfig     `yaml:"chart"`     // Chart geometry and colours.
	Transport TransportConfig `yaml:"transport"` // Display bridge settings.
}

// AudioConfig holds settings for recording a sample from an input device.
type AudioConfig struct {
	InputDevice     int           `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64       `yaml:"sample_rate"`       // Recording sample rate in Hz.
	InputChannels   int           `yaml:"input_channels"`    // 1 for mono, 2 for stereo.
	FramesPerBuffer int           `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	LowLatency      bool          `yaml:"low_latency"`       // Request the device's low input latency.
	RecordDuration  time.Duration `yaml:"record_duration"`   // How long the record command listens.
	GateThreshold   float64       `yaml:"gate_threshold"`    // Peak level (0-1) below which a recording is reported as silent.
}

// AnalyserConfig holds the snapshot analyser settings.
type AnalyserConfig struct {
	FFTSize               int           `yaml:"fft_size"`                // Analyser window, power of two.
	SmoothingTimeConstant float64       `yaml:"smoothing_time_constant"` // 0-1, weight of the previous frame.
	MinDecibels           float64       `yaml:"min_decibels"`            // Maps to byte 0.
	MaxDecibels           float64       `yaml:"max_decibels"`            // Maps to byte 255.
	SnapshotDelay         time.Duration `yaml:"snapshot_delay"`          // Delay between playback start and the snapshot read.
	PlaybackOffset        time.Duration `yaml:"playback_offset"`         // Offset into the sample where playback starts.
	MaxPlayback           time.Duration `yaml:"max_playback"`            // Upper bound on played duration.
	MaxContexts           int           `yaml:"max_contexts"`            // Live processing contexts the host allows.
}

// ChartConfig holds the default surface size and colours for rendered charts.
type ChartConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	MarginTop    int    `yaml:"margin_top"`
	MarginRight  int    `yaml:"margin_right"`
	MarginBottom int    `yaml:"margin_bottom"`
	MarginLeft   int    `yaml:"margin_left"`
	BoostColor   string `yaml:"boost_color"`
	CutColor     string `yaml:"cut_color"`
	NeutralColor string `yaml:"neutral_color"`
}

// TransportConfig holds settings for sending layouts and snapshots to displays.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve layouts to browser clients.
	WebSocketAddress string        `yaml:"websocket_address"`  // Listen address, e.g. ":8080".
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send the snapshot as a UDP datagram.
	UDPTargetAddress string        `yaml:"udp_target_address"` // e.g. "127.0.0.1:9090".
	UDPRepeat        time.Duration `yaml:"udp_repeat"`         // Re-send the latest snapshot this often while serving; 0 disables.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			InputChannels:   DefaultChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
			RecordDuration:  DefaultRecordDuration,
			GateThreshold:   DefaultGateThreshold,
		},
		Analyser: AnalyserConfig{
			FFTSize:               DefaultFFTSize,
			SmoothingTimeConstant: DefaultSmoothingTimeConstant,
			MinDecibels:           DefaultMinDecibels,
			MaxDecibels:           DefaultMaxDecibels,
			SnapshotDelay:         DefaultSnapshotDelay,
			PlaybackOffset:        DefaultPlaybackOffset,
			MaxPlayback:           DefaultMaxPlayback,
			MaxContexts:           DefaultMaxContexts,
		},
		Chart: ChartConfig{
			Width:        DefaultChartWidth,
			Height:       DefaultChartHeight,
			MarginTop:    DefaultMarginTop,
			MarginRight:  DefaultMarginRight,
			MarginBottom: DefaultMarginBottom,
			MarginLeft:   DefaultMarginLeft,
			BoostColor:   DefaultBoostColor,
			CutColor:     DefaultCutColor,
			NeutralColor: DefaultNeutralColor,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWebSocketAddress,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPRepeat:        DefaultUDPRepeat,
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{
			"config.yaml",
			"voiceeq.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment wins over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the ranges the analyser and chart depend on.
func (c *Config) Validate() error {
	var errs []error

	a := c.Analyser
	if !bitint.IsPowerOfTwo(a.FFTSize) || a.FFTSize < MinFFTSize || a.FFTSize > MaxFFTSize {
		errs = append(errs, fmt.Errorf("analyser.fft_size must be a power of 2 in [%d, %d], got %d", MinFFTSize, MaxFFTSize, a.FFTSize))
	}
	if a.SmoothingTimeConstant < 0 || a.SmoothingTimeConstant > 1 {
		errs = append(errs, fmt.Errorf("analyser.smoothing_time_constant must be in [0, 1], got %g", a.SmoothingTimeConstant))
	}
	if a.MinDecibels >= a.MaxDecibels {
		errs = append(errs, fmt.Errorf("analyser.min_decibels (%g) must be below max_decibels (%g)", a.MinDecibels, a.MaxDecibels))
	}
	if a.SnapshotDelay <= 0 {
		errs = append(errs, fmt.Errorf("analyser.snapshot_delay must be positive, got %s", a.SnapshotDelay))
	}
	if a.PlaybackOffset < 0 || a.MaxPlayback <= 0 {
		errs = append(errs, fmt.Errorf("analyser.playback_offset must be >= 0 and max_playback > 0"))
	}
	if a.MaxContexts < 1 {
		errs = append(errs, fmt.Errorf("analyser.max_contexts must be at least 1, got %d", a.MaxContexts))
	}

	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		errs = append(errs, fmt.Errorf("chart size must be positive, got %dx%d", c.Chart.Width, c.Chart.Height))
	}

	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be in [%d, %d], got %g", MinSampleRate, MaxSampleRate, c.Audio.SampleRate))
	}
	if c.Audio.InputChannels < 1 || c.Audio.InputChannels > 2 {
		errs = append(errs, fmt.Errorf("audio.input_channels must be 1 or 2, got %d", c.Audio.InputChannels))
	}
	if c.Audio.InputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, c.Audio.InputDevice))
	}

	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddress == "" {
		errs = append(errs, errors.New("transport.udp_target_address must be set when UDP is enabled"))
	}
	if c.Transport.UDPRepeat < 0 {
		errs = append(errs, fmt.Errorf("transport.udp_repeat must not be negative, got %s", c.Transport.UDPRepeat))
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		errs = append(errs, errors.New("transport.websocket_address must be set when the WebSocket bridge is enabled"))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides reads ENV_* variables. Values that fail to parse are
// ignored so a typo in the environment never hides the file's setting.
func (c *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok && val != "" {
		c.LogLevel = val
	}
	// ENV_SNAPSHOT_DELAY
	if val, ok := os.LookupEnv("ENV_SNAPSHOT_DELAY"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Analyser.SnapshotDelay = dur
		}
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok && val != "" {
		c.Transport.WebSocketAddress = val
	}
	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	// ENV_UDP_REPEAT
	if val, ok := os.LookupEnv("ENV_UDP_REPEAT"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPRepeat = dur
		}
	}
}
