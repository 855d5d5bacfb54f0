// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"voiceeq/internal/app"
	"voiceeq/internal/audio"
	"voiceeq/internal/config"
	applog "voiceeq/internal/log"
	"voiceeq/internal/snapshot"
	"voiceeq/internal/spectrum"
	"voiceeq/internal/tui"
	"voiceeq/pkg/build"
)

// Options collects the command line flags.
type Options struct {
	ConfigPath string
	Verbose    bool

	// Chart
	EQPath    string
	SVGPath   string
	PNGPath   string
	TUIMode   bool
	Serve     bool
	UDP       bool
	MediaType string

	// Recording
	DeviceID int
	Duration time.Duration
	Pick     bool
}

// NewRootCommand builds the command tree. ctx is cancelled on interrupt.
func NewRootCommand(ctx context.Context) *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &Options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "f", "",
		"Config file (default: ./config.yaml or ./voiceeq.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"Show verbose output")

	chartFlags := func(c *cobra.Command) {
		c.Flags().StringVarP(&opts.EQPath, "eq", "e", "",
			"Adjustments file (YAML or JSON list of {frequency, gain})")
		c.Flags().StringVar(&opts.SVGPath, "svg", "", "Write the chart as SVG to this path (\"-\" for stdout)")
		c.Flags().StringVar(&opts.PNGPath, "png", "", "Write the chart as PNG to this path")
		c.Flags().BoolVarP(&opts.TUIMode, "tui", "t", false, "Show the chart full screen in the terminal")
		c.Flags().BoolVarP(&opts.Serve, "serve", "s", false,
			"Serve the chart to WebSocket displays until interrupted")
		c.Flags().BoolVarP(&opts.UDP, "udp", "u", false, "Send the snapshot as a UDP datagram")
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Snapshot an audio file's spectrum and chart it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			blob, err := app.LoadBlob(args[0], opts.MediaType)
			if err != nil {
				return err
			}
			return runChart(ctx, cfg, opts, filepath.Base(args[0]), blob)
		},
	}
	chartFlags(analyzeCmd)
	analyzeCmd.Flags().StringVar(&opts.MediaType, "type", "",
		"Media type of the file, e.g. audio/ogg (default: from the extension)")
	rootCmd.AddCommand(analyzeCmd)

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Record a voice sample from the microphone and chart it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("device") {
				cfg.Audio.InputDevice = opts.DeviceID
			}
			if cmd.Flags().Changed("duration") {
				cfg.Audio.RecordDuration = opts.Duration
			}
			blob, err := record(ctx, cfg, opts.Pick)
			if err != nil {
				return err
			}
			return runChart(ctx, cfg, opts, "Recording", blob)
		},
	}
	chartFlags(recordCmd)
	recordCmd.Flags().IntVarP(&opts.DeviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use the 'devices' command to see available devices.")
	recordCmd.Flags().DurationVar(&opts.Duration, "duration", config.DefaultRecordDuration,
		"How long to record")
	recordCmd.Flags().BoolVarP(&opts.Pick, "pick", "p", false,
		"Choose the input device and sample rate interactively")
	rootCmd.AddCommand(recordCmd)

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List available audio devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(opts); err != nil {
				return err
			}
			devices, err := audio.GetDevices()
			if err != nil {
				return err
			}
			audio.WriteDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
	rootCmd.AddCommand(devicesCmd)

	return rootCmd
}

// Execute runs the command line.
func Execute(ctx context.Context) error {
	return NewRootCommand(ctx).ExecuteContext(ctx)
}

func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	applog.Configure(cfg.LogLevel, cfg.Debug || opts.Verbose)
	if opts.UDP {
		cfg.Transport.UDPEnabled = true
	}
	if opts.Serve {
		cfg.Transport.WebSocketEnabled = true
	}
	return cfg, cfg.Validate()
}

func record(ctx context.Context, cfg *config.Config, pick bool) (snapshot.Blob, error) {
	if err := audio.Initialize(); err != nil {
		return snapshot.Blob{}, err
	}
	defer audio.Terminate()

	if pick {
		sel, err := tui.PickDevice(audio.HostDevices)
		if err != nil {
			return snapshot.Blob{}, err
		}
		cfg.Audio.InputDevice = sel.Device.ID
		cfg.Audio.SampleRate = sel.SampleRate
	}

	rec, err := audio.NewRecorder(cfg.Audio)
	if err != nil {
		return snapshot.Blob{}, err
	}
	defer rec.Close()

	data, err := rec.Record(ctx, cfg.Audio.RecordDuration)
	if err != nil {
		return snapshot.Blob{}, err
	}
	return snapshot.Blob{Data: data, MediaType: "audio/wav"}, nil
}

// runChart analyses blob and sends the chart to the selected outputs. With
// no output selected the chart is printed to stdout.
func runChart(ctx context.Context, cfg *config.Config, opts *Options, title string, blob snapshot.Blob) error {
	var adjustments []spectrum.AdjustmentPoint
	if opts.EQPath != "" {
		var err error
		if adjustments, err = spectrum.LoadAdjustments(opts.EQPath); err != nil {
			return err
		}
		applog.Debugf("Loaded %d adjustment points from %s", len(adjustments), opts.EQPath)
	}

	displays, err := app.NewDisplays(cfg.Transport)
	if err != nil {
		return err
	}
	pipeline, err := app.New(cfg, app.WithDisplays(displays.Transports()...))
	if err != nil {
		displays.Close()
		return err
	}
	defer pipeline.Close()

	out := app.Outputs{SVGPath: opts.SVGPath, PNGPath: opts.PNGPath}
	if out.SVGPath == "" && out.PNGPath == "" && !opts.TUIMode && !opts.Serve {
		out.Terminal = os.Stdout
		out.Surface = tui.TerminalSurface{File: os.Stdout}
	}

	chart, err := pipeline.Run(ctx, title, blob, adjustments, out)
	if err != nil {
		return err
	}
	if chart.Title == "" {
		applog.Infof("Capture interrupted; nothing to show")
		return nil
	}

	if opts.TUIMode {
		model := tui.NewChartModel(title, chart.Spectrum, adjustments, chart.Palette)
		if err := tui.RunChart(model); err != nil {
			return fmt.Errorf("terminal chart: %w", err)
		}
	}

	if opts.Serve {
		displays.StartRepeats()
		applog.Infof("Serving chart on ws://%s/ws; press Ctrl+C to stop", cfg.Transport.WebSocketAddress)
		<-ctx.Done()
	}
	return nil
}
