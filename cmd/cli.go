// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"tempo/internal/config"
	"tempo/pkg/build"
)

// RunOptions is what the CLI resolves to: the merged configuration plus the
// run-mode decisions that don't belong in the config file.
type RunOptions struct {
	Config  *config.Config
	Command string // one-off command ("list"), empty for normal run
	TUIMode bool
	TestBPM float64 // >0 runs against the synthetic input at this tempo
}

// ParseArgs parses the command line, loads the YAML configuration, and
// applies explicit flag overrides on top. Flags the user did not set never
// clobber file values.
func ParseArgs() (*RunOptions, error) {
	buildInfo := build.GetInfo()
	opts := &RunOptions{}

	var (
		configPath string
		deviceID   int
		channels   int
		sampleRate float64
		frames     int
		lowLatency bool
		record     bool
		outputFile string
		verbose    bool
		wsAddr     string
		udpTarget  string
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time musical tempo detection",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.TUIMode = true
			return nil
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "",
		"Path to YAML configuration file")

	// Audio device configuration.
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&channels, "channels", "c", config.DefaultChannels,
		"Number of input channels (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&sampleRate, "sample-rate", "s", config.DefaultSampleRateHz,
		"Sample rate in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&frames, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Frames per capture buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&lowLatency, "low-latency", "l", false,
		"Use the device's low-latency profile")

	// Recording configuration.
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record the input stream to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "",
		"Recording file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Transports.
	rootCmd.PersistentFlags().StringVar(&wsAddr, "ws", "",
		"Serve detection results over WebSocket on this address (e.g. :8080)")
	rootCmd.PersistentFlags().StringVar(&udpTarget, "udp", "",
		"Stream packed results to this UDP target (host:port)")

	// Test and debug.
	rootCmd.PersistentFlags().Float64Var(&opts.TestBPM, "test-bpm", 0,
		"Run against a synthetic beat train at this tempo instead of hardware")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := rootCmd.PersistentFlags()
	if flags.Changed("device") {
		cfg.Capture.InputDevice = deviceID
	}
	if flags.Changed("channels") {
		cfg.Capture.Channels = channels
	}
	if flags.Changed("sample-rate") {
		cfg.Detection.SampleRateHz = sampleRate
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Capture.FramesPerBuffer = frames
	}
	if flags.Changed("low-latency") {
		cfg.Capture.LowLatency = lowLatency
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled = record
	}
	if flags.Changed("output") {
		cfg.Recording.OutputFile = outputFile
	}
	if flags.Changed("ws") {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddr = wsAddr
	}
	if flags.Changed("udp") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = udpTarget
	}
	if verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts.Config = cfg
	return opts, nil
}
