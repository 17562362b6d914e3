// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from YAML with built-in
// defaults and environment overrides applied on top.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Detection Options         `yaml:"detection"`
	Capture   CaptureConfig   `yaml:"capture"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// CaptureConfig holds audio input settings.
type CaptureConfig struct {
	InputDevice     int   `yaml:"input_device"`      // PortAudio device index, -1 for default
	Channels        int   `yaml:"channels"`          // 1 = mono, 2 = stereo (averaged to mono)
	FramesPerBuffer int   `yaml:"frames_per_buffer"` // capture callback buffer size
	LowLatency      bool  `yaml:"low_latency"`
	PollIntervalMS  int64 `yaml:"poll_interval_ms"` // detection refresh cadence
}

// RecordingConfig holds optional WAV capture settings.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`
	OutputFile string `yaml:"output_file"`
	BitDepth   int    `yaml:"bit_depth"`
}

// TransportConfig holds settings for publishing detection results.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`
	WebSocketAddr    string        `yaml:"websocket_addr"`
	UDPEnabled       bool          `yaml:"udp_enabled"`
	UDPTargetAddress string        `yaml:"udp_target_address"`
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`
}

// Load reads configuration from the YAML file at path. An empty path falls
// back to "tempo.yaml" in the working directory if present, otherwise the
// built-in defaults. Environment overrides apply after file loading, and the
// result is validated before it is returned.
func Load(path string) (*Config, error) {
	cfg := Config{
		Debug:     false,
		LogLevel:  "info",
		Detection: DefaultOptions(),
		Capture: CaptureConfig{
			InputDevice:     DefaultDeviceID,
			Channels:        DefaultChannels,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      false,
			PollIntervalMS:  DefaultPollIntervalMS,
		},
		Recording: RecordingConfig{
			Enabled:  false,
			BitDepth: 16,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  100 * time.Millisecond,
		},
	}

	if path == "" {
		if _, err := os.Stat("tempo.yaml"); err == nil {
			path = "tempo.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the full configuration, delegating the engine invariants
// to Options.Validate.
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if c.Capture.FramesPerBuffer <= 0 {
		return fmt.Errorf("capture.frames_per_buffer must be positive, got %d", c.Capture.FramesPerBuffer)
	}
	if c.Capture.Channels < 1 || c.Capture.Channels > 2 {
		return fmt.Errorf("capture.channels must be 1 or 2, got %d", c.Capture.Channels)
	}
	if c.Capture.PollIntervalMS <= 0 {
		return fmt.Errorf("capture.poll_interval_ms must be positive, got %d", c.Capture.PollIntervalMS)
	}
	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddress == "" {
		return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
	}
	return nil
}

// applyEnvOverrides applies TEMPO_* environment variables on top of whatever
// the file (or the defaults) provided.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("TEMPO_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("TEMPO_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("TEMPO_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
		c.Transport.WebSocketEnabled = true
	}
	if val, ok := os.LookupEnv("TEMPO_UDP_TARGET"); ok {
		c.Transport.UDPTargetAddress = val
		c.Transport.UDPEnabled = true
	}
}
