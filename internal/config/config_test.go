// SPDX-License-Identifier: MIT
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes into dir for the duration of the test, restoring the
// previous working directory on cleanup (stand-in for t.Chdir, go1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestDefaultOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())
}

func TestOptionsValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"fft size not power of two", func(o *Options) { o.FFTSize = 1000 }},
		{"zero sample rate", func(o *Options) { o.SampleRateHz = 0 }},
		{"min bpm above max", func(o *Options) { o.MinBPM = 220 }},
		{"min bpm equal to max", func(o *Options) { o.MinBPM = o.MaxBPM }},
		{"bass band above nyquist", func(o *Options) { o.BassFreqMaxHz = 20000 }},
		{"inverted bass band", func(o *Options) { o.BassFreqMinHz = 300 }},
		{"overlap of one", func(o *Options) { o.FFTOverlap = 1.0 }},
		{"negative overlap", func(o *Options) { o.FFTOverlap = -0.5 }},
		{"zero detection threshold", func(o *Options) { o.DetectionThreshold = 0 }},
		{"decay out of range", func(o *Options) { o.EnvelopeDecay = 1.0 }},
		{"inverted beat intervals", func(o *Options) { o.MinBeatIntervalMS = 2000 }},
		{"tiny beat history", func(o *Options) { o.BeatHistorySize = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			assert.Error(t, opts.Validate())
		})
	}
}

func TestHopSize(t *testing.T) {
	opts := DefaultOptions()
	opts.FFTSize = 1024

	opts.FFTOverlap = 0.5
	assert.Equal(t, 512, opts.HopSize())

	opts.FFTOverlap = 0.75
	assert.Equal(t, 256, opts.HopSize())

	opts.FFTOverlap = 0
	assert.Equal(t, 1024, opts.HopSize())
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, float64(DefaultSampleRateHz), cfg.Detection.SampleRateHz)
	assert.Equal(t, DefaultFFTSize, cfg.Detection.FFTSize)
	assert.Equal(t, DefaultFFTWindow, cfg.Detection.FFTWindow)
	assert.False(t, cfg.Transport.WebSocketEnabled)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tempo.yaml")
	data := []byte(`
log_level: debug
detection:
  fft_size: 512
  min_bpm: 80
  max_bpm: 180
  fft_window: hamming
transport:
  websocket_enabled: true
  websocket_addr: ":9999"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 512, cfg.Detection.FFTSize)
	assert.Equal(t, 80.0, cfg.Detection.MinBPM)
	assert.Equal(t, "hamming", cfg.Detection.FFTWindow)
	assert.True(t, cfg.Transport.WebSocketEnabled)
	assert.Equal(t, ":9999", cfg.Transport.WebSocketAddr)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, float64(DefaultSampleRateHz), cfg.Detection.SampleRateHz)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("detection:\n  fft_size: 1000\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TEMPO_WS_ADDR", ":7070")
	t.Setenv("TEMPO_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.True(t, cfg.Transport.WebSocketEnabled)
	assert.Equal(t, ":7070", cfg.Transport.WebSocketAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}
