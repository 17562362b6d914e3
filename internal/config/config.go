// SPDX-License-Identifier: MIT
package config

import (
	"fmt"

	"tempo/pkg/bitint"
)

// Defaults for the detection engine. The sample rate and FFT size are fixed
// for the lifetime of a detector; they are configuration, not runtime state.
const (
	DefaultSampleRateHz      = 25000
	DefaultFFTSize           = 1024
	DefaultFFTWindow         = "blackmanharris"
	DefaultFFTOverlap        = 0.5
	DefaultMinBPM            = 60
	DefaultMaxBPM            = 200
	DefaultDetectionThresh   = 0.5
	DefaultConfidenceThresh  = 0.3
	DefaultBassFreqMinHz     = 40
	DefaultBassFreqMaxHz     = 200
	DefaultEnvelopeDecay     = 0.9
	DefaultEnvelopeRelease   = 0.95
	DefaultMinBeatIntervalMS = 300
	DefaultMaxBeatIntervalMS = 1000
	DefaultBeatHistorySize   = 32

	// Threshold floor below which the adaptive envelope threshold cannot
	// collapse, preventing false-positive flooding after quiet passages.
	ThresholdFloor = 0.02

	// Signal level below which the detector reports LowSignal, and the hold
	// time after which a sustained low level becomes NoSignal.
	LowSignalFloor = 0.01
	NoSignalHoldMS = 2000

	// Capture defaults.
	DefaultDeviceID        = -1 // system default input device
	DefaultChannels        = 1
	DefaultFramesPerBuffer = 512

	// Cadence of the detection refresh loop.
	DefaultPollIntervalMS = 100
)

// Options is the flat set of scalar knobs a detector instance is constructed
// with. It is copied by value into each instance; changing an Options after
// construction has no effect on running detectors.
type Options struct {
	SampleRateHz        float64 `yaml:"sample_rate_hz"`
	FFTSize             int     `yaml:"fft_size"`
	FFTWindow           string  `yaml:"fft_window"`
	FFTOverlap          float64 `yaml:"fft_overlap"`
	MinBPM              float64 `yaml:"min_bpm"`
	MaxBPM              float64 `yaml:"max_bpm"`
	DetectionThreshold  float64 `yaml:"detection_threshold"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	BassFreqMinHz       float64 `yaml:"bass_freq_min_hz"`
	BassFreqMaxHz       float64 `yaml:"bass_freq_max_hz"`
	EnvelopeDecay       float64 `yaml:"envelope_decay"`
	EnvelopeRelease     float64 `yaml:"envelope_release"`
	MinBeatIntervalMS   int64   `yaml:"min_beat_interval_ms"`
	MaxBeatIntervalMS   int64   `yaml:"max_beat_interval_ms"`
	BeatHistorySize     int     `yaml:"beat_history_size"`
}

// DefaultOptions returns the engine defaults. These match the reference
// hardware profile: 25 kHz sampling, 1024-point FFT, 60-200 BPM.
func DefaultOptions() Options {
	return Options{
		SampleRateHz:        DefaultSampleRateHz,
		FFTSize:             DefaultFFTSize,
		FFTWindow:           DefaultFFTWindow,
		FFTOverlap:          DefaultFFTOverlap,
		MinBPM:              DefaultMinBPM,
		MaxBPM:              DefaultMaxBPM,
		DetectionThreshold:  DefaultDetectionThresh,
		ConfidenceThreshold: DefaultConfidenceThresh,
		BassFreqMinHz:       DefaultBassFreqMinHz,
		BassFreqMaxHz:       DefaultBassFreqMaxHz,
		EnvelopeDecay:       DefaultEnvelopeDecay,
		EnvelopeRelease:     DefaultEnvelopeRelease,
		MinBeatIntervalMS:   DefaultMinBeatIntervalMS,
		MaxBeatIntervalMS:   DefaultMaxBeatIntervalMS,
		BeatHistorySize:     DefaultBeatHistorySize,
	}
}

// Validate rejects option sets that would violate a construction invariant.
// Detectors are never constructed from an invalid Options: this runs before
// any real-time loop starts.
func (o Options) Validate() error {
	if o.SampleRateHz <= 0 {
		return fmt.Errorf("sample_rate_hz must be positive, got %g", o.SampleRateHz)
	}
	if !bitint.IsPowerOfTwo(o.FFTSize) {
		return fmt.Errorf("fft_size must be a power of 2, got %d", o.FFTSize)
	}
	if o.FFTOverlap < 0 || o.FFTOverlap >= 1 {
		return fmt.Errorf("fft_overlap must be in [0, 1), got %g", o.FFTOverlap)
	}
	if o.MinBPM <= 0 || o.MinBPM >= o.MaxBPM {
		return fmt.Errorf("BPM range invalid: min %g must be positive and below max %g", o.MinBPM, o.MaxBPM)
	}
	nyquist := o.SampleRateHz / 2
	if o.BassFreqMinHz <= 0 || o.BassFreqMinHz >= o.BassFreqMaxHz || o.BassFreqMaxHz > nyquist {
		return fmt.Errorf("bass band [%g, %g] Hz invalid for Nyquist %g Hz", o.BassFreqMinHz, o.BassFreqMaxHz, nyquist)
	}
	if o.DetectionThreshold <= 0 || o.DetectionThreshold > 1 {
		return fmt.Errorf("detection_threshold must be in (0, 1], got %g", o.DetectionThreshold)
	}
	if o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0, 1], got %g", o.ConfidenceThreshold)
	}
	if o.EnvelopeDecay <= 0 || o.EnvelopeDecay >= 1 {
		return fmt.Errorf("envelope_decay must be in (0, 1), got %g", o.EnvelopeDecay)
	}
	if o.EnvelopeRelease <= 0 || o.EnvelopeRelease >= 1 {
		return fmt.Errorf("envelope_release must be in (0, 1), got %g", o.EnvelopeRelease)
	}
	if o.MinBeatIntervalMS <= 0 || o.MinBeatIntervalMS >= o.MaxBeatIntervalMS {
		return fmt.Errorf("beat interval range [%d, %d] ms invalid", o.MinBeatIntervalMS, o.MaxBeatIntervalMS)
	}
	if o.BeatHistorySize < 4 {
		return fmt.Errorf("beat_history_size must be at least 4, got %d", o.BeatHistorySize)
	}
	return nil
}

// HopSize returns the number of samples between spectral frames, derived
// from the configured FFT size and overlap ratio. An overlap of 0.5 with a
// 1024-point FFT yields a hop of 512 samples.
func (o Options) HopSize() int {
	hop := int(float64(o.FFTSize) * (1 - o.FFTOverlap))
	if hop < 1 {
		hop = 1
	}
	return hop
}
