// SPDX-License-Identifier: MIT
/*
Package detect implements the beat/tempo detection engine: circular sample
buffering, bass-band spectral analysis, envelope-based onset detection,
beat-interval tracking, and hybrid spectral+temporal BPM estimation.

Everything here is built for a continuous real-time loop on a constrained
target: all buffers are sized at construction, the feed and detect paths
perform zero heap allocation, and no operation blocks. Failures surface as
status values in the DetectionResult, never as panics or process aborts.
*/
package detect

import (
	"fmt"

	"tempo/internal/config"
)

// Detector is one independent detection instance. It owns its sample
// buffer, analyzer, envelope tracker, and beat history exclusively; nothing
// is shared across instances. Samples must be fed in capture order.
type Detector struct {
	opts  config.Options
	input AudioInput
	clock Clock

	buf      *SampleBuffer
	analyzer *SpectralAnalyzer
	envelope *EnvelopeTracker
	beats    *BeatTracker
	hybrid   *HybridEstimator

	hop           int // samples between spectral frames
	sinceAnalysis int

	status         Status
	lowSignalAtMS  int64 // when the level first dropped below the floor, -1 if not low
	last           DetectionResult
}

// NewDetector validates the options and pre-allocates every buffer the
// instance will ever use. The input and clock are capabilities supplied by
// the caller; the detector never owns hardware.
func NewDetector(opts config.Options, input AudioInput, clock Clock) (*Detector, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, fmt.Errorf("detector requires an audio input")
	}
	if clock == nil {
		clock = NewMonotonicClock()
	}

	win, err := ParseWindowFunc(opts.FFTWindow)
	if err != nil {
		return nil, err
	}

	buf, err := NewSampleBuffer(opts.FFTSize)
	if err != nil {
		return nil, err
	}
	analyzer, err := NewSpectralAnalyzer(opts.FFTSize, opts.SampleRateHz, opts.BassFreqMinHz, opts.BassFreqMaxHz, win)
	if err != nil {
		return nil, err
	}

	return &Detector{
		opts:     opts,
		input:    input,
		clock:    clock,
		buf:      buf,
		analyzer: analyzer,
		envelope: NewEnvelopeTracker(
			opts.DetectionThreshold,
			config.ThresholdFloor,
			opts.EnvelopeDecay,
			opts.EnvelopeRelease,
			opts.MinBeatIntervalMS,
		),
		beats: NewBeatTracker(
			opts.BeatHistorySize,
			opts.MinBeatIntervalMS,
			opts.MaxBeatIntervalMS,
			opts.MinBPM,
			opts.MaxBPM,
		),
		hybrid:        NewHybridEstimator(opts.ConfidenceThreshold),
		hop:           opts.HopSize(),
		status:        StatusInitializing,
		lowSignalAtMS: -1,
	}, nil
}

// Sample pulls one sample from the audio input and feeds it. Called from
// the sampling loop at the configured rate.
func (d *Detector) Sample() {
	if d.input.IsInitialized() {
		d.Feed(d.input.ReadSample())
	}
}

// Feed pushes one sample into the buffer. O(1), allocation-free, callable
// at the full sample rate.
func (d *Detector) Feed(v float64) {
	d.buf.Push(v)
	d.sinceAnalysis++
}

// Detect runs one detection cycle and returns a fresh result snapshot. The
// spectral frame is only recomputed when a full hop of new samples has
// arrived since the last one, so calling Detect more often than the hop
// cadence is cheap.
func (d *Detector) Detect() DetectionResult {
	now := d.clock.NowMS()

	// An input fault is sticky: only Reset clears it, since re-initializing
	// the hardware is some outer layer's responsibility.
	if !d.input.IsInitialized() {
		d.status = StatusError
	}
	if d.status == StatusError {
		d.last = DetectionResult{Status: StatusError, TimestampMS: now}
		return d.last
	}

	level := d.input.SignalLevel()

	if !d.buf.Ready() {
		d.status = StatusInitializing
		d.last = DetectionResult{SignalLevel: level, Status: StatusInitializing, TimestampMS: now}
		return d.last
	}

	// Low signal forces BPM and confidence to zero regardless of residual
	// beat history; stale tempo is never reported as current.
	if level < config.LowSignalFloor {
		if d.lowSignalAtMS < 0 {
			d.lowSignalAtMS = now
		}
		d.status = StatusLowSignal
		if now-d.lowSignalAtMS >= config.NoSignalHoldMS {
			d.status = StatusNoSignal
		}
		d.last = DetectionResult{SignalLevel: level, Status: d.status, TimestampMS: now}
		return d.last
	}
	d.lowSignalAtMS = -1

	if d.sinceAnalysis >= d.hop {
		d.sinceAnalysis = 0
		if _, err := d.analyzer.Analyze(d.buf); err == nil {
			if d.envelope.Update(d.analyzer.BassEnergy(), level, now) {
				d.beats.Record(now)
			}
		}
	}

	temporalBPM, temporalConf := d.beats.Estimate()
	candidates := d.analyzer.Candidates(d.opts.MinBPM, d.opts.MaxBPM)
	bpm, confidence := d.hybrid.Combine(temporalBPM, temporalConf, candidates)

	d.status = StatusDetecting
	if d.envelope.Calibrating() {
		d.status = StatusCalibrating
	}

	d.last = DetectionResult{
		BPM:         bpm,
		Confidence:  confidence,
		SignalLevel: level,
		Status:      d.status,
		TimestampMS: now,
	}
	return d.last
}

// Result returns the most recent snapshot without running a cycle.
func (d *Detector) Result() DetectionResult {
	return d.last
}

// Status returns the current lifecycle state.
func (d *Detector) Status() Status {
	return d.status
}

// Reset clears all history and returns the instance to Initializing with
// its configuration intact. This is also the only way out of StatusError.
// Reset is idempotent.
func (d *Detector) Reset() {
	d.buf.Reset()
	d.analyzer.Reset()
	d.envelope.Reset()
	d.beats.Reset()
	d.sinceAnalysis = 0
	d.lowSignalAtMS = -1
	d.status = StatusInitializing
	d.last = DetectionResult{Status: StatusInitializing, TimestampMS: d.clock.NowMS()}
}
