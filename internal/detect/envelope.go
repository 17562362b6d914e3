// SPDX-License-Identifier: MIT
package detect

import "math"

// Envelope threshold behavior constants. The slow release re-sensitizes the
// detector after quiet passages; the fast release pulls the threshold back
// down after a large signal-level jump has pushed it high.
const (
	thresholdReleaseSlow = 0.99
	thresholdReleaseFast = 0.98
	resensitizeDelayMS   = 2000
	levelJumpThreshold   = 0.25
)

// EnvelopeTracker maintains a smoothed energy envelope with asymmetric
// attack/release and an adaptive threshold, and emits beat onsets on rising
// threshold crossings. Update is called once per spectral frame with the
// bass-band energy; it never allocates.
type EnvelopeTracker struct {
	value float64 // smoothed envelope
	prev  float64 // envelope at the previous frame, for edge detection

	threshold     float64 // current adaptive threshold
	baseThreshold float64 // configured detection threshold
	floor         float64 // threshold can never collapse below this

	decay     float64 // envelope release factor (attack is instantaneous)
	release   float64 // threshold release toward its adaptive target
	minBeatMS int64   // debounce interval

	lastBeatMS  int64 // -1 until the first beat
	lastLevel   float64
	seenLevel   bool // first observed level seeds the baseline, it is not a jump
	calibrating bool
}

// NewEnvelopeTracker returns a tracker with the threshold seeded at the
// configured base, mirroring a freshly calibrated detector.
func NewEnvelopeTracker(baseThreshold, floor, decay, release float64, minBeatIntervalMS int64) *EnvelopeTracker {
	return &EnvelopeTracker{
		threshold:     baseThreshold,
		baseThreshold: baseThreshold,
		floor:         floor,
		decay:         decay,
		release:       release,
		minBeatMS:     minBeatIntervalMS,
		lastBeatMS:    -1,
	}
}

// Update advances the envelope with one frame of bass energy and reports
// whether a beat onset fired at nowMS.
//
// The envelope rises immediately to a higher input (attack) and decays
// exponentially otherwise (release). The threshold tracks
// base*(0.5 + 0.5*level), continuously recalibrated from the live signal
// level so microphone gain and distance need no manual adjustment. A beat
// fires on the rising edge through the threshold, debounced by the minimum
// beat interval.
func (t *EnvelopeTracker) Update(bandEnergy, signalLevel float64, nowMS int64) bool {
	if bandEnergy > t.value {
		t.value = bandEnergy
	} else {
		t.value = t.value*t.decay + bandEnergy*(1-t.decay)
	}

	target := t.baseThreshold * (0.5 + 0.5*signalLevel)

	// A large level jump means the gain situation changed; converge on the
	// new target quickly rather than waiting out the slow release.
	if t.seenLevel && math.Abs(signalLevel-t.lastLevel) > levelJumpThreshold {
		t.calibrating = true
	}
	t.seenLevel = true

	switch {
	case t.calibrating:
		t.threshold = t.threshold*thresholdReleaseFast + target*(1-thresholdReleaseFast)
		if math.Abs(t.threshold-target) < 0.01 {
			t.threshold = target
			t.calibrating = false
		}
	case t.threshold > target && (t.lastBeatMS < 0 || nowMS-t.lastBeatMS > resensitizeDelayMS):
		// No beat in a while and the threshold sits above where the current
		// level says it should be: decay down so quiet passages re-sensitize.
		t.threshold *= thresholdReleaseSlow
	default:
		t.threshold = target
	}
	if t.threshold < t.floor {
		t.threshold = t.floor
	}

	beat := t.value > t.threshold && t.prev <= t.threshold &&
		(t.lastBeatMS < 0 || nowMS-t.lastBeatMS >= t.minBeatMS)
	if beat {
		t.lastBeatMS = nowMS
	}

	t.prev = t.value
	t.lastLevel = signalLevel
	return beat
}

// Value returns the current smoothed envelope.
func (t *EnvelopeTracker) Value() float64 {
	return t.value
}

// Threshold returns the current adaptive threshold.
func (t *EnvelopeTracker) Threshold() float64 {
	return t.threshold
}

// Calibrating reports whether the threshold is converging after a signal
// level jump.
func (t *EnvelopeTracker) Calibrating() bool {
	return t.calibrating
}

// Reset returns the tracker to its calibrated default: envelope cleared,
// threshold back at the configured base.
func (t *EnvelopeTracker) Reset() {
	t.value = 0
	t.prev = 0
	t.threshold = t.baseThreshold
	t.lastBeatMS = -1
	t.lastLevel = 0
	t.seenLevel = false
	t.calibrating = false
}
