// SPDX-License-Identifier: MIT
package detect

import "time"

// AudioInput is the capability set the detector consumes from an audio
// source. The detector never owns or initializes audio hardware; anything
// that can supply a normalized sample and a level qualifies.
type AudioInput interface {
	// ReadSample returns the next sample, normalized to roughly [-1, 1].
	ReadSample() float64
	// SignalLevel returns the recent RMS/peak level, normalized to [0, 1].
	SignalLevel() float64
	// IsInitialized reports whether the underlying source is healthy.
	// A false return is propagated as StatusError.
	IsInitialized() bool
}

// Clock supplies monotonic millisecond timestamps for beat-interval and
// debounce computation. No wall-clock semantics are required.
type Clock interface {
	NowMS() int64
}

type monotonicClock struct {
	start time.Time
}

// NewMonotonicClock returns a Clock backed by the runtime monotonic clock,
// counting milliseconds from construction.
func NewMonotonicClock() Clock {
	return &monotonicClock{start: time.Now()}
}

func (c *monotonicClock) NowMS() int64 {
	return time.Since(c.start).Milliseconds()
}
