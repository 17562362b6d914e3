// SPDX-License-Identifier: MIT
package detect

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// BeatTracker keeps a bounded ring of beat timestamps and derives BPM from
// the median inter-beat interval, with a confidence score from interval
// regularity. All working storage is allocated at construction; Record and
// Estimate never allocate.
type BeatTracker struct {
	times []int64 // timestamp ring, ms
	head  int     // index of the oldest entry
	count int

	minIntervalMS float64
	maxIntervalMS float64
	minBPM        float64
	maxBPM        float64

	intervals []float64 // scratch for valid intervals, cap len(times)-1
}

// NewBeatTracker allocates a tracker holding the most recent historySize
// beats. Intervals outside [minIntervalMS, maxIntervalMS] are excluded from
// estimation as noise or missed-beat artifacts.
func NewBeatTracker(historySize int, minIntervalMS, maxIntervalMS int64, minBPM, maxBPM float64) *BeatTracker {
	return &BeatTracker{
		times:         make([]int64, historySize),
		minIntervalMS: float64(minIntervalMS),
		maxIntervalMS: float64(maxIntervalMS),
		minBPM:        minBPM,
		maxBPM:        maxBPM,
		intervals:     make([]float64, 0, historySize-1),
	}
}

// Record appends a beat timestamp, evicting the oldest when the ring is
// full. Timestamps must be recorded in capture order.
func (bt *BeatTracker) Record(tsMS int64) {
	if bt.count < len(bt.times) {
		bt.times[(bt.head+bt.count)%len(bt.times)] = tsMS
		bt.count++
		return
	}
	bt.times[bt.head] = tsMS
	bt.head = (bt.head + 1) % len(bt.times)
}

// Count returns the number of beats currently held.
func (bt *BeatTracker) Count() int {
	return bt.count
}

// Estimate derives (bpm, confidence) from the recorded history.
//
// Consecutive intervals outside the configured range are discarded. Fewer
// than 2 valid intervals yields (0, 0). BPM comes from the median interval,
// robust against a single missed beat doubling one interval. Confidence is
// 1 - 2*cv clamped to [0, 1], where cv is the coefficient of variation of
// the valid intervals; fewer than 3 valid intervals is statistically
// meaningless and reports confidence 0.
func (bt *BeatTracker) Estimate() (bpm, confidence float64) {
	bt.intervals = bt.intervals[:0]
	for i := 1; i < bt.count; i++ {
		prev := bt.times[(bt.head+i-1)%len(bt.times)]
		cur := bt.times[(bt.head+i)%len(bt.times)]
		interval := float64(cur - prev)
		if interval < bt.minIntervalMS || interval > bt.maxIntervalMS {
			continue
		}
		bt.intervals = append(bt.intervals, interval)
	}

	if len(bt.intervals) < 2 {
		return 0, 0
	}

	mean := stat.Mean(bt.intervals, nil)
	if len(bt.intervals) >= 3 && mean > 0 {
		cv := stat.PopStdDev(bt.intervals, nil) / mean
		confidence = 1 - 2*cv
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
	}

	sort.Float64s(bt.intervals)
	median := bt.intervals[len(bt.intervals)/2]
	if len(bt.intervals)%2 == 0 {
		median = (bt.intervals[len(bt.intervals)/2-1] + median) / 2
	}

	bpm = 60000.0 / median
	if bpm < bt.minBPM || bpm > bt.maxBPM {
		return 0, 0
	}
	return bpm, confidence
}

// Reset discards the entire beat history.
func (bt *BeatTracker) Reset() {
	bt.head = 0
	bt.count = 0
}
