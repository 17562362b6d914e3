// SPDX-License-Identifier: MIT
package detect

import (
	"math"
	"testing"
)

func newTestBeatTracker() *BeatTracker {
	// 32-beat history, 300-1000ms valid intervals, 60-200 BPM
	return NewBeatTracker(32, 300, 1000, 60, 200)
}

// recordTrain records beats spaced intervalMS apart starting at t=0.
func recordTrain(bt *BeatTracker, n int, intervalMS int64) {
	for i := 0; i < n; i++ {
		bt.Record(int64(i) * intervalMS)
	}
}

func TestEstimateNeedsTwoValidIntervals(t *testing.T) {
	bt := newTestBeatTracker()

	if bpm, conf := bt.Estimate(); bpm != 0 || conf != 0 {
		t.Errorf("empty tracker: got (%g, %g), want (0, 0)", bpm, conf)
	}

	bt.Record(0)
	bt.Record(500)
	if bpm, conf := bt.Estimate(); bpm != 0 || conf != 0 {
		t.Errorf("one interval: got (%g, %g), want (0, 0)", bpm, conf)
	}

	bt.Record(1000)
	bpm, conf := bt.Estimate()
	if bpm != 120 {
		t.Errorf("two intervals of 500ms: bpm = %g, want 120", bpm)
	}
	// Two valid intervals give a BPM but no statistical confidence yet.
	if conf != 0 {
		t.Errorf("two intervals: confidence = %g, want 0", conf)
	}
}

func TestEstimateKnownTempi(t *testing.T) {
	tests := []struct {
		name       string
		intervalMS int64
		wantBPM    float64
	}{
		{"120 BPM", 500, 120},
		{"60 BPM lower bound", 1000, 60},
		{"200 BPM upper bound", 300, 200},
		{"100 BPM", 600, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bt := newTestBeatTracker()
			recordTrain(bt, 10, tt.intervalMS)

			bpm, conf := bt.Estimate()
			if math.Abs(bpm-tt.wantBPM) > 0.01 {
				t.Errorf("bpm = %g, want %g", bpm, tt.wantBPM)
			}
			if conf < 0.99 {
				t.Errorf("confidence = %g for perfectly regular train, want ~1", conf)
			}
		})
	}
}

func TestOutOfRangeIntervalsExcluded(t *testing.T) {
	bt := newTestBeatTracker()

	// Valid 500ms intervals with one doubled gap (missed beat) in the
	// middle: the 1500ms interval is discarded, not averaged in.
	bt.Record(0)
	bt.Record(500)
	bt.Record(1000)
	bt.Record(2500) // missed a beat: 1500ms gap, out of range
	bt.Record(3000)
	bt.Record(3500)

	bpm, _ := bt.Estimate()
	if math.Abs(bpm-120) > 0.01 {
		t.Errorf("bpm = %g with one outlier gap, want 120", bpm)
	}
}

func TestSpacingOutsideRangeYieldsNothing(t *testing.T) {
	// Beats spaced 2000ms apart (30 BPM): every interval is out of range.
	bt := newTestBeatTracker()
	recordTrain(bt, 10, 2000)

	if bpm, conf := bt.Estimate(); bpm != 0 || conf != 0 {
		t.Errorf("out-of-range spacing: got (%g, %g), want (0, 0)", bpm, conf)
	}

	// Likewise 100ms spacing (600 BPM).
	bt2 := newTestBeatTracker()
	recordTrain(bt2, 10, 100)
	if bpm, conf := bt2.Estimate(); bpm != 0 || conf != 0 {
		t.Errorf("sub-debounce spacing: got (%g, %g), want (0, 0)", bpm, conf)
	}
}

func TestMedianRobustAgainstSingleOutlier(t *testing.T) {
	bt := newTestBeatTracker()

	// Nine 500ms intervals and one 800ms straggler, all within range.
	// Median ignores the straggler entirely; a mean would not.
	ts := int64(0)
	for i := 0; i < 9; i++ {
		bt.Record(ts)
		ts += 500
	}
	bt.Record(ts)
	bt.Record(ts + 800)

	bpm, _ := bt.Estimate()
	if math.Abs(bpm-120) > 0.01 {
		t.Errorf("bpm = %g with one in-range outlier, want 120", bpm)
	}
}

func TestConfidenceMonotonicInSpread(t *testing.T) {
	// Interval sets with equal mean (500ms) and growing spread must
	// produce non-increasing confidence.
	spreads := []int64{0, 20, 60, 120, 200}
	prev := math.Inf(1)

	for _, spread := range spreads {
		bt := newTestBeatTracker()
		ts := int64(0)
		bt.Record(ts)
		for i := 0; i < 12; i++ {
			if i%2 == 0 {
				ts += 500 + spread
			} else {
				ts += 500 - spread
			}
			bt.Record(ts)
		}

		_, conf := bt.Estimate()
		if conf > prev {
			t.Errorf("confidence %g at spread %d exceeds %g at smaller spread", conf, spread, prev)
		}
		prev = conf
	}
}

func TestRingEviction(t *testing.T) {
	bt := NewBeatTracker(4, 300, 1000, 60, 200)

	// Old 1000ms-spaced beats are evicted by newer 500ms-spaced ones.
	bt.Record(0)
	bt.Record(1000)
	bt.Record(2000)
	bt.Record(3000)
	if bt.Count() != 4 {
		t.Fatalf("count = %d, want 4", bt.Count())
	}

	bt.Record(3500)
	bt.Record(4000)
	bt.Record(4500)
	if bt.Count() != 4 {
		t.Fatalf("count = %d after overflow, want 4", bt.Count())
	}

	bpm, _ := bt.Estimate()
	// Remaining history: 3000, 3500, 4000, 4500 -> all 500ms intervals.
	if math.Abs(bpm-120) > 0.01 {
		t.Errorf("bpm = %g after eviction, want 120", bpm)
	}
}

func TestBeatTrackerReset(t *testing.T) {
	bt := newTestBeatTracker()
	recordTrain(bt, 10, 500)
	bt.Reset()

	if bt.Count() != 0 {
		t.Errorf("count = %d after reset, want 0", bt.Count())
	}
	if bpm, conf := bt.Estimate(); bpm != 0 || conf != 0 {
		t.Errorf("estimate after reset: got (%g, %g), want (0, 0)", bpm, conf)
	}
}

func TestRecordEstimateNoAllocs(t *testing.T) {
	bt := newTestBeatTracker()
	recordTrain(bt, 32, 500)

	ts := int64(32 * 500)
	allocs := testing.AllocsPerRun(10000, func() {
		ts += 500
		bt.Record(ts)
		bt.Estimate()
	})
	if allocs != 0 {
		t.Errorf("Record+Estimate allocated %.1f times per call, want 0", allocs)
	}
}

func BenchmarkEstimate(b *testing.B) {
	bt := newTestBeatTracker()
	recordTrain(bt, 32, 500)
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		bt.Estimate()
	}
}
