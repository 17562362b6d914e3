// SPDX-License-Identifier: MIT
package synth

import (
	"math"
	"testing"
)

func TestSineAmplitudeBounds(t *testing.T) {
	osc := NewSine(25000, 60, 0.9)
	for i := 0; i < 25000; i++ {
		v := osc.Next()
		if v > 0.9+1e-9 || v < -0.9-1e-9 {
			t.Fatalf("sample %d out of amplitude bounds: %f", i, v)
		}
	}
}

func TestSinePeriod(t *testing.T) {
	// A 100 Hz tone at 10 kHz has a period of exactly 100 samples.
	osc := NewSine(10000, 100, 1.0)
	buf := make([]float64, 200)
	for i := range buf {
		buf[i] = osc.Next()
	}
	for i := 0; i < 100; i++ {
		if math.Abs(buf[i]-buf[i+100]) > 1e-6 {
			t.Fatalf("period mismatch at %d: %f vs %f", i, buf[i], buf[i+100])
		}
	}
}

func TestBeatTrainSpacing(t *testing.T) {
	const sampleRate = 25000.0
	train := NewBeatTrain(sampleRate, 120, 60, 1.0, 80)

	// Burst onsets must be spaced exactly one beat period apart.
	wantPeriod := int(sampleRate * 60.0 / 120.0) // 12500 samples = 500 ms

	var onsets []int
	silent := true
	for i := 0; i < wantPeriod*4; i++ {
		v := train.Next()
		if silent && v != 0 {
			onsets = append(onsets, i)
			silent = false
		}
		if !silent && v == 0 && i%wantPeriod > wantPeriod/2 {
			silent = true
		}
	}

	if len(onsets) < 3 {
		t.Fatalf("expected at least 3 bursts, got %d", len(onsets))
	}
	for i := 1; i < len(onsets); i++ {
		if got := onsets[i] - onsets[i-1]; got != wantPeriod {
			t.Errorf("burst spacing %d: got %d samples, want %d", i, got, wantPeriod)
		}
	}
}

func TestBeatTrainBurstsOpenAudible(t *testing.T) {
	// Every burst must be non-zero from its first sample, including the very
	// first one; a silent opening sample shifts the detected onset by one.
	const sampleRate = 25000.0
	train := NewBeatTrain(sampleRate, 120, 60, 1.0, 80)
	period := int(sampleRate * 60.0 / 120.0)

	for b := 0; b < 4; b++ {
		for i := 0; i < period; i++ {
			v := train.Next()
			if i == 0 && v == 0 {
				t.Fatalf("burst %d opens silent", b)
			}
		}
	}
}

func TestBeatTrainSilenceBetweenBursts(t *testing.T) {
	const sampleRate = 25000.0
	train := NewBeatTrain(sampleRate, 60, 60, 1.0, 80)
	burst := int(sampleRate * 0.08)
	period := int(sampleRate)

	for i := 0; i < period; i++ {
		v := train.Next()
		if i >= burst && v != 0 {
			t.Fatalf("expected silence at sample %d, got %f", i, v)
		}
	}
}
