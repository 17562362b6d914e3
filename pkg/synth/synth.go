// SPDX-License-Identifier: MIT
//
// Package synth generates simple audio test signals: sine tones and periodic
// bass impulse trains. The generators are used by the detector test suites and
// by the synthetic audio input behind the --test-bpm flag, so the exact same
// signal path can be exercised with and without hardware.
package synth

import "math"

// Sine is a streaming sine oscillator. The phase accumulator wraps to avoid
// float drift over long runs.
type Sine struct {
	sampleRate float64
	freq       float64
	amplitude  float64
	phase      float64
}

// NewSine returns an oscillator producing amplitude*sin(2*pi*freq*t) at the
// given sample rate.
func NewSine(sampleRate, freq, amplitude float64) *Sine {
	return &Sine{
		sampleRate: sampleRate,
		freq:       freq,
		amplitude:  amplitude,
	}
}

// Next returns the next sample and advances the oscillator.
func (s *Sine) Next() float64 {
	v := s.amplitude * math.Sin(s.phase)
	s.phase += 2 * math.Pi * s.freq / s.sampleRate
	if s.phase > 2*math.Pi {
		s.phase -= 2 * math.Pi
	}
	return v
}

// Reset rewinds the oscillator to phase zero.
func (s *Sine) Reset() {
	s.phase = 0
}

// BeatTrain produces a kick-drum-like impulse train: short bursts of a bass
// sine tone at a fixed tempo, silence in between. This is the canonical
// known-tempo input for exercising beat detection end to end.
type BeatTrain struct {
	osc         *Sine
	periodSteps int
	burstSteps  int
	pos         int
}

// NewBeatTrain returns a generator emitting burstDur-long bursts of a toneHz
// sine at the given tempo. A 120 BPM train has bursts every 500 ms.
func NewBeatTrain(sampleRate, bpm, toneHz, amplitude float64, burstDurMS int) *BeatTrain {
	period := int(sampleRate * 60.0 / bpm)
	burst := int(sampleRate * float64(burstDurMS) / 1000.0)
	if burst >= period {
		burst = period / 2
	}
	return &BeatTrain{
		osc:         NewSine(sampleRate, toneHz, amplitude),
		periodSteps: period,
		burstSteps:  burst,
	}
}

// Next returns the next sample and advances the train. Every burst restarts
// the oscillator so all hits are identical, and skips the zero crossing at
// phase zero so a burst's opening sample is already audible.
func (bt *BeatTrain) Next() float64 {
	v := 0.0
	if bt.pos < bt.burstSteps {
		if bt.pos == 0 {
			bt.osc.Reset()
			bt.osc.Next()
		}
		v = bt.osc.Next()
	}
	bt.pos++
	if bt.pos >= bt.periodSteps {
		bt.pos = 0
	}
	return v
}

// Fill writes n samples from the generator into dst and returns dst[:n].
// dst must have capacity for n samples.
func Fill(dst []float64, n int, next func() float64) []float64 {
	dst = dst[:n]
	for i := range dst {
		dst[i] = next()
	}
	return dst
}

// SineWave renders size samples of a sine tone into a fresh slice.
// Convenience for tests that want a one-shot buffer.
func SineWave(size int, sampleRate, freq, amplitude float64) []float64 {
	osc := NewSine(sampleRate, freq, amplitude)
	buf := make([]float64, size)
	for i := range buf {
		buf[i] = osc.Next()
	}
	return buf
}
