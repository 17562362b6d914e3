// SPDX-License-Identifier: MIT
package detect

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"tempo/pkg/bitint"
)

// maxPeaks bounds how many bass-band peaks feed the candidate list.
const maxPeaks = 4

// spectralWorkspace holds the pre-allocated buffers for one analyzer. All of
// them are sized at construction and reused on every call; Analyze performs
// zero heap allocation.
type spectralWorkspace struct {
	input     []float64    // linearized, windowed input signal
	fftOutput []complex128 // FFT complex results
	magnitude []float64    // normalized magnitudes, fftSize/2+1 bins
	window    []float64    // window coefficients
	peakBins  []int        // bass-band peak bins, strongest first
	peakMags  []float64    // magnitudes matching peakBins
	bpmScratch []float64   // candidate BPM values
}

// SpectralAnalyzer windows and transforms a sample buffer into a magnitude
// spectrum with consumers restricted to the bass band, where kick-drum
// content carries the dominant periodic energy. One analyzer belongs to one
// detector instance; nothing here is shared or locked.
type SpectralAnalyzer struct {
	fft        *fourier.FFT
	fftSize    int
	sampleRate float64
	minBin     int // inclusive bass band bounds
	maxBin     int
	normFactor float64 // converts raw magnitude to signal amplitude
	workspace  spectralWorkspace
}

// NewSpectralAnalyzer pre-sizes every working buffer for the given FFT size.
// The bass band is clamped to the available bins; degenerate bands are a
// construction error.
func NewSpectralAnalyzer(fftSize int, sampleRate, bassMinHz, bassMaxHz float64, win WindowFunc) (*SpectralAnalyzer, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %g", sampleRate)
	}
	if bassMinHz <= 0 || bassMinHz >= bassMaxHz || bassMaxHz > sampleRate/2 {
		return nil, fmt.Errorf("bass band [%g, %g] Hz invalid for sample rate %g", bassMinHz, bassMaxHz, sampleRate)
	}

	binCount := fftSize/2 + 1
	resolution := sampleRate / float64(fftSize)

	minBin := int(math.Ceil(bassMinHz / resolution))
	maxBin := int(bassMaxHz / resolution)
	if minBin < 1 {
		minBin = 1 // skip DC
	}
	if maxBin >= binCount {
		maxBin = binCount - 1
	}
	if minBin > maxBin {
		return nil, fmt.Errorf("bass band [%g, %g] Hz maps to no FFT bins at resolution %.2f Hz", bassMinHz, bassMaxHz, resolution)
	}

	coeffs := make([]float64, fftSize)
	windowCoefficients(coeffs, win)
	var windowSum float64
	for _, c := range coeffs {
		windowSum += c
	}

	return &SpectralAnalyzer{
		fft:        fourier.NewFFT(fftSize),
		fftSize:    fftSize,
		sampleRate: sampleRate,
		minBin:     minBin,
		maxBin:     maxBin,
		normFactor: 2.0 / windowSum,
		workspace: spectralWorkspace{
			input:      make([]float64, fftSize),
			fftOutput:  make([]complex128, binCount),
			magnitude:  make([]float64, binCount),
			window:     coeffs,
			peakBins:   make([]int, 0, maxPeaks),
			peakMags:   make([]float64, 0, maxPeaks),
			bpmScratch: make([]float64, 0, maxPeaks*3),
		},
	}, nil
}

// Analyze linearizes the buffer, applies the window, runs the FFT, and
// refreshes the magnitude spectrum. The returned slice is a borrowed view
// over the analyzer's workspace; it is valid until the next Analyze call.
// An all-zero buffer yields an all-zero spectrum, not an error.
func (a *SpectralAnalyzer) Analyze(buf *SampleBuffer) ([]float64, error) {
	ws := &a.workspace
	if err := buf.CopyChronological(ws.input); err != nil {
		return nil, err
	}
	for i := range ws.input {
		ws.input[i] *= ws.window[i]
	}

	a.fft.Coefficients(ws.fftOutput, ws.input)

	for i, c := range ws.fftOutput {
		ws.magnitude[i] = cmplx.Abs(c) * a.normFactor
	}
	return ws.magnitude, nil
}

// BassEnergy returns the peak normalized magnitude across the bass bins of
// the most recent spectrum. Peak rather than mean tracking keeps the value
// independent of the configured band width: a single strong kick fundamental
// reads near its amplitude either way.
func (a *SpectralAnalyzer) BassEnergy() float64 {
	peak := 0.0
	for i := a.minBin; i <= a.maxBin; i++ {
		if m := a.workspace.magnitude[i]; m > peak {
			peak = m
		}
	}
	return peak
}

// Candidates derives tempo candidates from the bass-band peaks of the most
// recent spectrum: each peak frequency converts via freq*60, and the
// half/double variants cover the usual subdivision ambiguity. Candidates
// outside [minBPM, maxBPM] are dropped. The returned slice is workspace
// scratch ordered strongest peak first; valid until the next call.
func (a *SpectralAnalyzer) Candidates(minBPM, maxBPM float64) []float64 {
	ws := &a.workspace
	ws.peakBins = ws.peakBins[:0]
	ws.peakMags = ws.peakMags[:0]
	ws.bpmScratch = ws.bpmScratch[:0]

	a.collectPeaks()

	for _, bin := range ws.peakBins {
		freq := a.FrequencyForBin(bin)
		base := freq * 60.0
		for _, bpm := range [3]float64{base, base * 0.5, base * 2.0} {
			if bpm < minBPM || bpm > maxBPM {
				continue
			}
			if containsNear(ws.bpmScratch, bpm, 1.0) {
				continue
			}
			ws.bpmScratch = append(ws.bpmScratch, bpm)
		}
	}
	return ws.bpmScratch
}

// collectPeaks finds local maxima in the bass band and keeps the strongest
// maxPeaks of them, ordered by descending magnitude. Runs on workspace
// scratch only.
func (a *SpectralAnalyzer) collectPeaks() {
	ws := &a.workspace
	mag := ws.magnitude

	for bin := a.minBin; bin <= a.maxBin; bin++ {
		m := mag[bin]
		if m <= 0 {
			continue
		}
		if bin > 0 && mag[bin-1] > m {
			continue
		}
		if bin+1 < len(mag) && mag[bin+1] >= m {
			continue
		}

		// Insert in descending magnitude order, capped at maxPeaks.
		pos := len(ws.peakMags)
		for pos > 0 && ws.peakMags[pos-1] < m {
			pos--
		}
		if pos >= maxPeaks {
			continue
		}
		if len(ws.peakMags) < maxPeaks {
			ws.peakMags = append(ws.peakMags, 0)
			ws.peakBins = append(ws.peakBins, 0)
		}
		copy(ws.peakMags[pos+1:], ws.peakMags[pos:])
		copy(ws.peakBins[pos+1:], ws.peakBins[pos:])
		ws.peakMags[pos] = m
		ws.peakBins[pos] = bin
	}
}

// FrequencyForBin returns the center frequency (Hz) for an FFT bin index.
func (a *SpectralAnalyzer) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(a.workspace.fftOutput) {
		return 0
	}
	return float64(bin) * a.sampleRate / float64(a.fftSize)
}

// FFTSize returns the configured FFT size.
func (a *SpectralAnalyzer) FFTSize() int {
	return a.fftSize
}

// BassBandBins returns the inclusive bin range restricted to consumers.
func (a *SpectralAnalyzer) BassBandBins() (min, max int) {
	return a.minBin, a.maxBin
}

// Reset zeroes the magnitude spectrum so a reset detector does not serve
// stale spectral data before its first new frame.
func (a *SpectralAnalyzer) Reset() {
	for i := range a.workspace.magnitude {
		a.workspace.magnitude[i] = 0
	}
}

func containsNear(values []float64, v, tolerance float64) bool {
	for _, x := range values {
		if math.Abs(x-v) <= tolerance {
			return true
		}
	}
	return false
}
