// SPDX-License-Identifier: MIT
package detect

import "math"

// spectralConfidenceCap bounds the confidence of a spectral-only estimate.
// Without temporal corroboration a spectral peak is suggestive, never
// authoritative.
const spectralConfidenceCap = 0.4

// HybridEstimator fuses the temporal BPM estimate with spectral candidates.
// The temporal path is the low-latency primary signal; spectral candidates
// validate and disambiguate it, and serve as the fallback before any beats
// have been tracked.
type HybridEstimator struct {
	confidenceThreshold float64
}

// NewHybridEstimator returns an estimator that lets the temporal estimate
// dominate once its confidence reaches confidenceThreshold.
func NewHybridEstimator(confidenceThreshold float64) *HybridEstimator {
	return &HybridEstimator{confidenceThreshold: confidenceThreshold}
}

// Combine produces the fused (bpm, confidence) from the temporal estimate
// and the spectral candidate list (strongest first).
//
//   - High temporal confidence: the temporal estimate wins outright.
//   - Low but non-zero temporal confidence: the candidate closest to the
//     temporal estimate breaks half/double-tempo ambiguity; the result is
//     confidence-weighted between the two.
//   - Zero temporal confidence: fall back to the strongest candidate with a
//     capped confidence ceiling, or (0, 0) when there is none.
func (h *HybridEstimator) Combine(temporalBPM, temporalConf float64, candidates []float64) (bpm, confidence float64) {
	if temporalConf >= h.confidenceThreshold && temporalBPM > 0 {
		return temporalBPM, temporalConf
	}

	if temporalConf > 0 && temporalBPM > 0 {
		if len(candidates) == 0 {
			return temporalBPM, temporalConf
		}
		closest := candidates[0]
		for _, c := range candidates[1:] {
			if math.Abs(c-temporalBPM) < math.Abs(closest-temporalBPM) {
				closest = c
			}
		}
		bpm = temporalBPM*temporalConf + closest*(1-temporalConf)
		return bpm, temporalConf
	}

	if len(candidates) == 0 {
		return 0, 0
	}
	return candidates[0], spectralConfidenceCap
}
