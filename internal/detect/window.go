// SPDX-License-Identifier: MIT
package detect

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the FFT window function. The window is explicit
// configuration: earlier firmware revisions declared one window and ran
// another, so the choice is now parsed, validated, and tested.
type WindowFunc int

const (
	BlackmanHarris WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hamming
	Hann
	Nuttall
)

// ParseWindowFunc converts a case-insensitive name to a WindowFunc.
// Unknown names return BlackmanHarris and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "blackmanharris", "blackman-harris":
		return BlackmanHarris, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hamming":
		return Hamming, nil
	case "hann", "hanning":
		return Hann, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return BlackmanHarris, fmt.Errorf("unknown FFT window function name: %q", name)
	}
}

func (w WindowFunc) String() string {
	switch w {
	case BlackmanHarris:
		return "blackmanharris"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case Hamming:
		return "hamming"
	case Hann:
		return "hann"
	case Nuttall:
		return "nuttall"
	default:
		return "unknown"
	}
}

// windowCoefficients fills coeffs with the selected window. The slice is
// seeded with ones because the gonum window functions multiply in place.
func windowCoefficients(coeffs []float64, w WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch w {
	case BlackmanHarris:
		window.BlackmanHarris(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.BlackmanHarris(coeffs)
	}
}
