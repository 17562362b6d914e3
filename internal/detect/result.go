// SPDX-License-Identifier: MIT
package detect

// Status enumerates the lifecycle states of a detector instance. The states
// are terminal-free except Error, which is sticky until Reset.
type Status int

const (
	StatusInitializing Status = iota // sample buffer not yet full
	StatusDetecting                  // normal operation
	StatusLowSignal                  // signal level below floor
	StatusNoSignal                   // signal level below floor for a sustained period
	StatusCalibrating                // threshold recalibration after a level jump
	StatusError                      // audio input fault, cleared only by Reset
)

// String returns the presentation name for the status. Internally the enum
// is always compared by value, never by string.
func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusDetecting:
		return "detecting"
	case StatusLowSignal:
		return "low_signal"
	case StatusNoSignal:
		return "no_signal"
	case StatusCalibrating:
		return "calibrating"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its presentation string so transport
// payloads never expose raw enum values.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// DetectionResult is an immutable snapshot returned to callers. A BPM of 0
// means undetermined; Status distinguishes "nothing detected yet" from
// "actively degraded".
type DetectionResult struct {
	BPM         float64 `json:"bpm"`
	Confidence  float64 `json:"confidence"`
	SignalLevel float64 `json:"signal_level"`
	Status      Status  `json:"status"`
	TimestampMS int64   `json:"timestamp_ms"`
}
