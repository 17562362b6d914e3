// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"tempo/internal/config"
)

// testCapture builds a capture engine around its ring and meter only, with
// no PortAudio stream behind it.
func testCapture(channels, ringSize int) *Capture {
	return &Capture{
		cfg: config.CaptureConfig{
			Channels:        channels,
			FramesPerBuffer: 64,
		},
		sampleRate: 25000,
		ring:       make([]float64, ringSize),
		mask:       ringSize - 1,
	}
}

func TestLevelMeterNormalizesAgainstPeak(t *testing.T) {
	var m levelMeter

	for i := 0; i < levelWindowSize; i++ {
		m.add(0.5)
	}
	if got := m.rms(); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("rms = %g for constant 0.5 input, want 0.5", got)
	}
	// The loudest passage defines full scale.
	if got := m.level(); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("level = %g at peak, want 1", got)
	}

	for i := 0; i < levelWindowSize; i++ {
		m.add(0.25)
	}
	if got := m.level(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("level = %g at half the calibrated peak, want 0.5", got)
	}
}

func TestLevelMeterEmptyAndReset(t *testing.T) {
	var m levelMeter
	if m.level() != 0 {
		t.Errorf("level = %g before any samples, want 0", m.level())
	}

	for i := 0; i < levelWindowSize; i++ {
		m.add(0.8)
	}
	m.reset()
	if m.level() != 0 || m.rms() != 0 {
		t.Errorf("meter not cleared by reset: level=%g rms=%g", m.level(), m.rms())
	}
}

func TestCaptureRingOrder(t *testing.T) {
	c := testCapture(1, 8)

	in := make([]float32, 5)
	for i := range in {
		in[i] = float32(i + 1)
	}
	c.processInput(in)

	if got := c.Pending(); got != 5 {
		t.Fatalf("Pending = %d, want 5", got)
	}
	for i := 1; i <= 5; i++ {
		if got := c.ReadSample(); got != float64(i) {
			t.Errorf("ReadSample = %g, want %d", got, i)
		}
	}
	if got := c.ReadSample(); got != 0 {
		t.Errorf("ReadSample on empty ring = %g, want 0", got)
	}
}

func TestCaptureRingOverflowDropsOldest(t *testing.T) {
	c := testCapture(1, 8)

	in := make([]float32, 12)
	for i := range in {
		in[i] = float32(i + 1)
	}
	c.processInput(in)

	if got := c.Pending(); got != 8 {
		t.Fatalf("Pending = %d after overflow, want 8", got)
	}
	// Samples 1-4 were dropped; 5-12 remain in order.
	for i := 5; i <= 12; i++ {
		if got := c.ReadSample(); got != float64(i) {
			t.Errorf("ReadSample = %g, want %d", got, i)
		}
	}
}

func TestCaptureStereoAveragesToMono(t *testing.T) {
	c := testCapture(2, 8)

	c.processInput([]float32{0.2, 0.4, -1.0, 1.0})
	if got := c.Pending(); got != 2 {
		t.Fatalf("Pending = %d for 2 stereo frames, want 2", got)
	}
	if got := c.ReadSample(); math.Abs(got-0.3) > 1e-6 {
		t.Errorf("frame 0 = %g, want 0.3", got)
	}
	if got := c.ReadSample(); math.Abs(got) > 1e-6 {
		t.Errorf("frame 1 = %g, want 0", got)
	}
}

func TestCaptureNoiseGate(t *testing.T) {
	c := testCapture(1, 8)
	c.SetGateThreshold(0.05)

	c.processInput([]float32{0.01, -0.02, 0.5, -0.04})
	want := []float64{0, 0, 0.5, 0}
	for i, w := range want {
		if got := c.ReadSample(); math.Abs(got-w) > 1e-6 {
			t.Errorf("gated sample %d = %g, want %g", i, got, w)
		}
	}
}

func TestCaptureNotInitializedWithoutStream(t *testing.T) {
	c := testCapture(1, 8)
	if c.IsInitialized() {
		t.Error("capture reports initialized with no stream")
	}
}

func TestResetCalibrationClearsLevel(t *testing.T) {
	c := testCapture(1, 256)
	in := make([]float32, 200)
	for i := range in {
		in[i] = 0.5
	}
	c.processInput(in)
	if c.SignalLevel() == 0 {
		t.Fatal("signal level still zero after loud input")
	}

	c.ResetCalibration()
	if got := c.SignalLevel(); got != 0 {
		t.Errorf("signal level = %g after calibration reset, want 0", got)
	}
}

func TestRecordingRoundTrip(t *testing.T) {
	c := testCapture(1, 256)
	path := filepath.Join(t.TempDir(), "take.wav")

	if err := c.StartRecording(path, 0); err == nil {
		t.Fatal("expected error for unsupported bit depth")
	}
	if err := c.StartRecording(path, 16); err != nil {
		t.Fatal(err)
	}
	if err := c.StartRecording(path, 16); err == nil {
		t.Error("expected error for double start")
	}

	in := make([]float32, 64)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * float64(i) / 64))
	}
	c.processInput(in)

	if err := c.StopRecording(); err != nil {
		t.Fatal(err)
	}
	if err := c.StopRecording(); err != nil {
		t.Errorf("second stop errored: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Error("recorded file is not a valid WAV")
	}
}

func TestRecordingWriteFailureSurfacesAtStop(t *testing.T) {
	c := testCapture(1, 256)
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := c.StartRecording(path, 16); err != nil {
		t.Fatal(err)
	}

	// Pull the file out from under the encoder so the next callback write
	// fails. The failure must deactivate the recorder silently and surface
	// only when the recording is stopped.
	c.recorder.file.Close()
	c.processInput([]float32{0.5, -0.5, 0.25, -0.25})

	if c.IsRecording() {
		t.Error("recorder still active after a write failure")
	}
	if err := c.StopRecording(); err == nil {
		t.Error("write failure not reported at stop")
	}
}

func TestSyntheticInputLifecycle(t *testing.T) {
	s := NewSyntheticInput(25000, 120, 60, 0.8)

	if !s.IsInitialized() {
		t.Fatal("synthetic input must always be initialized")
	}
	if got := s.SignalLevel(); got != 0.5 {
		t.Errorf("pre-read level = %g, want nominal 0.5", got)
	}

	// The train opens with a burst; the first samples carry tone energy.
	nonzero := false
	for i := 0; i < 2000; i++ {
		if s.ReadSample() != 0 {
			nonzero = true
		}
	}
	if !nonzero {
		t.Fatal("no signal in first burst window")
	}
	if got := s.SignalLevel(); got < 0.3 {
		t.Errorf("level = %g after burst, want >= 0.3", got)
	}
}
