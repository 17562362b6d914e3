// SPDX-License-Identifier: MIT
/*
Package audio implements the audio input side of the detection engine:
- PortAudio capture into a bounded sample ring
- Windowed RMS signal level with automatic gain calibration
- Optional noise gate on the captured stream
- Optional WAV recording of the raw input
- A synthetic input for hardware-free operation and testing

The capture callback runs on a dedicated OS thread and uses pre-allocated
buffers only. Detector instances consume samples through the detect.AudioInput
capability; they never touch PortAudio directly.
*/
package audio

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"tempo/internal/config"
	"tempo/pkg/bitint"
)

// levelWindowSize is the number of recent samples feeding the RMS signal
// level estimate.
const levelWindowSize = 100

// levelMeter tracks a windowed RMS of the input and normalizes it against
// the loudest RMS seen since the last calibration reset, yielding the 0..1
// signal level the detectors adapt their thresholds to.
type levelMeter struct {
	squares [levelWindowSize]float64
	pos     int
	filled  int
	sum     float64
	maxRMS  float64
}

func (l *levelMeter) add(v float64) {
	sq := v * v
	l.sum += sq - l.squares[l.pos]
	l.squares[l.pos] = sq
	l.pos = (l.pos + 1) % levelWindowSize
	if l.filled < levelWindowSize {
		l.filled++
	}

	if rms := l.rms(); rms > l.maxRMS {
		l.maxRMS = rms
	}
}

func (l *levelMeter) rms() float64 {
	if l.filled == 0 {
		return 0
	}
	mean := l.sum / float64(l.filled)
	if mean < 0 {
		mean = 0 // float drift in the running sum
	}
	return math.Sqrt(mean)
}

// level returns the current RMS normalized by the calibration peak.
func (l *levelMeter) level() float64 {
	if l.maxRMS < 1e-9 {
		return 0
	}
	v := l.rms() / l.maxRMS
	if v > 1 {
		v = 1
	}
	return v
}

func (l *levelMeter) reset() {
	*l = levelMeter{}
}

// Capture is a PortAudio input engine exposing the captured stream through
// the detect.AudioInput capability set. Samples land in a bounded ring:
// the callback is the single writer, the manager's update cycle the single
// reader. On overflow the oldest samples are dropped.
type Capture struct {
	cfg        config.CaptureConfig
	sampleRate float64
	device     *portaudio.DeviceInfo
	latency    time.Duration
	stream     *portaudio.Stream

	mu    sync.Mutex
	ring  []float64
	mask  int
	head  int // next read position
	count int
	meter levelMeter

	gateThreshold float64 // samples below this amplitude are zeroed, 0 disables

	initialized atomic.Bool

	recorder recorder
}

// NewCapture resolves the input device and pre-allocates one second of ring
// capacity. PortAudio must already be initialized.
func NewCapture(cfg config.CaptureConfig, sampleRate float64) (*Capture, error) {
	device, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}

	capacity := bitint.NextPowerOfTwo(int(sampleRate))
	c := &Capture{
		cfg:        cfg,
		sampleRate: sampleRate,
		device:     device,
		ring:       make([]float64, capacity),
		mask:       capacity - 1,
	}

	if cfg.LowLatency {
		c.latency = device.DefaultLowInputLatency
	} else {
		c.latency = device.DefaultHighInputLatency
	}
	return c, nil
}

// Start opens and starts the input stream. The capture callback begins
// filling the ring immediately.
func (c *Capture) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: c.cfg.Channels,
			Device:   c.device,
			Latency:  c.latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0,
			Device:   nil,
		},
		FramesPerBuffer: c.cfg.FramesPerBuffer,
		SampleRate:      c.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, c.processInput)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	c.stream = stream

	if err := c.stream.Start(); err != nil {
		c.stream.Close()
		c.stream = nil
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	c.initialized.Store(true)
	return nil
}

// Stop stops and closes the input stream. Safe to call when not started.
func (c *Capture) Stop() error {
	c.initialized.Store(false)
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return err
	}
	if err := c.stream.Close(); err != nil {
		return err
	}
	c.stream = nil
	return nil
}

// Close stops recording (if active) and the input stream.
func (c *Capture) Close() error {
	if err := c.StopRecording(); err != nil {
		return err
	}
	return c.Stop()
}

// SetGateThreshold sets the noise gate amplitude. Samples whose absolute
// value falls below it are zeroed before entering the ring. Zero disables
// the gate.
func (c *Capture) SetGateThreshold(threshold float64) {
	c.mu.Lock()
	c.gateThreshold = threshold
	c.mu.Unlock()
}

// processInput is the capture callback.
// Performance critical:
// - Runs on a dedicated OS thread (LockOSThread)
// - Pre-allocated buffers only, no allocation
func (c *Capture) processInput(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	c.mu.Lock()
	frames := len(in) / c.cfg.Channels
	for i := 0; i < frames; i++ {
		var v float64
		if c.cfg.Channels == 1 {
			v = float64(in[i])
		} else {
			// Average the channels down to mono.
			var sum float64
			for ch := 0; ch < c.cfg.Channels; ch++ {
				sum += float64(in[i*c.cfg.Channels+ch])
			}
			v = sum / float64(c.cfg.Channels)
		}

		if c.gateThreshold > 0 && math.Abs(v) < c.gateThreshold {
			v = 0
		}

		c.pushLocked(v)
	}
	c.mu.Unlock()

	c.recorder.write(in)
}

func (c *Capture) pushLocked(v float64) {
	c.meter.add(v)
	if c.count == len(c.ring) {
		c.head = (c.head + 1) & c.mask // overflow drops the oldest
		c.count--
	}
	c.ring[(c.head+c.count)&c.mask] = v
	c.count++
}

// ReadSample pops the oldest buffered sample, or 0 when the ring is empty.
func (c *Capture) ReadSample() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == 0 {
		return 0
	}
	v := c.ring[c.head]
	c.head = (c.head + 1) & c.mask
	c.count--
	return v
}

// Pending returns the number of buffered samples waiting to be read.
func (c *Capture) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// SignalLevel returns the normalized 0..1 signal level.
func (c *Capture) SignalLevel() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meter.level()
}

// IsInitialized reports whether the input stream is running.
func (c *Capture) IsInitialized() bool {
	return c.initialized.Load()
}

// ResetCalibration clears the level meter's learned gain peak, forcing it
// to recalibrate from the live signal. Use after moving the microphone.
func (c *Capture) ResetCalibration() {
	c.mu.Lock()
	c.meter.reset()
	c.mu.Unlock()
}
