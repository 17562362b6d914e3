// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// recorder writes the raw capture stream to a WAV file. The active flag is
// atomic so the capture callback can check it without taking a lock. A write
// failure parks its error in writeErr and deactivates the recorder; the
// callback itself never logs or blocks.
type recorder struct {
	active    atomic.Bool
	writeErr  atomic.Pointer[error]
	file      *os.File
	encoder   *wav.Encoder
	sampleBuf *goaudio.IntBuffer
	bitDepth  int
	scale     float64
}

// StartRecording begins writing the input stream to filename. bitDepth is
// 16, 24, or 32. Returns an error if a recording is already in progress.
func (c *Capture) StartRecording(filename string, bitDepth int) error {
	r := &c.recorder
	if r.active.Load() || r.encoder != nil {
		return fmt.Errorf("already recording")
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	r.file = file
	r.bitDepth = bitDepth
	r.scale = float64(int64(1)<<(bitDepth-1)) - 1
	r.encoder = wav.NewEncoder(file, int(c.sampleRate), bitDepth, c.cfg.Channels, 1)
	r.sampleBuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: c.cfg.Channels,
			SampleRate:  int(c.sampleRate),
		},
		SourceBitDepth: bitDepth,
		Data:           make([]int, c.cfg.FramesPerBuffer*c.cfg.Channels),
	}

	r.active.Store(true)
	return nil
}

// StopRecording finalizes the WAV file and reports any write failure that
// occurred in the capture callback. Safe to call when not recording.
func (c *Capture) StopRecording() error {
	r := &c.recorder
	r.active.Store(false)

	var closeErr error
	if r.encoder != nil {
		closeErr = r.encoder.Close()
		r.encoder = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
		r.file = nil
	}
	if p := r.writeErr.Swap(nil); p != nil {
		return fmt.Errorf("recording truncated: %w", *p)
	}
	return closeErr
}

// IsRecording reports whether a WAV recording is in progress.
func (c *Capture) IsRecording() bool {
	return c.recorder.active.Load()
}

// write converts one callback buffer to integer PCM and appends it to the
// WAV file. Called from the capture callback; a no-op unless recording.
func (r *recorder) write(in []float32) {
	if !r.active.Load() || r.encoder == nil {
		return
	}

	r.sampleBuf.Data = r.sampleBuf.Data[:cap(r.sampleBuf.Data)]
	n := len(in)
	if n > len(r.sampleBuf.Data) {
		n = len(r.sampleBuf.Data)
	}
	for i := 0; i < n; i++ {
		v := float64(in[i])
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		r.sampleBuf.Data[i] = int(v * r.scale)
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:n]

	if err := r.encoder.Write(r.sampleBuf); err != nil {
		// The callback must stay quiet; park the first error for
		// StopRecording and stop feeding a broken encoder.
		r.writeErr.CompareAndSwap(nil, &err)
		r.active.Store(false)
	}
}
