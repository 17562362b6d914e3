// SPDX-License-Identifier: MIT
package detect

import (
	"fmt"

	"tempo/pkg/bitint"
)

// SampleBuffer is a fixed-capacity circular buffer of the most recent
// samples, sized to the FFT window. Push is O(1) via a wrap-around write
// index and never allocates. The buffer is owned exclusively by one detector
// instance: single writer, single reader, no locking.
type SampleBuffer struct {
	data    []float64
	mask    int
	writeAt int
	written uint64 // total samples ever pushed, distinguishes "logically full" from "zero-filled"
}

// NewSampleBuffer allocates a buffer for exactly capacity samples. The
// capacity must be a power of 2 so wrap-around reduces to a bit mask.
func NewSampleBuffer(capacity int) (*SampleBuffer, error) {
	if !bitint.IsPowerOfTwo(capacity) {
		return nil, fmt.Errorf("sample buffer capacity must be a power of 2, got %d", capacity)
	}
	return &SampleBuffer{
		data: make([]float64, capacity),
		mask: bitint.Mask(capacity),
	}, nil
}

// Push appends a sample, overwriting the oldest once the buffer is full.
// Always succeeds; pushing before Ready simply accumulates.
func (b *SampleBuffer) Push(v float64) {
	b.data[b.writeAt] = v
	b.writeAt = (b.writeAt + 1) & b.mask
	b.written++
}

// Ready reports whether a full window of real samples has been written.
func (b *SampleBuffer) Ready() bool {
	return b.written >= uint64(len(b.data))
}

// Cap returns the fixed capacity.
func (b *SampleBuffer) Cap() int {
	return len(b.data)
}

// Written returns the total number of samples ever pushed.
func (b *SampleBuffer) Written() uint64 {
	return b.written
}

// CopyChronological linearizes the ring into dst, oldest sample first.
// dst must be exactly Cap() long. The write index is the oldest slot once
// the buffer has wrapped; before that the tail is still zero-filled, which
// downstream treats as silence.
func (b *SampleBuffer) CopyChronological(dst []float64) error {
	if len(dst) != len(b.data) {
		return fmt.Errorf("destination length %d does not match capacity %d", len(dst), len(b.data))
	}
	n := copy(dst, b.data[b.writeAt:])
	copy(dst[n:], b.data[:b.writeAt])
	return nil
}

// Reset discards all samples and returns the buffer to its zero-filled
// initial state. Capacity is unchanged.
func (b *SampleBuffer) Reset() {
	for i := range b.data {
		b.data[i] = 0
	}
	b.writeAt = 0
	b.written = 0
}
