// SPDX-License-Identifier: MIT
package detect

import "testing"

func TestSampleBufferRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := NewSampleBuffer(1000); err == nil {
		t.Error("expected error for non power-of-2 capacity")
	}
	if _, err := NewSampleBuffer(1024); err != nil {
		t.Errorf("unexpected error for valid capacity: %v", err)
	}
}

func TestSampleBufferReadySemantics(t *testing.T) {
	buf, err := NewSampleBuffer(8)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 7; i++ {
		if buf.Ready() {
			t.Fatalf("buffer ready after %d of 8 samples", i)
		}
		buf.Push(float64(i))
	}
	if buf.Ready() {
		t.Fatal("buffer ready after 7 of 8 samples")
	}
	buf.Push(7)
	if !buf.Ready() {
		t.Fatal("buffer not ready after 8 samples")
	}

	// Ready never reverts once a full window has been written.
	buf.Push(8)
	if !buf.Ready() {
		t.Fatal("buffer lost readiness after wrap")
	}
}

func TestSampleBufferChronologicalOrder(t *testing.T) {
	buf, _ := NewSampleBuffer(8)
	dst := make([]float64, 8)

	// Push 11 samples: the last 8 (3..10) must come out oldest-first.
	for i := 0; i < 11; i++ {
		buf.Push(float64(i))
	}
	if err := buf.CopyChronological(dst); err != nil {
		t.Fatal(err)
	}
	for i, want := 0, 3.0; i < 8; i, want = i+1, want+1 {
		if dst[i] != want {
			t.Errorf("dst[%d] = %g, want %g", i, dst[i], want)
		}
	}
}

func TestSampleBufferPartialFillIsZeroPadded(t *testing.T) {
	buf, _ := NewSampleBuffer(8)
	dst := make([]float64, 8)

	buf.Push(1)
	buf.Push(2)
	if err := buf.CopyChronological(dst); err != nil {
		t.Fatal(err)
	}

	// Oldest-first view: six zero-filled slots, then the two real samples.
	for i := 0; i < 6; i++ {
		if dst[i] != 0 {
			t.Errorf("dst[%d] = %g, want zero padding", i, dst[i])
		}
	}
	if dst[6] != 1 || dst[7] != 2 {
		t.Errorf("tail = %g, %g, want 1, 2", dst[6], dst[7])
	}
}

func TestSampleBufferCopyLengthMismatch(t *testing.T) {
	buf, _ := NewSampleBuffer(8)
	if err := buf.CopyChronological(make([]float64, 4)); err == nil {
		t.Error("expected error for wrong destination length")
	}
}

func TestSampleBufferReset(t *testing.T) {
	buf, _ := NewSampleBuffer(8)
	for i := 0; i < 20; i++ {
		buf.Push(1)
	}
	buf.Reset()

	if buf.Ready() {
		t.Error("buffer still ready after reset")
	}
	if buf.Written() != 0 {
		t.Errorf("written = %d after reset, want 0", buf.Written())
	}

	dst := make([]float64, 8)
	if err := buf.CopyChronological(dst); err != nil {
		t.Fatal(err)
	}
	for i, v := range dst {
		if v != 0 {
			t.Errorf("dst[%d] = %g after reset, want 0", i, v)
		}
	}
}

func BenchmarkSampleBufferPush(b *testing.B) {
	buf, _ := NewSampleBuffer(1024)
	b.ReportAllocs()
	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		buf.Push(0.5)
	}
}

func TestSampleBufferPushNoAllocs(t *testing.T) {
	buf, _ := NewSampleBuffer(1024)
	allocs := testing.AllocsPerRun(10000, func() {
		buf.Push(0.25)
	})
	if allocs != 0 {
		t.Errorf("Push allocated %.1f times per call, want 0", allocs)
	}
}
