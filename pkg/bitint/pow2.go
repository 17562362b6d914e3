// SPDX-License-Identifier: MIT
//
// Package bitint provides power-of-two helpers for FFT and ring buffer
// sizing. All operations are O(1), allocation-free, and safe to call from
// real-time code.
package bitint

import "math/bits"

// IsPowerOfTwo reports whether n is a positive power of 2.
// Powers of 2 have exactly one bit set, so (n & (n-1)) clears to zero
// only for them.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo returns the smallest power of 2 >= size.
// Exact powers of 2 are returned unchanged; the size-1 subtraction is what
// prevents them from being doubled. Non-positive sizes yield 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len64(uint64(size-1))
}

// Mask returns the index mask for a power-of-two capacity, or -1 if the
// capacity is not a power of 2. Wrap-around ring indices can then be
// computed as (i & mask) instead of a modulo.
func Mask(capacity int) int {
	if !IsPowerOfTwo(capacity) {
		return -1
	}
	return capacity - 1
}
