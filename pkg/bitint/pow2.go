/*
Package bitint provides the power-of-two helpers used when sizing FFT
frames and device buffers.

	frames := bitint.NextPowerOfTwo(1000) // 1024
	ok := bitint.IsPowerOfTwo(frames)

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two are preserved: for 8, bits.Len(7) is 3 and 1<<3 is 8, whereas
bits.Len(8) would be 4 and double the input.
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of two >= size. Non-positive
// sizes return 1.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// FloorPowerOfTwo returns the largest power of two <= size, or 0 when size
// is not positive. Used to trim a device block to an FFT frame.
func FloorPowerOfTwo(size int) int {
	if size <= 0 {
		return 0
	}
	return 1 << (bits.Len(uint(size)) - 1)
}
