/*
Package bitint provides the power-of-two helpers used to size analyser
windows. FFT sizes must be powers of two; callers validate configuration
with IsPowerOfTwo and round user input up with NextPowerOfTwo.

Usage:

	size := bitint.NextPowerOfTwo(2000) // 2048
	ok := bitint.IsPowerOfTwo(size)     // true

NextPowerOfTwo subtracts one before taking the bit length so that exact
powers of two map to themselves:

	8 -> 7 (0111) -> bits.Len = 3 -> 1<<3 = 8
	9 -> 8 (1000) -> bits.Len = 4 -> 1<<4 = 16
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the next power of 2 >= size.
//
//	Input  Output
//	4      4
//	5      8
//	0      1
//	-1     1
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n is a positive power of 2. A power of two
// has a single set bit, so clearing the lowest set bit leaves zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Log2 returns log2(n) for a power of two n, and -1 otherwise.
func Log2(n int) int {
	if !IsPowerOfTwo(n) {
		return -1
	}
	return bits.TrailingZeros(uint(n))
}
