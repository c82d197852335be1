// SPDX-License-Identifier: MIT
/*
Package bitint holds the power-of-two helpers used to size FFTs and
buffers. Both functions are constant time and never allocate.

	size := bitint.NextPowerOfTwo(1000) // 1024
	ok := bitint.IsPowerOfTwo(size)     // true
*/
package bitint

import "math/bits"

// NextPowerOfTwo returns the smallest power of 2 >= size, or 1 for size <= 0.
//
// size-1 keeps exact powers unchanged: for 8, bits.Len(7) is 3 and 1<<3 is 8.
// Without it bits.Len(8) would be 4 and the result would double.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}

// IsPowerOfTwo reports whether n has exactly one bit set.
//
//	8  1000 & 0111 = 0000  true
//	7  0111 & 0110 = 0110  false
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
