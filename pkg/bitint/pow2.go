/*
Package bitint provides the small bit tricks the transform engines need:
validating a transform size and counting butterfly stages and shift bits.

All functions are allocation free and constant time.

Usage:

	if !bitint.IsPowerOfTwo(n) { ... }
	stages := bitint.Log2(512)          // 9 radix-2 stages
	halvings := bitint.ShiftCount(0x1ff, stages)
*/
package bitint

import "math/bits"

// IsPowerOfTwo checks if n is a power of 2 using bit manipulation.
// Powers of 2 have exactly one bit set, so n&(n-1) clears it to zero.
//
//	Input  Output  Binary
//	8      true    1000 & 0111 = 0000
//	7      false   0111 & 0110 = 0110
//	0      false   Not positive
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// Log2 returns floor(log2(n)) for n > 0 and 0 otherwise. For a power of two
// this is the number of radix-2 stages of an n-point transform.
func Log2(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// ShiftCount returns how many of the lowest stages bits of mask are set,
// i.e. how many times a per-stage shift mask halves the transform output.
func ShiftCount(mask uint32, stages int) int {
	if stages <= 0 {
		return 0
	}
	if stages < 32 {
		mask &= 1<<uint(stages) - 1
	}
	return bits.OnesCount32(mask)
}
