// Package utils provides utility functions for the armadillo project.
package utils

import (
	"golang.org/x/exp/constraints"
)

// Returns an all ones bitmask of n bits of the given unsigned integer type
func AllOnes[T constraints.Unsigned](bits int) T {
	return (T(1) << bits) - T(1)
}

// Extracts the bit field starting at bit lo with the given width
func Field[T constraints.Unsigned](value T, lo int, width int) T {
	return (value >> lo) & AllOnes[T](width)
}

// Replaces the bit field starting at bit lo with the low bits of field.
// All most significant bits of field not fitting into the destination range are ignored.
func WithField[T constraints.Unsigned](value T, field T, lo int, width int) T {
	mask := AllOnes[T](width) << lo
	return (value &^ mask) | ((field << lo) & mask)
}

// Reports whether bit n of value is set
func Bit[T constraints.Unsigned](value T, n int) bool {
	return (value>>n)&1 != 0
}

// Returns value with bit n set to 1 or 0
func WithBit[T constraints.Unsigned](value T, n int, set bool) T {
	if set {
		return value | (T(1) << n)
	}
	return value &^ (T(1) << n)
}

// Sign extends the low bits of value to a full 32 bit word
func SignExtend(value uint32, bits int) uint32 {
	shift := 32 - bits
	return uint32(int32(value<<shift) >> shift)
}

// Rotates a 32 bit value right by n bits
func RotateRight(value uint32, n uint) uint32 {
	n %= 32
	if n == 0 {
		return value
	}
	return (value >> n) | (value << (32 - n))
}
