package utils

import "fmt"

// FormatUintBinary renders value as a zero padded binary string of the
// given bit count.
func FormatUintBinary(value uint64, bits int) string {
	return fmt.Sprintf("%0*b", bits, value)
}

// FormatUintHex renders value as a zero padded hex string of the given
// digit count, 0x prefixed.
func FormatUintHex(value uint64, digits int) string {
	return fmt.Sprintf("0x%0*x", digits, value)
}
