// Package cipher implements the numeric substitution cipher used to turn a
// machine-generated access key into the puzzle shown on the gate screen.
// Each digit is shifted by a fixed amount modulo 10. This is an obfuscation
// layer for the front-end puzzle, not a confidentiality mechanism: the only
// real protection for a key at rest is its one-way hash.
package cipher

import (
	"errors"
	"fmt"
)

// ErrNotNumeric is returned when the input contains a non-digit character.
var ErrNotNumeric = errors.New("cipher: input must be numeric")

// Encode replaces every digit d with (d + shift) mod 10.
func Encode(plain string, shift int) (string, error) {
	return transform(plain, shift)
}

// Decode is the inverse of Encode for the same shift.
func Decode(ciphered string, shift int) (string, error) {
	return transform(ciphered, -shift)
}

func transform(in string, shift int) (string, error) {
	if shift < -9 || shift > 9 {
		return "", fmt.Errorf("cipher: shift %d out of range", shift)
	}
	out := make([]byte, len(in))
	for i := 0; i < len(in); i++ {
		c := in[i]
		if c < '0' || c > '9' {
			return "", ErrNotNumeric
		}
		d := int(c-'0') + shift
		d = ((d % 10) + 10) % 10
		out[i] = byte('0' + d)
	}
	return string(out), nil
}
