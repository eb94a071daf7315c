package util

import "unicode/utf8"

// IsASCII checks, if the byte slice only contains ASCII characters.
func IsASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// IsOctDigit checks if the given byte is an octal digit.
func IsOctDigit(c byte) bool {
	return '0' <= c && c <= '7'
}

// IsOctString checks if the byte slice is non-empty and consists only of octal digits.
func IsOctString(b []byte) bool {
	if len(b) == 0 {
		return false
	}

	for _, c := range b {
		if !IsOctDigit(c) {
			return false
		}
	}

	return true
}
