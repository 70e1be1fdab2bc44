// Package utils holds small helpers shared by the matchfeed packages.
package utils

import "unicode/utf8"

// Truncate shortens s to at most maxRunes runes and appends "..." when it cut anything.
// A non-positive maxRunes returns s unchanged. Multi-byte characters are never split.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
