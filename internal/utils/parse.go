// Package utils provides small, generic parsing helpers used across the
// handler layer. Nothing in here knows about the domain.
package utils

import "strconv"

// AtoiDefault converts s to an int, returning def when s is empty or not a
// valid integer.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// ParseInt64 parses a base-10 64-bit integer. Unlike AtoiDefault it surfaces
// the error, for query parameters where a malformed value must be rejected
// rather than silently defaulted.
func ParseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
