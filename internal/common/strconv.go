package common

import "strconv"

// AtoiDefault parses s as an int, falling back to def on failure.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
