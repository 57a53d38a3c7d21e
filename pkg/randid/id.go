// Package randid provides random ID generation utilities.
package randid

import "math/rand/v2"

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate creates a random lowercase alphanumeric ID of the specified length.
func Generate(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}

// Prefixed returns prefix + "-" + a random ID, e.g. "i-3k9x0a2b".
func Prefixed(prefix string, length int) string {
	return prefix + "-" + Generate(length)
}
