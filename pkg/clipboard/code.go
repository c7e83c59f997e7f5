package clipboard

import (
	"crypto/sha256"
	"encoding/hex"
)

// CodeLength is the number of hex characters in a share code.
const CodeLength = 12

// Code returns the share code for tok: the leading hex digits of its
// SHA-256 hash.
func Code(tok string) string {
	return Hash([]byte(tok))[:CodeLength]
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
