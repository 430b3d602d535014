package services

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies a file by its exact bytes, independent of its name.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
