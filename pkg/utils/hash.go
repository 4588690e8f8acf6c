package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HexSHA256 returns the hex-encoded SHA-256 checksum of data, used to
// fingerprint exported fabrication artifacts.
func HexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
