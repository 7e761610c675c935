package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Checksum returns the sha256 hex digest of the trimmed text.
func Checksum(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}
