package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Slug derives the destination resource key for a source item id.
// It is a pure function of originalID.
func Slug(originalID string) string {
	sum := sha256.Sum256([]byte(originalID))
	return hex.EncodeToString(sum[:])
}
