package utils

import (
	"crypto/rand"   // secure random number generation
	"crypto/sha256" // SHA-256 hashing for reset secrets
	"encoding/hex"
)

// resetSecretBytes is the entropy of a password reset secret (64 hex chars).
const resetSecretBytes = 32

// NewResetSecret returns a fresh hex-encoded reset secret. Only its hash,
// from HashSecret, is ever stored.
func NewResetSecret() (string, error) {
	return randomHex(resetSecretBytes)
}

// HashSecret returns the SHA-256 hash of a raw secret as a hex string.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// randomHex returns a hex-encoded string generated from n bytes of
// cryptographically secure random data.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
