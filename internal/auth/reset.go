package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// NewResetToken returns a raw single-use reset token and its sha256 hash.
// Only the hash is ever persisted; the raw token goes to the student via an
// out-of-band channel.
func NewResetToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = hex.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ResetTokenEqual compares a computed hash against the stored one without
// leaking timing.
func ResetTokenEqual(stored, computed string) bool {
	a, errA := hex.DecodeString(stored)
	b, errB := hex.DecodeString(computed)
	if errA != nil || errB != nil || len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
