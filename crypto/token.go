package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

// SecureToken returns 2*length hex characters drawn from the system CSPRNG.
// length is in bytes and must be positive.
func SecureToken(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("token length must be positive, got %d", length)
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SecureHash returns the SHA-256 digest of data as lowercase hex.
// Deterministic for identical input and one-way.
func SecureHash(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// GenerateNonce returns a base64-encoded 128-bit random value. Nonces serve
// as CSP nonces, session identifiers, and audit correlation IDs; each call
// is independent and unpredictable.
//
// The function panics if the system's random number generator fails, which
// indicates a critical system-level security failure.
func GenerateNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand.Read failed: %v", err))
	}
	return base64.StdEncoding.EncodeToString(b)
}

// ConstantTimeEquals reports whether a and b are equal in time that depends
// only on their lengths. The length check may short-circuit since length is
// not secret; the byte comparison never does.
func ConstantTimeEquals(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
