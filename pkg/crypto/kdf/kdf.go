// Copyright 2025 Veritas Documents
//
// Passphrase KDF - derives a symmetric key from a low-entropy passphrase
// and a random salt, at a cost high enough that a single guess is
// expensive on commodity hardware. Uses PBKDF2-HMAC-SHA256.
package kdf

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// DefaultIterations puts a single passphrase guess in the
// tens-of-milliseconds range on commodity hardware.
const DefaultIterations = 150_000

// KeyLen is the derived key length in bytes (suitable for the aead package).
const KeyLen = 32

// Derive is deterministic: identical passphrase, salt, and cost always
// yield identical output.
func Derive(passphrase []byte, salt []byte, iterations int) []byte {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return pbkdf2.Key(passphrase, salt, iterations, KeyLen, sha256.New)
}
