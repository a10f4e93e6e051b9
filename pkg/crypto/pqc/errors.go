// Copyright 2025 Veritas Documents
package pqc

import "errors"

// Sentinel errors for the crypto primitives adapter. Verification failures
// never panic; malformed input is always reported through these.
var (
	ErrInvalidKey        = errors.New("pqc: invalid key")
	ErrInvalidCiphertext = errors.New("pqc: invalid ciphertext")
)
