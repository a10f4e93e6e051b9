// Copyright 2025 Veritas Documents
//
// AEAD cipher adapter - authenticated symmetric encryption for envelope
// payloads and keypack wrapping, over ChaCha20-Poly1305.
package aead

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the required length of the iv passed to Seal/Open.
const NonceSize = chacha20poly1305.NonceSize // 12 bytes

// ErrAuthFailure is returned by Open when the authentication tag does not
// match - either the key is wrong or the ciphertext (or aad) was tampered.
var ErrAuthFailure = errors.New("aead: authentication failed")

// Seal encrypts pt under key, authenticating aad alongside it. key must be
// 32 bytes; iv must be NonceSize bytes and must never repeat under the same
// key.
func Seal(key, iv, aad, pt []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("aead: new cipher: %w", err)
	}
	if len(iv) != NonceSize {
		return nil, fmt.Errorf("aead: iv must be %d bytes, got %d", NonceSize, len(iv))
	}
	return aead.Seal(nil, iv, pt, aad), nil
}

// Open decrypts ct produced by Seal. It fails closed with ErrAuthFailure on
// any tamper of key, iv, aad, or ct - the caller cannot distinguish which.
func Open(key, iv, aad, ct []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("aead: new cipher: %w", err)
	}
	if len(iv) != NonceSize {
		return nil, ErrAuthFailure
	}
	pt, err := aead.Open(nil, iv, ct, aad)
	if err != nil {
		return nil, ErrAuthFailure
	}
	return pt, nil
}
