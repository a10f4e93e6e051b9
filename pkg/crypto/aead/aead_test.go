// Copyright 2025 Veritas Documents
//
// AEAD Cipher Adapter Tests

package aead

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return b
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := randomBytes(t, 32)
	iv := randomBytes(t, NonceSize)
	aad := []byte("veritas-keypack-v1")
	pt := []byte("the quick brown fox")

	ct, err := Seal(key, iv, aad, pt)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	recovered, err := Open(key, iv, aad, ct)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(recovered, pt) {
		t.Fatalf("recovered plaintext does not match original")
	}
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	key := randomBytes(t, 32)
	iv := randomBytes(t, NonceSize)
	aad := []byte("aad")
	ct, err := Seal(key, iv, aad, []byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	ct[0] ^= 0xFF
	if _, err := Open(key, iv, aad, ct); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure, got %v", err)
	}
}

func TestOpenRejectsTamperedAAD(t *testing.T) {
	key := randomBytes(t, 32)
	iv := randomBytes(t, NonceSize)
	ct, err := Seal(key, iv, []byte("aad-one"), []byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(key, iv, []byte("aad-two"), ct); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure on mismatched aad, got %v", err)
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	iv := randomBytes(t, NonceSize)
	aad := []byte("aad")
	ct, err := Seal(randomBytes(t, 32), iv, aad, []byte("secret"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if _, err := Open(randomBytes(t, 32), iv, aad, ct); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure on wrong key, got %v", err)
	}
}

func TestOpenRejectsWrongIVLength(t *testing.T) {
	key := randomBytes(t, 32)
	if _, err := Open(key, []byte("short"), []byte("aad"), []byte("ct")); !errors.Is(err, ErrAuthFailure) {
		t.Fatalf("expected ErrAuthFailure on short iv, got %v", err)
	}
}
