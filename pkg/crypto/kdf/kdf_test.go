// Copyright 2025 Veritas Documents
//
// Passphrase KDF Tests

package kdf

import "testing"

func TestDeriveIsDeterministic(t *testing.T) {
	salt := []byte("0123456789abcdef")
	a := Derive([]byte("correct horse battery staple"), salt, 1000)
	b := Derive([]byte("correct horse battery staple"), salt, 1000)
	if string(a) != string(b) {
		t.Fatalf("expected identical inputs to derive identical keys")
	}
	if len(a) != KeyLen {
		t.Fatalf("derived key length = %d, want %d", len(a), KeyLen)
	}
}

func TestDeriveDiffersOnPassphraseSaltOrCost(t *testing.T) {
	base := Derive([]byte("passphrase-one"), []byte("salt-aaaaaaaaaa"), 1000)

	if string(Derive([]byte("passphrase-two"), []byte("salt-aaaaaaaaaa"), 1000)) == string(base) {
		t.Fatalf("expected different passphrase to derive a different key")
	}
	if string(Derive([]byte("passphrase-one"), []byte("salt-bbbbbbbbbb"), 1000)) == string(base) {
		t.Fatalf("expected different salt to derive a different key")
	}
	if string(Derive([]byte("passphrase-one"), []byte("salt-aaaaaaaaaa"), 2000)) == string(base) {
		t.Fatalf("expected different cost to derive a different key")
	}
}

func TestDeriveDefaultsNonPositiveIterations(t *testing.T) {
	salt := []byte("0123456789abcdef")
	a := Derive([]byte("p"), salt, 0)
	b := Derive([]byte("p"), salt, DefaultIterations)
	if string(a) != string(b) {
		t.Fatalf("expected iterations <= 0 to fall back to DefaultIterations")
	}
}
