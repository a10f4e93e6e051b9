// Copyright 2025 Veritas Documents
//
// Crypto Primitives Adapter Tests

package pqc

import (
	"bytes"
	"testing"
)

func TestKEMEncapDecapRoundTrip(t *testing.T) {
	pub, priv, err := KEMKeygen()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	ct, shared, err := KEMEncap(pub)
	if err != nil {
		t.Fatalf("encap: %v", err)
	}
	if len(ct) != KEMCiphertextSize {
		t.Fatalf("ciphertext size = %d, want %d", len(ct), KEMCiphertextSize)
	}
	recovered, err := KEMDecap(priv, ct)
	if err != nil {
		t.Fatalf("decap: %v", err)
	}
	if !bytes.Equal(shared, recovered) {
		t.Fatalf("decapsulated shared key does not match encapsulated one")
	}
}

func TestKEMDecapRejectsTamperedCiphertext(t *testing.T) {
	pub, priv, err := KEMKeygen()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	ct, shared, err := KEMEncap(pub)
	if err != nil {
		t.Fatalf("encap: %v", err)
	}
	tampered := append([]byte(nil), ct...)
	tampered[0] ^= 0xFF
	// ML-KEM uses implicit rejection: a well-sized but altered ciphertext
	// decapsulates without error to an unrelated key, so the tamper surfaces
	// when an envelope's AEAD open fails under that key.
	recovered, err := KEMDecap(priv, tampered)
	if err != nil {
		t.Fatalf("decap: %v", err)
	}
	if bytes.Equal(shared, recovered) {
		t.Fatalf("expected decap of tampered ciphertext to yield a different key")
	}
}

func TestKEMDecapRejectsWrongLengthCiphertext(t *testing.T) {
	_, priv, err := KEMKeygen()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if _, err := KEMDecap(priv, []byte("too-short")); err != ErrInvalidCiphertext {
		t.Fatalf("expected ErrInvalidCiphertext, got %v", err)
	}
}

func TestKEMDecapRejectsNilKey(t *testing.T) {
	if _, err := KEMDecap(nil, make([]byte, KEMCiphertextSize)); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestSigSignVerifyBinding(t *testing.T) {
	pub, priv, err := SigKeygen()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	msg := []byte("canonical-transaction-bytes")
	sig, err := SigSign(priv, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ok, err := SigVerify(pub, msg, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatalf("expected signature to verify")
	}

	ok, err = SigVerify(pub, []byte("a different message"), sig)
	if err != nil {
		t.Fatalf("verify other message: %v", err)
	}
	if ok {
		t.Fatalf("expected signature over a different message to fail verification")
	}
}

func TestSigVerifyNeverPanicsOnMalformedInput(t *testing.T) {
	if ok, err := SigVerify(nil, []byte("x"), []byte("y")); ok || err != ErrInvalidKey {
		t.Fatalf("expected (false, ErrInvalidKey) for nil public key, got (%v, %v)", ok, err)
	}
	pub, _, err := SigKeygen()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if ok, err := SigVerify(pub, []byte("x"), []byte("too-short")); ok || err != nil {
		t.Fatalf("expected (false, nil) for malformed signature, got (%v, %v)", ok, err)
	}
}

func TestSigSignRejectsMalformedKey(t *testing.T) {
	if _, err := SigSign(SigPrivateKey([]byte("not-a-real-key")), []byte("msg")); err != ErrInvalidKey {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}
