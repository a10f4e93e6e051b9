// Copyright 2025 Veritas Documents
//
// Crypto Primitives Adapter - uniform KEM and signature surface used by
// every component that needs to encrypt an envelope recipient key or check
// a proof of possession.
//
// KEM: ML-KEM-768 (NIST FIPS 203), via the standard library's crypto/mlkem.
// Signature: Ed25519 (RFC 8032), via the standard library's crypto/ed25519,
// standing in for a post-quantum signature slot until a standardized PQC
// signature scheme (ML-DSA) lands in the standard library - see SPEC_FULL.md
// Open Question 1.
package pqc

import (
	"crypto/ed25519"
	"crypto/mlkem"
	"crypto/rand"
	"fmt"
)

// KEMAlgorithm and SigAlgorithm are the wire identifiers used in
// EncryptionEnvelope.algorithm and Keypack.keyType.
const (
	KEMAlgorithm = "ML-KEM-768"
	SigAlgorithm = "Ed25519"

	KEMCiphertextSize   = 1088
	KEMSharedSecretSize = 32
)

// KEMPublicKey and KEMPrivateKey wrap the standard library's ML-KEM-768
// types so callers never need to import crypto/mlkem directly.
type KEMPublicKey struct{ key *mlkem.EncapsulationKey768 }
type KEMPrivateKey struct{ key *mlkem.DecapsulationKey768 }

func (k *KEMPublicKey) Bytes() []byte {
	if k == nil || k.key == nil {
		return nil
	}
	return k.key.Bytes()
}

func (k *KEMPrivateKey) Bytes() []byte {
	if k == nil || k.key == nil {
		return nil
	}
	return k.key.Bytes()
}

func (k *KEMPrivateKey) PublicKey() *KEMPublicKey {
	return &KEMPublicKey{key: k.key.EncapsulationKey()}
}

// KEMPublicKeyFromBytes parses a previously-serialized ML-KEM-768
// encapsulation key.
func KEMPublicKeyFromBytes(b []byte) (*KEMPublicKey, error) {
	key, err := mlkem.NewEncapsulationKey768(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &KEMPublicKey{key: key}, nil
}

// KEMPrivateKeyFromBytes parses a previously-serialized ML-KEM-768 seed.
func KEMPrivateKeyFromBytes(seed []byte) (*KEMPrivateKey, error) {
	key, err := mlkem.NewDecapsulationKey768(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &KEMPrivateKey{key: key}, nil
}

// KEMKeygen generates a fresh ML-KEM-768 key pair.
func KEMKeygen() (*KEMPublicKey, *KEMPrivateKey, error) {
	priv, err := mlkem.GenerateKey768()
	if err != nil {
		return nil, nil, fmt.Errorf("pqc: kem keygen: %w", err)
	}
	return &KEMPublicKey{key: priv.EncapsulationKey()}, &KEMPrivateKey{key: priv}, nil
}

// KEMEncap encapsulates a fresh shared key against the recipient's public
// key, returning the KEM ciphertext and the shared symmetric key.
func KEMEncap(pub *KEMPublicKey) (ciphertext, sharedKey []byte, err error) {
	if pub == nil || pub.key == nil {
		return nil, nil, ErrInvalidKey
	}
	sharedKey, ciphertext = pub.key.Encapsulate()
	return ciphertext, sharedKey, nil
}

// KEMDecap recovers the shared symmetric key from a KEM ciphertext.
func KEMDecap(priv *KEMPrivateKey, ciphertext []byte) ([]byte, error) {
	if priv == nil || priv.key == nil {
		return nil, ErrInvalidKey
	}
	if len(ciphertext) != KEMCiphertextSize {
		return nil, ErrInvalidCiphertext
	}
	sharedKey, err := priv.key.Decapsulate(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return sharedKey, nil
}

// SigPublicKey and SigPrivateKey are the Ed25519 signature key types.
type SigPublicKey []byte
type SigPrivateKey []byte

// SigKeygen generates a fresh Ed25519 key pair.
func SigKeygen() (SigPublicKey, SigPrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("pqc: sig keygen: %w", err)
	}
	return SigPublicKey(pub), SigPrivateKey(priv), nil
}

// SigSign signs msg with priv. It never panics; a malformed key returns an
// error rather than corrupting the process.
func SigSign(priv SigPrivateKey, msg []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKey
	}
	return ed25519.Sign(ed25519.PrivateKey(priv), msg), nil
}

// SigVerify reports whether sig is a valid signature over msg under pub. It
// returns false (never an error) on verification failure, and an error only
// when the inputs are structurally invalid (wrong key length).
func SigVerify(pub SigPublicKey, msg, sig []byte) (bool, error) {
	if len(pub) != ed25519.PublicKeySize {
		return false, ErrInvalidKey
	}
	if len(sig) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(ed25519.PublicKey(pub), msg, sig), nil
}
