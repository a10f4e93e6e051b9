// Copyright 2025 Veritas Documents
//
// Envelope Codec - the hybrid KEM+AEAD ciphertext envelope that is the only
// form in which user data crosses process boundaries. Every envelope carries
// its own algorithm identifier and version so a reader can reject anything
// it does not know how to open before touching key material.
package envelope

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/veritas/vdc/pkg/crypto/aead"
	"github.com/veritas/vdc/pkg/crypto/canonical"
	"github.com/veritas/vdc/pkg/crypto/pqc"
)

// Version is the only envelope version this codec produces or accepts.
const Version = "1.0"

// Algorithm is the fixed hybrid suite identifier: "<kem>+<aead>".
const Algorithm = pqc.KEMAlgorithm + "+ChaCha20-Poly1305"

// ErrUnsupported is returned when the envelope's version or algorithm is not
// recognized.
var ErrUnsupported = errors.New("envelope: unsupported version or algorithm")

// Envelope is the wire/at-rest representation of an encrypted payload.
type Envelope struct {
	Version   string          `json:"version"`
	Algorithm string          `json:"algorithm"`
	KEMCt     canonical.Bytes `json:"kem_ct"`
	IV        canonical.Bytes `json:"iv"`
	CT        canonical.Bytes `json:"ct"`
}

// Seal encrypts plaintext for recipientPub, authenticating aad. A correctly
// constructed envelope decrypts iff the caller holds the recipient's KEM
// private key.
func Seal(recipientPub *pqc.KEMPublicKey, aad, plaintext []byte) (*Envelope, error) {
	kemCt, sharedKey, err := pqc.KEMEncap(recipientPub)
	if err != nil {
		return nil, fmt.Errorf("envelope: encapsulate: %w", err)
	}

	iv := make([]byte, aead.NonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("envelope: draw iv: %w", err)
	}

	ct, err := aead.Seal(sharedKey, iv, aad, plaintext)
	if err != nil {
		return nil, fmt.Errorf("envelope: seal: %w", err)
	}

	return &Envelope{
		Version:   Version,
		Algorithm: Algorithm,
		KEMCt:     kemCt,
		IV:        iv,
		CT:        ct,
	}, nil
}

// Open recovers the plaintext sealed for recipientPriv. Any tamper of any
// envelope field causes either pqc.ErrInvalidCiphertext or
// aead.ErrAuthFailure - the envelope leaks only its algorithm identifier and
// length bounds, never which check failed.
func Open(recipientPriv *pqc.KEMPrivateKey, aad []byte, env *Envelope) ([]byte, error) {
	if env == nil || env.Version != Version || env.Algorithm != Algorithm {
		return nil, ErrUnsupported
	}

	sharedKey, err := pqc.KEMDecap(recipientPriv, env.KEMCt)
	if err != nil {
		return nil, err
	}

	return aead.Open(sharedKey, env.IV, aad, env.CT)
}
