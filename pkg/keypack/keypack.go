// Copyright 2025 Veritas Documents
//
// Keypack Service - wraps a user's key bundle behind a generated word
// passphrase. A keypack can be handed to a user as their sole recovery
// mechanism: anyone who knows the words can unwrap it, nobody else can,
// and the service itself never stores the passphrase.
package keypack

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/veritas/vdc/pkg/crypto/aead"
	"github.com/veritas/vdc/pkg/crypto/canonical"
	"github.com/veritas/vdc/pkg/crypto/kdf"
	"github.com/veritas/vdc/pkg/crypto/pqc"
)

// Format identifies the file container scheme. It doubles as the AAD bound
// into the seal, so a keypack ciphertext cannot be replayed into another
// container format that happens to share the key derivation.
const Format = "veritas-keypack-v1"

// Version is the bundle version this service produces and accepts.
const Version = "1.0"

// DefaultKeyType names the key suite carried by a bundle's kem/sig slots.
const DefaultKeyType = "pqc-kem-" + pqc.KEMAlgorithm + "-sig-" + pqc.SigAlgorithm

// PassphraseEntropyBits sizes NewPassphrase's draw: 128 bits of entropy
// renders as a 12-word BIP39 mnemonic (the 2048-word English list, 11 bits
// per word, plus a 4-bit checksum).
const PassphraseEntropyBits = 128

const saltSize = 16

var (
	// ErrWrongPassphraseOrCorrupt is returned when Unwrap's AEAD tag check
	// fails. It never distinguishes a wrong passphrase from corrupted or
	// tampered ciphertext.
	ErrWrongPassphraseOrCorrupt = errors.New("keypack: wrong passphrase or corrupted keypack")

	// ErrUnsupportedFormat is returned for a file container this service
	// does not know how to unwrap.
	ErrUnsupportedFormat = errors.New("keypack: unsupported keypack format")

	// ErrUnsupportedVersion is returned when a bundle carries a version or
	// keyType this service does not recognize.
	ErrUnsupportedVersion = errors.New("keypack: unsupported bundle version or key type")
)

// KeyPair holds one keypair's public and private halves. Both render as
// unpadded base64url on the wire.
type KeyPair struct {
	Public  canonical.Bytes `json:"public"`
	Private canonical.Bytes `json:"private"`
}

// Keys groups the two keypairs a bundle carries: the KEM pair that opens
// envelopes sealed for the user, and the signature pair that signs
// transactions.
type Keys struct {
	KEM KeyPair `json:"kem"`
	Sig KeyPair `json:"sig"`
}

// Bundle is the plaintext key bundle sealed inside a keypack file. It only
// ever exists client-side or transiently inside Wrap/Unwrap.
type Bundle struct {
	Version   string `json:"version"`
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
	KeyType   string `json:"keyType"`
	Keys      Keys   `json:"keys"`
}

// Encrypted is the ciphertext body of a keypack file.
type Encrypted struct {
	Salt canonical.Bytes `json:"salt"`
	IV   canonical.Bytes `json:"iv"`
	CT   canonical.Bytes `json:"ct"`
}

// File is the at-rest keypack container. The KDF cost is fixed by Format
// rather than recorded per file, so a tampered container cannot talk the
// unwrapper down to a cheap derivation.
type File struct {
	Format    string    `json:"format"`
	Encrypted Encrypted `json:"encrypted"`
}

// NewPassphrase draws a fresh 12-word passphrase from the standard BIP39
// English word list, carrying PassphraseEntropyBits bits of entropy.
func NewPassphrase() ([]string, error) {
	entropy, err := bip39.NewEntropy(PassphraseEntropyBits)
	if err != nil {
		return nil, fmt.Errorf("keypack: draw passphrase entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("keypack: render passphrase: %w", err)
	}
	return strings.Fields(mnemonic), nil
}

// Wrap derives a key from passphrase and seals bundle under it, returning
// the file container to hand back to the user.
func Wrap(bundle *Bundle, passphrase []string) (*File, error) {
	if bundle == nil || bundle.Version != Version || bundle.KeyType == "" {
		return nil, ErrUnsupportedVersion
	}

	pt, err := canonical.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("keypack: encode bundle: %w", err)
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keypack: draw salt: %w", err)
	}
	iv := make([]byte, aead.NonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("keypack: draw iv: %w", err)
	}

	key := kdf.Derive(passphraseBytes(passphrase), salt, kdf.DefaultIterations)
	ct, err := aead.Seal(key, iv, []byte(Format), pt)
	if err != nil {
		return nil, fmt.Errorf("keypack: seal: %w", err)
	}

	return &File{
		Format:    Format,
		Encrypted: Encrypted{Salt: salt, IV: iv, CT: ct},
	}, nil
}

// Unwrap recovers the bundle sealed by Wrap, given the same passphrase
// words. A wrong passphrase and a tampered container are indistinguishable.
func Unwrap(file *File, passphrase []string) (*Bundle, error) {
	if file == nil || file.Format != Format {
		return nil, ErrUnsupportedFormat
	}

	key := kdf.Derive(passphraseBytes(passphrase), file.Encrypted.Salt, kdf.DefaultIterations)
	pt, err := aead.Open(key, file.Encrypted.IV, []byte(Format), file.Encrypted.CT)
	if err != nil {
		return nil, ErrWrongPassphraseOrCorrupt
	}

	var bundle Bundle
	if err := canonical.Unmarshal(pt, &bundle); err != nil {
		return nil, ErrWrongPassphraseOrCorrupt
	}
	if bundle.Version != Version || bundle.KeyType == "" {
		return nil, ErrUnsupportedVersion
	}
	return &bundle, nil
}

func passphraseBytes(words []string) []byte {
	return []byte(strings.Join(words, " "))
}
