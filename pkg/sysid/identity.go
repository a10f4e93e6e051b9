// Copyright 2025 Veritas Documents
//
// System Identity - reconstructs the split master signing secret at request
// scope and exposes a sign-only capability. The whole secret is never
// persisted; it exists only inside the call frame that produced it.
package sysid

import (
	"fmt"

	"github.com/veritas/vdc/pkg/crypto/pqc"
)

// Identity holds the two halves of the system signature private key plus
// the system public key and the active key version. The two halves are
// configuration inputs, kept as separate fields; nothing in this type ever
// stores their concatenation.
type Identity struct {
	part1      []byte
	part2      []byte
	publicKey  pqc.SigPublicKey
	keyVersion string

	registry *Registry

	// kemPub/kemPriv are the system's encryption-side identity: the KEM
	// recipient used to seal system-encrypted classes (ActivationToken,
	// PendingTransaction, UserMetadata). This is a physically distinct key
	// slot from the signing secret above; only the signing secret is held
	// split, and the two never coexist concatenated in any persistent
	// record.
	kemPub  *pqc.KEMPublicKey
	kemPriv *pqc.KEMPrivateKey
}

// New constructs an Identity from its two signing-key shares. part1 and
// part2 concatenate (part1 || part2) to the full Ed25519 seed-derived
// private key. The caller's copies of part1/part2 are not retained beyond
// what's needed to reconstruct on demand; New does not itself hold the
// whole secret anywhere.
func New(part1, part2 []byte, publicKey pqc.SigPublicKey, keyVersion string, registry *Registry) *Identity {
	id := &Identity{
		part1:      append([]byte(nil), part1...),
		part2:      append([]byte(nil), part2...),
		publicKey:  publicKey,
		keyVersion: keyVersion,
		registry:   registry,
	}
	if registry != nil {
		registry.Register(keyVersion, publicKey)
	}
	return id
}

// WithKEM attaches the system's encryption-side KEM identity to id, and
// returns id for chaining. A freshly constructed Identity has no KEM
// identity until this is called; callers that only need signing (block
// and transaction co-signature) can leave it unset.
func (id *Identity) WithKEM(pub *pqc.KEMPublicKey, priv *pqc.KEMPrivateKey) *Identity {
	id.kemPub = pub
	id.kemPriv = priv
	return id
}

// KeyVersion returns the active system key version.
func (id *Identity) KeyVersion() string { return id.keyVersion }

// KEMPublicKey returns the system's encryption-side public key, the
// recipient every system-encrypted storage class is sealed under. Nil if
// WithKEM was never called.
func (id *Identity) KEMPublicKey() *pqc.KEMPublicKey { return id.kemPub }

// KEMPrivateKey returns the system's encryption-side private key, used to
// open system-encrypted records (e.g. activation tokens). Nil if WithKEM
// was never called.
func (id *Identity) KEMPrivateKey() *pqc.KEMPrivateKey { return id.kemPriv }

// PublicKey returns the active system signature public key.
func (id *Identity) PublicKey() pqc.SigPublicKey { return id.publicKey }

// Registry returns the key-version registry backing VerifySystem, so a
// rotate_system_key ADMIN_ACTION can register the new version once its
// block is durable.
func (id *Identity) Registry() *Registry { return id.registry }

// SignAsSystem reconstructs the whole private key in a caller-scoped buffer,
// signs msg, and zeroes the buffer before returning. The reconstructed
// secret is reachable only from this call frame.
func (id *Identity) SignAsSystem(msg []byte) (sig []byte, keyVersion string, err error) {
	whole := make([]byte, 0, len(id.part1)+len(id.part2))
	whole = append(whole, id.part1...)
	whole = append(whole, id.part2...)
	defer zero(whole)

	sig, err = pqc.SigSign(pqc.SigPrivateKey(whole), msg)
	if err != nil {
		return nil, "", fmt.Errorf("sysid: sign: %w", err)
	}
	return sig, id.keyVersion, nil
}

// VerifySystem checks sig over msg against the public key registered for
// keyVersion, so historical blocks remain verifiable after a key rotation.
func (id *Identity) VerifySystem(msg, sig []byte, keyVersion string) (bool, error) {
	pub, ok := id.registry.Lookup(keyVersion)
	if !ok {
		return false, fmt.Errorf("sysid: unknown key version %q", keyVersion)
	}
	return pqc.SigVerify(pub, msg, sig)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
