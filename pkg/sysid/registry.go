// Copyright 2025 Veritas Documents
package sysid

import (
	"sync"

	"github.com/veritas/vdc/pkg/crypto/pqc"
)

// Registry maps system key versions to their public keys, so
// Identity.VerifySystem can resolve a historical version after rotation.
// Key rotation is modeled as an ADMIN_ACTION transaction; the ledger engine
// calls Register when such a transaction is mined.
type Registry struct {
	mu   sync.RWMutex
	keys map[string]pqc.SigPublicKey
}

// NewRegistry creates an empty key-version registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]pqc.SigPublicKey)}
}

// Register records the public key active for keyVersion. Re-registering an
// existing version with the same bytes is a no-op; Register never removes a
// prior version, since historical blocks must remain verifiable under the
// version they were signed with.
func (r *Registry) Register(keyVersion string, pub pqc.SigPublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[keyVersion] = pub
}

// Lookup returns the public key registered for keyVersion.
func (r *Registry) Lookup(keyVersion string) (pqc.SigPublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pub, ok := r.keys[keyVersion]
	return pub, ok
}
