// Copyright 2025 Veritas Documents
//
// Account and asset registries - KV-tier projections built from mined
// blocks, so intake can check policy ("does this signer currently own
// this account / this asset") against committed state without replaying
// the whole chain on every submission.
package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/veritas/vdc/pkg/storage"
)

const (
	accountKeyPrefix = "ledger:account:"
	assetKeyPrefix   = "ledger:asset:"
	sigKeyPrefix     = "ledger:sigkey:"
	emailKeyPrefix   = "ledger:email:"
)

// AccountRecord is the registry's view of one registered account, updated
// whenever a USER_REGISTRATION transaction is mined.
type AccountRecord struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	SigPublicKey string `json:"sigPublicKey"`
	KEMPublicKey string `json:"kemPublicKey"`
	AccountType  string `json:"accountType"`
}

// Registry resolves the current owner of an account or asset, as of the
// most recently mined block. It is updated only by the mining task, after
// a block is durable, so it never reflects a pending (unmined) write.
type Registry struct {
	kv storage.KVTier
}

// NewRegistry builds a Registry over kv.
func NewRegistry(kv storage.KVTier) *Registry {
	return &Registry{kv: kv}
}

// Account returns the registered account record for userID, or
// ErrUnknownOwner if no USER_REGISTRATION has been mined for it.
func (r *Registry) Account(ctx context.Context, userID string) (*AccountRecord, error) {
	b, err := r.kv.Get(ctx, accountKeyPrefix+userID)
	if err != nil {
		return nil, fmt.Errorf("ledger: read account: %w", err)
	}
	if b == nil {
		return nil, ErrUnknownOwner
	}
	var rec AccountRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("ledger: decode account: %w", err)
	}
	return &rec, nil
}

// PutAccount records or updates an account's registry entry and indexes it
// by signature public key and by email, so ADMIN_ACTION intake can resolve
// a signer's accountType and identity.Service.Login can resolve a login
// email, neither already knowing the user id.
func (r *Registry) PutAccount(ctx context.Context, rec AccountRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.kv.Put(ctx, accountKeyPrefix+rec.UserID, b); err != nil {
		return err
	}
	if err := r.kv.Put(ctx, sigKeyPrefix+sigKeyIndexKey(rec.SigPublicKey), []byte(rec.UserID)); err != nil {
		return err
	}
	if rec.Email == "" {
		return nil
	}
	return r.kv.Put(ctx, emailKeyPrefix+emailIndexKey(rec.Email), []byte(rec.UserID))
}

// AccountByEmail resolves the account currently registered under email, or
// ErrUnknownOwner if no USER_REGISTRATION for that email has been mined.
func (r *Registry) AccountByEmail(ctx context.Context, email string) (*AccountRecord, error) {
	userID, err := r.kv.Get(ctx, emailKeyPrefix+emailIndexKey(email))
	if err != nil {
		return nil, fmt.Errorf("ledger: read email index: %w", err)
	}
	if userID == nil {
		return nil, ErrUnknownOwner
	}
	return r.Account(ctx, string(userID))
}

// emailIndexKey normalizes an email into a safe KV key component; emails
// are lower-cased so lookups are case-insensitive, matching how most of the
// email-as-login-identifier world treats the local part's domain.
func emailIndexKey(email string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strings.ToLower(email)))
}

// AccountBySigKey resolves the account currently registered under
// sigPublicKey (base64url, matching how EXTERNAL INTERFACES transmits
// public keys), or ErrUnknownOwner if none is registered.
func (r *Registry) AccountBySigKey(ctx context.Context, sigPublicKey string) (*AccountRecord, error) {
	userID, err := r.kv.Get(ctx, sigKeyPrefix+sigKeyIndexKey(sigPublicKey))
	if err != nil {
		return nil, fmt.Errorf("ledger: read sigkey index: %w", err)
	}
	if userID == nil {
		return nil, ErrUnknownOwner
	}
	return r.Account(ctx, string(userID))
}

// sigKeyIndexKey normalizes a public key string into a safe KV key
// component; base64url strings are already key-safe, but re-encoding
// through raw bytes guards against callers passing other encodings.
func sigKeyIndexKey(sigPublicKey string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(sigPublicKey))
}

// AssetOwner returns the userID currently registered as owner of assetID,
// or ErrUnknownOwner if the asset has no DOCUMENT_CREATION on record.
func (r *Registry) AssetOwner(ctx context.Context, assetID string) (string, error) {
	b, err := r.kv.Get(ctx, assetKeyPrefix+assetID)
	if err != nil {
		return "", fmt.Errorf("ledger: read asset owner: %w", err)
	}
	if b == nil {
		return "", ErrUnknownOwner
	}
	return string(b), nil
}

// PutAssetOwner records assetID's current owner.
func (r *Registry) PutAssetOwner(ctx context.Context, assetID, ownerID string) error {
	return r.kv.Put(ctx, assetKeyPrefix+assetID, []byte(ownerID))
}
