// Copyright 2025 Veritas Documents
//
// Storage Fabric - the policy-driven routing layer between the ledger and
// identity packages and the three storage tiers (KV, object, content
// addressed). Callers never talk to a tier directly; they put and get by
// record class, and the fabric decides which tiers receive the write,
// whether the value is enveloped before it lands, and what a reader gets
// back.
package storage

import (
	"context"
	"time"

	"github.com/veritas/vdc/pkg/crypto/pqc"
	"github.com/veritas/vdc/pkg/envelope"
)

// RecordClass identifies the kind of record being stored, which selects a
// StoragePolicy.
type RecordClass string

const (
	ChainBlock         RecordClass = "ChainBlock"
	PendingTransaction RecordClass = "PendingTransaction"
	Document           RecordClass = "Document"
	ActivationToken    RecordClass = "ActivationToken"
	UserMetadata       RecordClass = "UserMetadata"
	AssetMetadata      RecordClass = "AssetMetadata"
)

// Tier names one of the three storage tiers.
type Tier string

const (
	TierKV      Tier = "kv"
	TierObject  Tier = "object"
	TierContent Tier = "content"
)

// EncryptionSource records who performed the encryption that produced an
// at-rest envelope, for audit and for Get's decryption-key routing.
type EncryptionSource string

const (
	EncryptedByClient EncryptionSource = "client"
	EncryptedByServer EncryptionSource = "server"
	EncryptedBySystem EncryptionSource = "system"
)

// StoragePolicy governs how one record class is written: which tiers
// receive it, whether it is enveloped before any tier sees it, and (for
// AssetMetadata) whether the content tier receives a privacy-projected
// copy instead of the full record.
type StoragePolicy struct {
	Tiers            []Tier
	EncryptAtRest    bool
	PublicProjection bool
}

// HealthStatus reports the result of a health check. A check never itself
// errors; it just records whether the thing it probed answered.
type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checkedAt"`
	Error     string    `json:"error,omitempty"`
}

// EncryptionMeta describes the envelope wrapping a stored record, without
// revealing its plaintext. VerifyEncryption returns this without a
// decryption key.
type EncryptionMeta struct {
	Encrypted bool
	Algorithm string
	Version   string
	Source    EncryptionSource
	Owner     string
}

// StoredRef is what Put returns: enough to address the record again and to
// audit how it was protected at rest.
type StoredRef struct {
	Class         RecordClass
	Key           string
	ContentDigest string // set when the content tier received a write
	Encryption    EncryptionMeta
	StoredAt      time.Time
}

// PutOptions carries the per-write parameters Put needs beyond the record
// class, key and value.
type PutOptions struct {
	// EncryptionRecipient is the KEM public key Put envelopes the record
	// under, when the policy requires encryption at rest and the caller
	// has not already sealed the value itself.
	EncryptionRecipient *pqc.KEMPublicKey

	// PreSealed, when set, is an envelope the caller already produced
	// (typically client-side, for Document records sealed under the
	// owner's own key before the bytes ever reach this process). Put
	// stores it as-is instead of sealing fullBytes itself.
	PreSealed *envelope.Envelope

	// EncryptionSource records who performed the encryption, for audit.
	EncryptionSource EncryptionSource

	// EncryptionOwner identifies whose key the record is sealed under
	// (a user id for client-sealed Document records, the system key
	// version for system-sealed classes), recorded in the object tier's
	// encryption_owner metadata key.
	EncryptionOwner string

	// AAD is bound into the envelope's authentication tag. Callers must
	// pass the same AAD to Get.
	AAD []byte

	// ContentType is advisory metadata passed through to the object tier.
	ContentType string
}

// GetOptions carries the per-read parameters Get needs to open an
// encrypted record.
type GetOptions struct {
	DecryptionKey *pqc.KEMPrivateKey
	AAD           []byte
}

// KVTier is the fast, eventually-consistent tier: hot pointers, the chain
// tip, the pending pool index, session lookups.
type KVTier interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ObjectTier is the durable, versioned, strongly-consistent-per-key tier.
// Every record class lands here; it is the tier of record.
type ObjectTier interface {
	Put(ctx context.Context, key string, value []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, map[string]string, error)
	Delete(ctx context.Context, key string) error
}

// ContentTier is the immutable-by-digest tier: the digest returned by Put
// is the only key Get ever needs.
type ContentTier interface {
	Put(ctx context.Context, value []byte) (digest string, err error)
	Get(ctx context.Context, digest string) ([]byte, error)
}
