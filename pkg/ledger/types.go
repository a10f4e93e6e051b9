// Copyright 2025 Veritas Documents
//
// Ledger Types - the dual-signed, append-only transaction and block shapes
// that the engine validates, mines, and verifies.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/veritas/vdc/pkg/crypto/canonical"
)

// TransactionType is the recognized set of ledger transaction kinds. The
// type selects which schema the engine validates tx.Data against.
type TransactionType string

const (
	UserRegistration TransactionType = "USER_REGISTRATION"
	DocumentCreation TransactionType = "DOCUMENT_CREATION"
	AssetTransfer    TransactionType = "ASSET_TRANSFER"
	AdminAction      TransactionType = "ADMIN_ACTION"
)

// Admin actions recognized inside an ADMIN_ACTION transaction's data.action.
const (
	ActionAnchorSuperRoot = "anchor_super_root"
	ActionRotateSystemKey = "rotate_system_key"
)

// Signature is a public-key-attributed signature over a transaction or
// block's canonical bytes. KeyVersion is set on system signatures so a
// verifier can look up the signing key even after rotation.
type Signature struct {
	PublicKey  canonical.Bytes `json:"publicKey"`
	Signature  canonical.Bytes `json:"signature"`
	KeyVersion string          `json:"keyVersion,omitempty"`
}

// Transaction is an immutable, dual-signed ledger record. Data is kept as
// raw canonical JSON so the engine can validate it against a type-specific
// schema without a second marshal/unmarshal round trip changing its bytes.
type Transaction struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`

	Signatures struct {
		User   Signature `json:"user"`
		System Signature `json:"system"`
	} `json:"signatures"`
}

// signingPayload is the exact tuple (id, type, timestamp, data) both
// signatures are computed over. Its canonical encoding is the only thing
// either signature ever signs.
type signingPayload struct {
	ID        string          `json:"id"`
	Type      TransactionType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// SigningBytes returns the canonical bytes a transaction's user and system
// signatures are computed and verified over.
func (tx *Transaction) SigningBytes() ([]byte, error) {
	return canonical.Marshal(signingPayload{ID: tx.ID, Type: tx.Type, Timestamp: tx.Timestamp, Data: tx.Data})
}

// activationSigningPayload is the tuple the identity package's activation
// handshake signs, per the external activation request shape
// {kemPublicKey, sigPublicKey, encryptedUserData, timestamp}. It has no id
// or type field because the submitter has no prior on-chain identity yet
// to bind those to.
type activationSigningPayload struct {
	KEMPublicKey      string    `json:"kemPublicKey"`
	SigPublicKey      string    `json:"sigPublicKey"`
	EncryptedUserData string    `json:"encryptedUserData"`
	Timestamp         time.Time `json:"timestamp"`
}

// UserSigningBytes returns the canonical bytes a transaction's USER
// signature is computed and verified over. For every type but
// USER_REGISTRATION this is identical to SigningBytes(). USER_REGISTRATION
// is the one type whose signer has no prior registered signing key to
// establish a (id, type, timestamp, data) signing relationship with, so its
// user signature instead binds the narrower activation handshake tuple the
// client actually produces in identity.Service.Activate - see DESIGN.md
// Open Question 4. The system signature and the merkle leaf hash still
// commit to the full generic tuple via SigningBytes, regardless of type.
func (tx *Transaction) UserSigningBytes() ([]byte, error) {
	if tx.Type != UserRegistration {
		return tx.SigningBytes()
	}
	var d UserRegistrationData
	if err := json.Unmarshal(tx.Data, &d); err != nil {
		return nil, fmt.Errorf("ledger: decode registration data: %w", err)
	}
	return canonical.Marshal(activationSigningPayload{
		KEMPublicKey:      d.KEMPublicKey,
		SigPublicKey:      d.SigPublicKey,
		EncryptedUserData: d.EncryptedUserData,
		Timestamp:         tx.Timestamp,
	})
}

// ZeroDigest is the previousHash of the genesis block.
var ZeroDigest [32]byte

// Block is an immutable, system-signed batch of transactions. Hash commits
// to (blockNumber, timestamp, previousHash, merkleRoot); it does not cover
// the transaction bodies directly, since merkleRoot already does.
type Block struct {
	BlockNumber    uint64        `json:"blockNumber"`
	Timestamp      time.Time     `json:"timestamp"`
	PreviousHash   [32]byte      `json:"previousHash"`
	Transactions   []Transaction `json:"transactions"`
	MerkleRoot     [32]byte      `json:"merkleRoot"`
	Hash           [32]byte      `json:"hash"`
	BlockSignature Signature     `json:"blockSignature"`
	IPFSHash       string        `json:"ipfsHash,omitempty"`
}

// blockSigningPayload is the tuple a block's hash commits to.
type blockSigningPayload struct {
	BlockNumber  uint64    `json:"blockNumber"`
	Timestamp    time.Time `json:"timestamp"`
	PreviousHash [32]byte  `json:"previousHash"`
	MerkleRoot   [32]byte  `json:"merkleRoot"`
}

// HashingBytes returns the canonical bytes a block's hash is computed over.
func (b *Block) HashingBytes() ([]byte, error) {
	return canonical.Marshal(blockSigningPayload{
		BlockNumber:  b.BlockNumber,
		Timestamp:    b.Timestamp,
		PreviousHash: b.PreviousHash,
		MerkleRoot:   b.MerkleRoot,
	})
}

// PendingEntry is one transaction waiting in the pending pool, carrying the
// timestamp intake assigned it for FIFO-with-tiebreak draining.
type PendingEntry struct {
	Tx         Transaction `json:"tx"`
	EnqueuedAt time.Time   `json:"enqueuedAt"`

	// DrainEpoch is the Pool.DrainOrdered call that last handed this entry
	// to a mining attempt. It is zero for an entry that has never been
	// drained, and lets a restored entry be told apart from one that was
	// inserted fresh after a failed mine - both land back in the same
	// map, but only the restored one carries a prior epoch.
	DrainEpoch uint64 `json:"drainEpoch,omitempty"`
}

// TipPointer identifies the chain's current head block, as persisted in the
// KV tier. Readers must never observe a TipPointer whose Hash is not yet
// readable from at least one required storage tier.
type TipPointer struct {
	BlockNumber uint64   `json:"blockNumber"`
	Hash        [32]byte `json:"hash"`
}
