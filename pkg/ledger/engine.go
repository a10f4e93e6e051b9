// Copyright 2025 Veritas Documents
//
// Ledger Engine - transaction intake and block formation. At most one
// mining call runs at a time (mineMu); any number of submissions may run
// concurrently against the pending pool.
package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/veritas/vdc/pkg/crypto/canonical"
	"github.com/veritas/vdc/pkg/crypto/pqc"
	"github.com/veritas/vdc/pkg/merkle"
	"github.com/veritas/vdc/pkg/metrics"
	"github.com/veritas/vdc/pkg/storage"
	"github.com/veritas/vdc/pkg/sysid"
)

const (
	tipKey          = "ledger:tip"
	txIndexPrefix   = "ledger:txindex:"
	pendingPrefix   = "ledger:pending:"
	pendingIndexKey = "ledger:pendingindex"
)

// pendingAAD binds the pending-transaction mirror's envelopes, so a sealed
// pool entry cannot be replayed into a different record class.
var pendingAAD = []byte("vdc-pending-tx-v1")

func blockKey(n uint64) string { return fmt.Sprintf("ledger:block:%d", n) }

func pendingKey(id string) string { return pendingPrefix + id }

// Engine is the ledger's single point of intake and mining. It owns no
// goroutines itself; callers (an HTTP handler for intake, a Scheduler for
// mining) drive it.
type Engine struct {
	identity *sysid.Identity
	fabric   *storage.Fabric
	kv       storage.KVTier
	registry *Registry
	pool     *Pool
	metrics  *metrics.Registry

	mineMu sync.Mutex
	clock  func() time.Time

	// pendingMu serializes read-modify-write cycles on the pending-mirror
	// index key.
	pendingMu sync.Mutex
}

// NewEngine builds an Engine over the given system identity, storage
// fabric, and KV tier (used directly for the tip pointer, tx index, and
// account/asset registries, which are internal projections rather than a
// record class of their own).
func NewEngine(identity *sysid.Identity, fabric *storage.Fabric, kv storage.KVTier) *Engine {
	return &Engine{
		identity: identity,
		fabric:   fabric,
		kv:       kv,
		registry: NewRegistry(kv),
		pool:     NewPool(),
		clock:    time.Now,
	}
}

// Registry returns the account/asset registry the engine updates as it
// mines blocks, so callers that need to resolve current ownership (e.g.
// the identity service's email lookup) share the same projection rather
// than building their own.
func (e *Engine) Registry() *Registry { return e.registry }

// WithMetrics attaches a metrics registry so SubmitTransaction counts
// accepted and rejected submissions by transaction type. An Engine with no
// registry attached skips the counter entirely.
func (e *Engine) WithMetrics(m *metrics.Registry) *Engine {
	e.metrics = m
	return e
}

// PendingCount reports how many transactions are queued for the next block.
func (e *Engine) PendingCount() int { return e.pool.Len() }

// SubmitTransaction validates tx, attaches the system signature, and
// enqueues it. It is safe to call concurrently from many callers.
func (e *Engine) SubmitTransaction(ctx context.Context, tx Transaction) (submitted *Transaction, err error) {
	if e.metrics != nil {
		defer func() {
			outcome := "accepted"
			if err != nil {
				outcome = "rejected"
			}
			e.metrics.TxSubmitted.WithLabelValues(string(tx.Type), outcome).Inc()
		}()
	}

	if tx.ID == "" || tx.Type == "" || tx.Timestamp.IsZero() {
		return nil, fmt.Errorf("%w: missing id, type, or timestamp", ErrMalformed)
	}

	decoded, err := ValidateData(&tx)
	if err != nil {
		return nil, err
	}

	signingBytes, err := tx.SigningBytes()
	if err != nil {
		return nil, fmt.Errorf("ledger: signing bytes: %w", err)
	}

	userSigningBytes, err := tx.UserSigningBytes()
	if err != nil {
		return nil, fmt.Errorf("ledger: user signing bytes: %w", err)
	}

	ok, err := pqc.SigVerify(pqc.SigPublicKey(tx.Signatures.User.PublicKey), userSigningBytes, tx.Signatures.User.Signature)
	if err != nil || !ok {
		return nil, ErrBadUserSignature
	}

	if err := e.enforcePolicy(ctx, tx.Type, decoded, tx.Signatures.User.PublicKey); err != nil {
		return nil, err
	}

	sig, keyVersion, err := e.identity.SignAsSystem(signingBytes)
	if err != nil {
		return nil, fmt.Errorf("ledger: system sign: %w", err)
	}
	tx.Signatures.System = Signature{
		PublicKey:  canonical.Bytes(e.identity.PublicKey()),
		Signature:  sig,
		KeyVersion: keyVersion,
	}

	enqueuedAt := e.clock()
	if err := e.pool.Insert(tx, enqueuedAt); err != nil {
		return nil, err
	}

	if e.pendingMirrorEnabled() {
		if err := e.persistPending(ctx, PendingEntry{Tx: tx, EnqueuedAt: enqueuedAt}); err != nil {
			// The pool entry stays; intake is idempotent on id, so a
			// retried submission re-attempts only the mirror write.
			return nil, fmt.Errorf("ledger: mirror pending transaction: %w", err)
		}
	}
	return &tx, nil
}

// pendingMirrorEnabled reports whether pool entries are durably mirrored
// under the PendingTransaction class. The mirror needs the system's KEM
// identity (the class is encrypted at rest) and a configured object tier.
func (e *Engine) pendingMirrorEnabled() bool {
	return e.identity.KEMPublicKey() != nil && e.fabric.HasTier(storage.TierObject)
}

// persistPending writes one pool entry to the PendingTransaction class and
// records its id in the mirror index.
func (e *Engine) persistPending(ctx context.Context, entry PendingEntry) error {
	_, err := e.fabric.Put(ctx, storage.PendingTransaction, pendingKey(entry.Tx.ID), entry, storage.PutOptions{
		EncryptionRecipient: e.identity.KEMPublicKey(),
		EncryptionSource:    storage.EncryptedBySystem,
		EncryptionOwner:     e.identity.KeyVersion(),
		AAD:                 pendingAAD,
	})
	if err != nil {
		return err
	}

	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	ids, err := e.readPendingIndex(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == entry.Tx.ID {
			return nil
		}
	}
	return e.writePendingIndex(ctx, append(ids, entry.Tx.ID))
}

// clearPending drops the mirror records for transactions that just became
// durable inside a block. Failures are swallowed: the block is already
// committed, and RecoverPending discards any mirror entry whose
// transaction is found mined.
func (e *Engine) clearPending(ctx context.Context, txs []Transaction) {
	mined := make(map[string]bool, len(txs))
	for _, tx := range txs {
		mined[tx.ID] = true
		_ = e.fabric.Delete(ctx, storage.PendingTransaction, pendingKey(tx.ID))
	}

	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	ids, err := e.readPendingIndex(ctx)
	if err != nil {
		return
	}
	remaining := ids[:0]
	for _, id := range ids {
		if !mined[id] {
			remaining = append(remaining, id)
		}
	}
	_ = e.writePendingIndex(ctx, remaining)
}

// RecoverPending reloads the pending pool from the PendingTransaction
// mirror after a restart, returning how many entries were restored. Mirror
// records whose transaction is already mined are discarded rather than
// restored, so a crash between committing a block and clearing its mirror
// entries never re-mines a transaction.
func (e *Engine) RecoverPending(ctx context.Context) (int, error) {
	if !e.pendingMirrorEnabled() {
		return 0, nil
	}

	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	ids, err := e.readPendingIndex(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	remaining := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := e.TransactionBlockNumber(ctx, id); err == nil {
			_ = e.fabric.Delete(ctx, storage.PendingTransaction, pendingKey(id))
			continue
		}

		b, err := e.fabric.Get(ctx, storage.PendingTransaction, pendingKey(id), storage.GetOptions{
			DecryptionKey: e.identity.KEMPrivateKey(),
			AAD:           pendingAAD,
		})
		if err != nil {
			return restored, fmt.Errorf("ledger: read pending mirror %s: %w", id, err)
		}
		var entry PendingEntry
		if err := canonical.Unmarshal(b, &entry); err != nil {
			return restored, fmt.Errorf("ledger: decode pending mirror %s: %w", id, err)
		}
		if err := e.pool.Insert(entry.Tx, entry.EnqueuedAt); err != nil {
			return restored, fmt.Errorf("ledger: restore pending %s: %w", id, err)
		}
		restored++
		remaining = append(remaining, id)
	}

	if err := e.writePendingIndex(ctx, remaining); err != nil {
		return restored, err
	}
	return restored, nil
}

func (e *Engine) readPendingIndex(ctx context.Context) ([]string, error) {
	b, err := e.kv.Get(ctx, pendingIndexKey)
	if err != nil {
		return nil, fmt.Errorf("ledger: read pending index: %w", err)
	}
	if b == nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("ledger: decode pending index: %w", err)
	}
	return ids, nil
}

func (e *Engine) writePendingIndex(ctx context.Context, ids []string) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := e.kv.Put(ctx, pendingIndexKey, b); err != nil {
		return fmt.Errorf("ledger: write pending index: %w", err)
	}
	return nil
}

// enforcePolicy checks the ownership/role rules for tx.Type against
// already-mined (not pending) registry state.
func (e *Engine) enforcePolicy(ctx context.Context, txType TransactionType, decoded any, signerPub canonical.Bytes) error {
	signerB64 := base64.RawURLEncoding.EncodeToString(signerPub)

	switch txType {
	case UserRegistration:
		// Registration mints a new account; no prior-ownership check applies.
		return nil

	case DocumentCreation:
		d := decoded.(DocumentCreationData)
		account, err := e.registry.Account(ctx, d.OwnerID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPolicyViolation, err)
		}
		if account.SigPublicKey != signerB64 {
			return fmt.Errorf("%w: signer is not the registered key for owner %s", ErrPolicyViolation, d.OwnerID)
		}
		return nil

	case AssetTransfer:
		d := decoded.(AssetTransferData)
		currentOwner, err := e.registry.AssetOwner(ctx, d.AssetID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPolicyViolation, err)
		}
		if currentOwner != d.FromOwnerID {
			return fmt.Errorf("%w: asset %s is not owned by %s", ErrPolicyViolation, d.AssetID, d.FromOwnerID)
		}
		account, err := e.registry.Account(ctx, d.FromOwnerID)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPolicyViolation, err)
		}
		if account.SigPublicKey != signerB64 {
			return fmt.Errorf("%w: signer is not the registered key for owner %s", ErrPolicyViolation, d.FromOwnerID)
		}
		return nil

	case AdminAction:
		account, err := e.registry.AccountBySigKey(ctx, signerB64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPolicyViolation, err)
		}
		if account.AccountType != "admin" {
			return fmt.Errorf("%w: signer account type %q is not admin", ErrPolicyViolation, account.AccountType)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown transaction type %q", ErrMalformed, txType)
	}
}

// MineBlock drains the pending pool and persists a new block. It returns
// (nil, nil) if the pool was empty. On any required-tier write failure,
// the drained transactions are restored to the pool untouched.
func (e *Engine) MineBlock(ctx context.Context) (*Block, error) {
	e.mineMu.Lock()
	defer e.mineMu.Unlock()

	drained := e.pool.DrainOrdered()
	if drained == nil {
		return nil, nil
	}
	epoch := drained[0].DrainEpoch

	tip, err := e.readTip(ctx)
	if err != nil {
		e.pool.Restore(drained)
		return nil, fmt.Errorf("ledger: read tip (drain epoch %d): %w", epoch, err)
	}

	blockNumber := uint64(0)
	previousHash := ZeroDigest
	if tip != nil {
		blockNumber = tip.BlockNumber + 1
		previousHash = tip.Hash
	}

	txs := make([]Transaction, len(drained))
	leaves := make([][32]byte, len(drained))
	for i, entry := range drained {
		txs[i] = entry.Tx
		signingBytes, err := entry.Tx.SigningBytes()
		if err != nil {
			e.pool.Restore(drained)
			return nil, fmt.Errorf("ledger: signing bytes (drain epoch %d): %w", epoch, err)
		}
		leaves[i] = merkle.LeafHash(entry.Tx.ID, signingBytes)
	}

	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		e.pool.Restore(drained)
		return nil, fmt.Errorf("ledger: build merkle tree (drain epoch %d): %w", epoch, err)
	}

	block := &Block{
		BlockNumber:  blockNumber,
		Timestamp:    e.clock(),
		PreviousHash: previousHash,
		Transactions: txs,
		MerkleRoot:   tree.Root(),
	}

	hashBytes, err := block.HashingBytes()
	if err != nil {
		e.pool.Restore(drained)
		return nil, fmt.Errorf("ledger: hashing bytes (drain epoch %d): %w", epoch, err)
	}
	block.Hash = canonical.ContentHash(hashBytes)

	sig, keyVersion, err := e.identity.SignAsSystem(block.Hash[:])
	if err != nil {
		e.pool.Restore(drained)
		return nil, fmt.Errorf("ledger: sign block (drain epoch %d): %w", epoch, err)
	}
	block.BlockSignature = Signature{
		PublicKey:  canonical.Bytes(e.identity.PublicKey()),
		Signature:  sig,
		KeyVersion: keyVersion,
	}

	// The content-addressed digest is computed from the block as stored,
	// so it cannot be folded into block.Hash itself; it travels alongside
	// as ipfsHash instead, set on the in-memory block after the write.
	ref, err := e.fabric.Put(ctx, storage.ChainBlock, blockKey(blockNumber), block, storage.PutOptions{})
	if err != nil {
		e.pool.Restore(drained)
		return nil, fmt.Errorf("ledger: persist block (drain epoch %d): %w", epoch, err)
	}
	block.IPFSHash = ref.ContentDigest

	if err := e.updateProjections(ctx, block); err != nil {
		e.pool.Restore(drained)
		return nil, fmt.Errorf("ledger: update projections (drain epoch %d): %w", epoch, err)
	}

	if e.pendingMirrorEnabled() {
		e.clearPending(ctx, block.Transactions)
	}

	return block, nil
}

// updateProjections writes the tip pointer, the per-transaction block
// index, and the account/asset registries. It runs only after the block
// is durable in the required tiers, per the concurrency contract that the
// tip never points at an unreadable block.
func (e *Engine) updateProjections(ctx context.Context, block *Block) error {
	for _, tx := range block.Transactions {
		if err := e.kv.Put(ctx, txIndexPrefix+tx.ID, []byte(strconv.FormatUint(block.BlockNumber, 10))); err != nil {
			return err
		}

		switch tx.Type {
		case UserRegistration:
			var d UserRegistrationData
			if err := json.Unmarshal(tx.Data, &d); err != nil {
				return err
			}
			if err := e.registry.PutAccount(ctx, AccountRecord{
				UserID:       d.UserID,
				Email:        d.Email,
				SigPublicKey: d.SigPublicKey,
				KEMPublicKey: d.KEMPublicKey,
				AccountType:  d.AccountType,
			}); err != nil {
				return err
			}

		case DocumentCreation:
			var d DocumentCreationData
			if err := json.Unmarshal(tx.Data, &d); err != nil {
				return err
			}
			if err := e.registry.PutAssetOwner(ctx, d.AssetID, d.OwnerID); err != nil {
				return err
			}

		case AssetTransfer:
			var d AssetTransferData
			if err := json.Unmarshal(tx.Data, &d); err != nil {
				return err
			}
			if err := e.registry.PutAssetOwner(ctx, d.AssetID, d.ToOwnerID); err != nil {
				return err
			}

		case AdminAction:
			var d AdminActionData
			if err := json.Unmarshal(tx.Data, &d); err != nil {
				return err
			}
			if d.Action != "rotate_system_key" {
				continue
			}
			var rotation RotateSystemKeyPayload
			if err := json.Unmarshal(d.Payload, &rotation); err != nil {
				return fmt.Errorf("ledger: decode rotate_system_key payload: %w", err)
			}
			pubBytes, err := base64.RawURLEncoding.DecodeString(rotation.PublicKey)
			if err != nil {
				return fmt.Errorf("ledger: decode rotate_system_key public key: %w", err)
			}
			e.identity.Registry().Register(rotation.KeyVersion, pqc.SigPublicKey(pubBytes))
		}
	}

	tipBytes, err := json.Marshal(TipPointer{BlockNumber: block.BlockNumber, Hash: block.Hash})
	if err != nil {
		return err
	}
	return e.kv.Put(ctx, tipKey, tipBytes)
}

// readTip returns the current tip pointer, or nil if no block has been
// mined yet (the next block to mine is the genesis block).
func (e *Engine) readTip(ctx context.Context) (*TipPointer, error) {
	b, err := e.kv.Get(ctx, tipKey)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	var tip TipPointer
	if err := json.Unmarshal(b, &tip); err != nil {
		return nil, err
	}
	return &tip, nil
}

// BlockByNumber reads a previously mined block back from the storage fabric.
func (e *Engine) BlockByNumber(ctx context.Context, number uint64) (*Block, error) {
	b, err := e.fabric.Get(ctx, storage.ChainBlock, blockKey(number), storage.GetOptions{})
	if err != nil {
		return nil, ErrBlockNotFound
	}
	var block Block
	if err := canonical.Unmarshal(b, &block); err != nil {
		return nil, fmt.Errorf("ledger: decode block: %w", err)
	}
	return &block, nil
}

// TransactionBlockNumber returns the block number a transaction id was
// mined into, or ErrTransactionNotFound if it has not been mined.
func (e *Engine) TransactionBlockNumber(ctx context.Context, txID string) (uint64, error) {
	b, err := e.kv.Get(ctx, txIndexPrefix+txID)
	if err != nil {
		return 0, err
	}
	if b == nil {
		return 0, ErrTransactionNotFound
	}
	return strconv.ParseUint(string(b), 10, 64)
}

// Tip returns the current tip pointer, or nil if the chain has no blocks.
func (e *Engine) Tip(ctx context.Context) (*TipPointer, error) {
	return e.readTip(ctx)
}

// Health aggregates the engine's storage dependencies - the fabric's
// tiers plus the KV tier the engine itself uses directly for the tip
// pointer, tx index, and account/asset registry - into a single
// HealthStatus. It never itself returns an error; a failed probe is
// recorded on the returned status instead.
func (e *Engine) Health(ctx context.Context) (*storage.HealthStatus, error) {
	status, err := e.fabric.Health(ctx)
	if err != nil {
		return nil, err
	}
	if !status.Healthy {
		return status, nil
	}

	if hc, ok := e.kv.(interface {
		Health(ctx context.Context) error
	}); ok {
		if err := hc.Health(ctx); err != nil {
			return &storage.HealthStatus{
				CheckedAt: status.CheckedAt,
				Error:     fmt.Sprintf("ledger kv: %v", err),
			}, nil
		}
	}
	return status, nil
}
