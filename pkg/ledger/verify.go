// Copyright 2025 Veritas Documents
//
// Chain verification - recomputes what mining computed and checks every
// signature, independent of the pending pool or registries. A verifier
// needs only a sysid.Registry (to resolve historical system keys by
// version) and the blocks themselves.
package ledger

import (
	"context"
	"fmt"

	"github.com/veritas/vdc/pkg/crypto/canonical"
	"github.com/veritas/vdc/pkg/crypto/pqc"
	"github.com/veritas/vdc/pkg/merkle"
	"github.com/veritas/vdc/pkg/sysid"
)

// VerifyBlock recomputes block's merkleRoot and hash, checks blockSignature
// against the system key registered for its keyVersion, and checks every
// contained transaction's user and system signatures.
func VerifyBlock(block *Block, registry *sysid.Registry) error {
	leaves := make([][32]byte, len(block.Transactions))
	for i, tx := range block.Transactions {
		signingBytes, err := tx.SigningBytes()
		if err != nil {
			return fmt.Errorf("ledger: tx %s signing bytes: %w", tx.ID, err)
		}
		leaves[i] = merkle.LeafHash(tx.ID, signingBytes)

		userSigningBytes, err := tx.UserSigningBytes()
		if err != nil {
			return fmt.Errorf("ledger: tx %s user signing bytes: %w", tx.ID, err)
		}
		ok, err := pqc.SigVerify(pqc.SigPublicKey(tx.Signatures.User.PublicKey), userSigningBytes, tx.Signatures.User.Signature)
		if err != nil || !ok {
			return fmt.Errorf("%w: tx %s", ErrBadUserSignature, tx.ID)
		}

		systemPub, ok := registry.Lookup(tx.Signatures.System.KeyVersion)
		if !ok {
			return fmt.Errorf("ledger: tx %s: unknown system key version %q", tx.ID, tx.Signatures.System.KeyVersion)
		}
		ok, err = pqc.SigVerify(systemPub, signingBytes, tx.Signatures.System.Signature)
		if err != nil || !ok {
			return fmt.Errorf("%w: tx %s", ErrBadSystemSignature, tx.ID)
		}
	}

	if len(leaves) > 0 {
		tree, err := merkle.BuildTree(leaves)
		if err != nil {
			return fmt.Errorf("ledger: rebuild merkle tree: %w", err)
		}
		if tree.Root() != block.MerkleRoot {
			return fmt.Errorf("%w: merkle root mismatch at block %d", ErrChainBroken, block.BlockNumber)
		}
	}

	hashBytes, err := block.HashingBytes()
	if err != nil {
		return fmt.Errorf("ledger: block hashing bytes: %w", err)
	}
	if canonical.ContentHash(hashBytes) != block.Hash {
		return fmt.Errorf("%w: hash mismatch at block %d", ErrChainBroken, block.BlockNumber)
	}

	systemPub, ok := registry.Lookup(block.BlockSignature.KeyVersion)
	if !ok {
		return fmt.Errorf("ledger: unknown system key version %q at block %d", block.BlockSignature.KeyVersion, block.BlockNumber)
	}
	ok, err = pqc.SigVerify(systemPub, block.Hash[:], block.BlockSignature.Signature)
	if err != nil || !ok {
		return fmt.Errorf("%w: block signature at block %d", ErrBadSystemSignature, block.BlockNumber)
	}

	return nil
}

// VerifyChain walks every block from genesis to the current tip, checking
// VerifyBlock and the previousHash link at each step.
func VerifyChain(ctx context.Context, engine *Engine, registry *sysid.Registry) error {
	tip, err := engine.Tip(ctx)
	if err != nil {
		return fmt.Errorf("ledger: read tip: %w", err)
	}
	if tip == nil {
		return nil
	}

	prevHash := ZeroDigest
	for n := uint64(0); n <= tip.BlockNumber; n++ {
		block, err := engine.BlockByNumber(ctx, n)
		if err != nil {
			return fmt.Errorf("ledger: read block %d: %w", n, err)
		}
		if block.PreviousHash != prevHash {
			return fmt.Errorf("%w: block %d previousHash does not match block %d's hash", ErrChainBroken, n, n-1)
		}
		if err := VerifyBlock(block, registry); err != nil {
			return err
		}
		prevHash = block.Hash
	}
	return nil
}
