// Copyright 2025 Veritas Documents
package ledger

import (
	"context"
	"testing"

	"github.com/veritas/vdc/pkg/crypto/pqc"
	"github.com/veritas/vdc/pkg/storage"
)

func TestVerifyChainAcrossMultipleBlocks(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		userPub, userPriv, err := pqc.SigKeygen()
		if err != nil {
			t.Fatalf("sig keygen: %v", err)
		}
		tx := signedTx(t, "tx-chain-"+string(rune('a'+i)), UserRegistration, UserRegistrationData{
			UserID: "user-" + string(rune('a'+i)), Email: "u" + string(rune('a'+i)) + "@example.com",
			KEMPublicKey: "kem", SigPublicKey: "sig", EncryptedUserData: "ct", AccountType: "user",
		}, userPub, userPriv)
		if _, err := h.engine.SubmitTransaction(ctx, tx); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if _, err := h.engine.MineBlock(ctx); err != nil {
			t.Fatalf("mine %d: %v", i, err)
		}
	}

	if err := VerifyChain(ctx, h.engine, h.sysidReg); err != nil {
		t.Fatalf("expected a freshly mined 3-block chain to verify, got %v", err)
	}

	tip, err := h.engine.Tip(ctx)
	if err != nil {
		t.Fatalf("tip: %v", err)
	}
	if tip.BlockNumber != 2 {
		t.Fatalf("expected tip at block 2, got %d", tip.BlockNumber)
	}
}

func TestVerifyChainDetectsTamperedMerkleRoot(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		userPub, userPriv, err := pqc.SigKeygen()
		if err != nil {
			t.Fatalf("sig keygen: %v", err)
		}
		tx := signedTx(t, "tx-tamper-"+string(rune('a'+i)), UserRegistration, UserRegistrationData{
			UserID: "user-" + string(rune('a'+i)), Email: "v" + string(rune('a'+i)) + "@example.com",
			KEMPublicKey: "kem", SigPublicKey: "sig", EncryptedUserData: "ct", AccountType: "user",
		}, userPub, userPriv)
		if _, err := h.engine.SubmitTransaction(ctx, tx); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if _, err := h.engine.MineBlock(ctx); err != nil {
			t.Fatalf("mine %d: %v", i, err)
		}
	}

	block1, err := h.engine.BlockByNumber(ctx, 1)
	if err != nil {
		t.Fatalf("read block 1: %v", err)
	}
	block1.MerkleRoot[0] ^= 0xFF
	if _, err := h.engine.fabric.Put(ctx, storage.ChainBlock, blockKey(1), block1, storage.PutOptions{}); err != nil {
		t.Fatalf("rewrite tampered block: %v", err)
	}

	if err := VerifyBlock(block1, h.sysidReg); err == nil {
		t.Fatalf("expected VerifyBlock to reject a tampered merkle root")
	}
	if err := VerifyChain(ctx, h.engine, h.sysidReg); err == nil {
		t.Fatalf("expected VerifyChain to report failure once block 1 is tampered")
	}
}

func TestVerifyBlockRejectsForgedSystemSignature(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	userPub, userPriv, err := pqc.SigKeygen()
	if err != nil {
		t.Fatalf("sig keygen: %v", err)
	}
	tx := signedTx(t, "tx-forge-1", UserRegistration, UserRegistrationData{
		UserID: "user-forge", Email: "forge@example.com",
		KEMPublicKey: "kem", SigPublicKey: "sig", EncryptedUserData: "ct", AccountType: "user",
	}, userPub, userPriv)
	if _, err := h.engine.SubmitTransaction(ctx, tx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	block, err := h.engine.MineBlock(ctx)
	if err != nil {
		t.Fatalf("mine: %v", err)
	}

	_, forgedPriv, err := pqc.SigKeygen()
	if err != nil {
		t.Fatalf("sig keygen: %v", err)
	}
	forgedSig, err := pqc.SigSign(forgedPriv, block.Hash[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	block.BlockSignature.Signature = forgedSig

	if err := VerifyBlock(block, h.sysidReg); err == nil {
		t.Fatalf("expected VerifyBlock to reject a forged block signature")
	}
}
