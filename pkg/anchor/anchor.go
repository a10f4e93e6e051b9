// Copyright 2025 Veritas Documents
//
// Anchor - the super-root anchoring boundary behind the anchor_super_root
// admin action. The node does not perform live chain I/O itself; this
// package only shapes the client boundary an ADMIN_ACTION handler submits
// a pre-computed digest through.
package anchor

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Receipt is what a successful anchor submission returns: enough to audit
// that a given digest was anchored, and where.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	AnchoredAt  time.Time
}

// Client anchors a pre-computed digest to an external chain. The ledger
// never decides how the digest was built - the anchor_super_root payload
// carries it already computed. Implementations live outside this module;
// a no-op or test double satisfies it for anything that doesn't need live
// chain I/O.
type Client interface {
	// Anchor submits digest, addressed to contract, and returns once the
	// submission is accepted (not necessarily mined).
	Anchor(ctx context.Context, contract common.Address, digest [32]byte) (*Receipt, error)

	// Confirmations reports how many confirmations txHash currently has.
	Confirmations(ctx context.Context, txHash common.Hash) (uint64, error)
}

// NoopClient is a Client that acknowledges anchor attempts without
// submitting them anywhere, for deployments and tests that exercise
// anchor_super_root without a live chain.
type NoopClient struct {
	clock func() time.Time
}

// NewNoopClient builds a NoopClient using time.Now.
func NewNoopClient() *NoopClient {
	return &NoopClient{clock: time.Now}
}

func (c *NoopClient) Anchor(ctx context.Context, contract common.Address, digest [32]byte) (*Receipt, error) {
	return &Receipt{
		TxHash:      common.BytesToHash(digest[:]),
		BlockNumber: 0,
		AnchoredAt:  c.clock(),
	}, nil
}

func (c *NoopClient) Confirmations(ctx context.Context, txHash common.Hash) (uint64, error) {
	return 1, nil
}
