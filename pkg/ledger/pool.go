// Copyright 2025 Veritas Documents
//
// Pending Pool - the ordered, deduplicated-by-id set of transactions
// awaiting block inclusion. Insert is safe under contention from many
// intake callers; DrainOrdered is meant to be called by a single mining
// task at a time.
package ledger

import (
	"sort"
	"sync"
	"time"
)

// Pool holds transactions between successful intake and block inclusion.
type Pool struct {
	mu      sync.Mutex
	entries map[string]*PendingEntry
	epoch   uint64
}

// NewPool returns an empty pending pool.
func NewPool() *Pool {
	return &Pool{entries: make(map[string]*PendingEntry)}
}

// Insert adds tx to the pool with enqueuedAt as its ordering timestamp. A
// second insert of an id already present is a no-op returning nil, unless
// the new transaction's signing bytes differ from the one already queued,
// which is a Conflict.
func (p *Pool) Insert(tx Transaction, enqueuedAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	existing, ok := p.entries[tx.ID]
	if !ok {
		p.entries[tx.ID] = &PendingEntry{Tx: tx, EnqueuedAt: enqueuedAt}
		return nil
	}

	existingBytes, err := existing.Tx.SigningBytes()
	if err != nil {
		return err
	}
	newBytes, err := tx.SigningBytes()
	if err != nil {
		return err
	}
	if string(existingBytes) != string(newBytes) {
		return ErrConflict
	}
	return nil
}

// Len reports how many transactions are currently pending.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// DrainOrdered removes and returns every pending entry, ordered by
// enqueuedAt and tie-broken by id. An empty pool drains to nil. Every
// returned entry is stamped with a new, monotonically increasing
// DrainEpoch, so a caller that crashes between draining and durably
// committing a block can tell this attempt apart from whatever drain
// comes after it restores the pool.
func (p *Pool) DrainOrdered() []PendingEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return nil
	}

	p.epoch++
	epoch := p.epoch

	drained := make([]PendingEntry, 0, len(p.entries))
	for _, e := range p.entries {
		entry := *e
		entry.DrainEpoch = epoch
		drained = append(drained, entry)
	}
	p.entries = make(map[string]*PendingEntry)

	sort.Slice(drained, func(i, j int) bool {
		if !drained[i].EnqueuedAt.Equal(drained[j].EnqueuedAt) {
			return drained[i].EnqueuedAt.Before(drained[j].EnqueuedAt)
		}
		return drained[i].Tx.ID < drained[j].Tx.ID
	})
	return drained
}

// Epoch reports the DrainEpoch the most recent DrainOrdered call assigned,
// or 0 if the pool has never been drained.
func (p *Pool) Epoch() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.epoch
}

// Restore puts previously drained entries back into the pool, used to roll
// back a drain when block persistence fails on a required tier. Restored
// entries keep the DrainEpoch stamped on them by the drain that failed,
// so a subsequent successful drain's entries (a new epoch) remain
// distinguishable from ones retried after a rollback.
func (p *Pool) Restore(entries []PendingEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range entries {
		e := entries[i]
		if _, exists := p.entries[e.Tx.ID]; !exists {
			p.entries[e.Tx.ID] = &e
		}
	}
}
