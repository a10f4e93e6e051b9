// Copyright 2025 Veritas Documents
package ledger

import (
	"testing"
	"time"
)

func mkTx(id string, data string) Transaction {
	var tx Transaction
	tx.ID = id
	tx.Type = DocumentCreation
	tx.Data = []byte(data)
	return tx
}

func TestPoolInsertAndDrainOrdered(t *testing.T) {
	p := NewPool()
	base := time.Now()

	if err := p.Insert(mkTx("b", `{"x":1}`), base.Add(2*time.Second)); err != nil {
		t.Fatalf("insert b: %v", err)
	}
	if err := p.Insert(mkTx("a", `{"x":1}`), base.Add(1*time.Second)); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := p.Insert(mkTx("c", `{"x":1}`), base.Add(1*time.Second)); err != nil {
		t.Fatalf("insert c: %v", err)
	}

	if got := p.Len(); got != 3 {
		t.Fatalf("expected 3 pending, got %d", got)
	}

	drained := p.DrainOrdered()
	if len(drained) != 3 {
		t.Fatalf("expected 3 drained, got %d", len(drained))
	}
	// a and c share a timestamp; tie-break by id puts a before c.
	want := []string{"a", "c", "b"}
	for i, id := range want {
		if drained[i].Tx.ID != id {
			t.Fatalf("drain order[%d] = %s, want %s", i, drained[i].Tx.ID, id)
		}
	}
	if p.Len() != 0 {
		t.Fatalf("pool should be empty after drain")
	}
}

func TestPoolInsertDuplicateIDIsNoOp(t *testing.T) {
	p := NewPool()
	tx := mkTx("dup", `{"x":1}`)
	if err := p.Insert(tx, time.Now()); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := p.Insert(tx, time.Now()); err != nil {
		t.Fatalf("second insert of identical tx should be a no-op, got %v", err)
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", p.Len())
	}
}

func TestPoolInsertConflictingIDFails(t *testing.T) {
	p := NewPool()
	if err := p.Insert(mkTx("x", `{"a":1}`), time.Now()); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := p.Insert(mkTx("x", `{"a":2}`), time.Now()); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPoolRestoreAfterFailedDrain(t *testing.T) {
	p := NewPool()
	p.Insert(mkTx("a", `{}`), time.Now())
	drained := p.DrainOrdered()
	if p.Len() != 0 {
		t.Fatalf("pool should be drained")
	}
	p.Restore(drained)
	if p.Len() != 1 {
		t.Fatalf("expected restored entry, got %d", p.Len())
	}
}
