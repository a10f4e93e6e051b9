// Copyright 2025 Veritas Documents
package localkv

import (
	"bytes"
	"context"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	if err := s.Put(context.Background(), "tip", []byte("block-42")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(context.Background(), "tip")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("block-42")) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestGetMissingKeyReturnsNil(t *testing.T) {
	s := NewMemory()
	defer s.Close()

	got, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %q", got)
	}
}
