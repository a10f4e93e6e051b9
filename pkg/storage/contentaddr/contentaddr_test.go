// Copyright 2025 Veritas Documents
package contentaddr

import (
	"bytes"
	"context"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	value := []byte("a legal document's canonical bytes")

	digest, err := s.Put(context.Background(), value)
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(context.Background(), digest)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("round trip mismatch")
	}
}

func TestDigestIsDeterministic(t *testing.T) {
	value := []byte("same bytes")
	d1, err := Digest(value)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	d2, err := Digest(value)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("expected identical digests, got %q and %q", d1, d2)
	}
}

func TestVerifyDetectsTamper(t *testing.T) {
	value := []byte("original")
	digest, err := Digest(value)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	ok, err := Verify(digest, []byte("tampered"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatalf("expected verification failure for tampered content")
	}
}
