// Copyright 2025 Veritas Documents
package identity

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/veritas/vdc/pkg/crypto/pqc"
	"github.com/veritas/vdc/pkg/envelope"
	"github.com/veritas/vdc/pkg/ledger"
	"github.com/veritas/vdc/pkg/storage"
	"github.com/veritas/vdc/pkg/storage/contentaddr"
	"github.com/veritas/vdc/pkg/storage/localkv"
	"github.com/veritas/vdc/pkg/sysid"
)

type memObject struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemObject() *memObject { return &memObject{data: make(map[string][]byte)} }

func (m *memObject) Put(ctx context.Context, key string, value []byte, contentType string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memObject) Get(ctx context.Context, key string) ([]byte, map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil, nil
	}
	return v, nil, nil
}

func (m *memObject) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type harness struct {
	svc      *Service
	engine   *ledger.Engine
	registry *ledger.Registry
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	sysidReg := sysid.NewRegistry()
	sysPub, sysPriv, err := pqc.SigKeygen()
	if err != nil {
		t.Fatalf("sig keygen: %v", err)
	}
	sysKEMPub, sysKEMPriv, err := pqc.KEMKeygen()
	if err != nil {
		t.Fatalf("kem keygen: %v", err)
	}
	id := sysid.New(sysPriv[:16], sysPriv[16:], sysPub, "v1", sysidReg).WithKEM(sysKEMPub, sysKEMPriv)

	kv := localkv.NewMemory()
	fabric := storage.New(kv, newMemObject(), contentaddr.New())
	engine := ledger.NewEngine(id, fabric, kv)
	registry := ledger.NewRegistry(kv)

	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(fabric, kv, id, engine, registry, WithClock(func() time.Time { return clock }))

	return &harness{svc: svc, engine: engine, registry: registry, clock: clock}
}

func (h *harness) activateUser(t *testing.T, email, accountType string) (pqc.SigPublicKey, pqc.SigPrivateKey, *ActivationResult) {
	t.Helper()
	ctx := context.Background()

	invite, err := h.svc.IssueInvite(ctx, email, accountType)
	if err != nil {
		t.Fatalf("issue invite: %v", err)
	}

	kemPub, _, err := pqc.KEMKeygen()
	if err != nil {
		t.Fatalf("kem keygen: %v", err)
	}
	sigPub, sigPriv, err := pqc.SigKeygen()
	if err != nil {
		t.Fatalf("sig keygen: %v", err)
	}

	env, err := envelope.Seal(kemPub, []byte("veritas-user-v1"), []byte(`{"email":"`+email+`"}`))
	if err != nil {
		t.Fatalf("seal user data: %v", err)
	}
	encryptedUserData := base64.RawURLEncoding.EncodeToString(env.CT)

	req := ActivationRequest{
		Token:             invite.Token,
		KEMPublicKey:      base64.RawURLEncoding.EncodeToString(kemPub.Bytes()),
		SigPublicKey:      base64.RawURLEncoding.EncodeToString(sigPub),
		EncryptedUserData: encryptedUserData,
		Timestamp:         h.clock,
	}
	signingBytes, err := canonicalActivationBytes(req)
	if err != nil {
		t.Fatalf("signing bytes: %v", err)
	}
	sig, err := pqc.SigSign(sigPriv, signingBytes)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req.Signature = base64.RawURLEncoding.EncodeToString(sig)

	result, err := h.svc.Activate(ctx, req)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	if _, err := h.engine.MineBlock(ctx); err != nil {
		t.Fatalf("mine registration: %v", err)
	}

	return sigPub, sigPriv, result
}

func TestActivationAndLogin(t *testing.T) {
	h := newHarness(t)
	_, sigPriv, result := h.activateUser(t, "u@x.test", "invited")

	if result.UserID == "" || result.TransactionID == "" {
		t.Fatalf("expected non-empty activation result, got %+v", result)
	}

	account, err := h.registry.AccountByEmail(context.Background(), "u@x.test")
	if err != nil {
		t.Fatalf("account by email: %v", err)
	}
	if account.AccountType != "invited" {
		t.Fatalf("expected accountType invited (from the invite, not client-chosen), got %q", account.AccountType)
	}

	loginTS := h.clock.Add(1 * time.Minute)
	sig, err := pqc.SigSign(sigPriv, []byte("login:u@x.test:"+strconv.FormatInt(loginTS.UnixMilli(), 10)))
	if err != nil {
		t.Fatalf("sign login: %v", err)
	}

	session, err := h.svc.Login(context.Background(), LoginRequest{
		Email:     "u@x.test",
		Timestamp: loginTS,
		Signature: base64.RawURLEncoding.EncodeToString(sig),
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.UserID != result.UserID {
		t.Fatalf("expected session for %s, got %s", result.UserID, session.UserID)
	}

	validated, err := h.svc.ValidateSession(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("validate session: %v", err)
	}
	if validated.UserID != result.UserID {
		t.Fatalf("expected validated session for %s, got %s", result.UserID, validated.UserID)
	}
}

func TestLoginRejectsStaleChallenge(t *testing.T) {
	h := newHarness(t)
	_, sigPriv, _ := h.activateUser(t, "stale@x.test", "invited")

	// The challenge's own timestamp is the activation-time clock; Login is
	// called as if 10 minutes have passed, outside the default 5-minute
	// skew window.
	staleTS := h.clock
	h2 := *h
	h2.svc = NewService(h.svc.fabric, h.svc.kv, h.svc.identity, h.svc.ledger, h.svc.registry, WithClock(func() time.Time {
		return staleTS.Add(10 * time.Minute)
	}))

	sig, err := pqc.SigSign(sigPriv, []byte("login:stale@x.test:"+strconv.FormatInt(staleTS.UnixMilli(), 10)))
	if err != nil {
		t.Fatalf("sign login: %v", err)
	}

	_, err = h2.svc.Login(context.Background(), LoginRequest{
		Email:     "stale@x.test",
		Timestamp: staleTS,
		Signature: base64.RawURLEncoding.EncodeToString(sig),
	})
	if !errors.Is(err, ErrStaleChallenge) {
		t.Fatalf("expected ErrStaleChallenge, got %v", err)
	}
}

func TestActivationRejectsConsumedInvite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	invite, err := h.svc.IssueInvite(ctx, "twice@x.test", "user")
	if err != nil {
		t.Fatalf("issue invite: %v", err)
	}

	kemPub, _, err := pqc.KEMKeygen()
	if err != nil {
		t.Fatalf("kem keygen: %v", err)
	}
	sigPub, sigPriv, err := pqc.SigKeygen()
	if err != nil {
		t.Fatalf("sig keygen: %v", err)
	}
	_ = sigPub

	makeReq := func() ActivationRequest {
		req := ActivationRequest{
			Token:             invite.Token,
			KEMPublicKey:      base64.RawURLEncoding.EncodeToString(kemPub.Bytes()),
			SigPublicKey:      base64.RawURLEncoding.EncodeToString(sigPub),
			EncryptedUserData: "ct",
			Timestamp:         h.clock,
		}
		bytes, err := canonicalActivationBytes(req)
		if err != nil {
			t.Fatalf("signing bytes: %v", err)
		}
		sig, err := pqc.SigSign(sigPriv, bytes)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		req.Signature = base64.RawURLEncoding.EncodeToString(sig)
		return req
	}

	if _, err := h.svc.Activate(ctx, makeReq()); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	if _, err := h.svc.Activate(ctx, makeReq()); !errors.Is(err, ErrInviteInvalidOrConsumed) {
		t.Fatalf("expected ErrInviteInvalidOrConsumed on replay, got %v", err)
	}
}

func TestActivationRejectsBadSignature(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	invite, err := h.svc.IssueInvite(ctx, "bad@x.test", "user")
	if err != nil {
		t.Fatalf("issue invite: %v", err)
	}

	kemPub, _, err := pqc.KEMKeygen()
	if err != nil {
		t.Fatalf("kem keygen: %v", err)
	}
	sigPub, _, err := pqc.SigKeygen()
	if err != nil {
		t.Fatalf("sig keygen: %v", err)
	}
	_, wrongPriv, err := pqc.SigKeygen()
	if err != nil {
		t.Fatalf("sig keygen: %v", err)
	}

	req := ActivationRequest{
		Token:             invite.Token,
		KEMPublicKey:      base64.RawURLEncoding.EncodeToString(kemPub.Bytes()),
		SigPublicKey:      base64.RawURLEncoding.EncodeToString(sigPub),
		EncryptedUserData: "ct",
		Timestamp:         h.clock,
	}
	bytes, err := canonicalActivationBytes(req)
	if err != nil {
		t.Fatalf("signing bytes: %v", err)
	}
	sig, err := pqc.SigSign(wrongPriv, bytes)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req.Signature = base64.RawURLEncoding.EncodeToString(sig)

	if _, err := h.svc.Activate(ctx, req); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

