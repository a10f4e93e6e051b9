// Copyright 2025 Veritas Documents
//
// Session issuance - an opaque, server-generated bearer token with a
// bounded lifetime; the token format is not part of any protocol a client
// depends on. Sessions are server-side bookkeeping, not a storage record
// class, so they are kept directly in the KV tier rather than routed
// through the storage fabric's policy table - the same precedent as the
// ledger engine's own tip pointer and transaction index.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// SessionTokenBytes is the amount of random entropy in an issued session
// token before base64url encoding.
const SessionTokenBytes = 32

func (s *Service) issueSession(ctx context.Context, userID string) (*Session, error) {
	raw := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("identity: draw session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	now := s.clock()
	session := &Session{
		Token:     token,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	b, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("identity: encode session: %w", err)
	}
	if err := s.kv.Put(ctx, sessionKeyPrefix+token, b); err != nil {
		return nil, fmt.Errorf("identity: store session: %w", err)
	}
	return session, nil
}

// ValidateSession resolves an opaque bearer token to the Session it was
// issued for, or ErrSessionNotFound/ErrSessionExpired if it cannot
// authenticate the caller.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	b, err := s.kv.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		return nil, fmt.Errorf("identity: read session: %w", err)
	}
	if b == nil {
		return nil, ErrSessionNotFound
	}
	var session Session
	if err := json.Unmarshal(b, &session); err != nil {
		return nil, fmt.Errorf("identity: decode session: %w", err)
	}
	if !s.clock().Before(session.ExpiresAt) {
		return nil, ErrSessionExpired
	}
	return &session, nil
}
