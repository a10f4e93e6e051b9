// Copyright 2025 Veritas Documents
//
// Login - challenge-response proof-of-possession against a registered
// signature key. The server never sees a password or private key;
// verifying the signature alone authenticates.
package identity

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/veritas/vdc/pkg/crypto/pqc"
)

// challenge builds the exact bytes the client signs:
// "login:{email}:{ts}", ts as Unix milliseconds.
func challenge(email string, ts int64) []byte {
	return []byte(fmt.Sprintf("login:%s:%d", email, ts))
}

// Login verifies req's signature over the login challenge and, on success,
// issues a new Session. A stale timestamp or a bad signature both surface
// as a single opaque authentication failure to the end user, but
// internally they are returned as distinct errors so a transport layer
// can log which check failed.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	now := s.clock()
	ts := req.Timestamp.UnixMilli()
	skew := now.Sub(req.Timestamp)
	if skew < 0 {
		skew = -skew
	}
	if skew > s.challengeSkew {
		return nil, ErrStaleChallenge
	}

	account, err := s.registry.AccountByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrUnknownUser
	}

	sigPub, err := base64.RawURLEncoding.DecodeString(account.SigPublicKey)
	if err != nil {
		return nil, fmt.Errorf("identity: malformed registered sig public key: %w", err)
	}
	sigBytes, err := base64.RawURLEncoding.DecodeString(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed signature", ErrBadSignature)
	}

	ok, err := pqc.SigVerify(pqc.SigPublicKey(sigPub), challenge(req.Email, ts), sigBytes)
	if err != nil || !ok {
		return nil, ErrBadSignature
	}

	session, err := s.issueSession(ctx, account.UserID)
	if err != nil {
		return nil, err
	}
	s.logger.Printf("login succeeded for user %s", account.UserID)
	return session, nil
}
