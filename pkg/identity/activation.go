// Copyright 2025 Veritas Documents
//
// Activation - consumes a one-time invite and anchors a USER_REGISTRATION
// transaction for the activating user.
package identity

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veritas/vdc/pkg/crypto/canonical"
	"github.com/veritas/vdc/pkg/crypto/pqc"
	"github.com/veritas/vdc/pkg/ledger"
)

// activationSigningPayload mirrors ledger.Transaction.UserSigningBytes'
// USER_REGISTRATION special case - the exact tuple the client signs at
// activation time, per the external interface
// {kemPublicKey, sigPublicKey, encryptedUserData, timestamp}.
type activationSigningPayload struct {
	KEMPublicKey      string    `json:"kemPublicKey"`
	SigPublicKey      string    `json:"sigPublicKey"`
	EncryptedUserData string    `json:"encryptedUserData"`
	Timestamp         time.Time `json:"timestamp"`
}

// canonicalActivationBytes returns the exact tuple the client signs at
// activation time.
func canonicalActivationBytes(req ActivationRequest) ([]byte, error) {
	return canonical.Marshal(activationSigningPayload{
		KEMPublicKey:      req.KEMPublicKey,
		SigPublicKey:      req.SigPublicKey,
		EncryptedUserData: req.EncryptedUserData,
		Timestamp:         req.Timestamp,
	})
}

// Activate consumes req.Token's invite, verifies the client's
// proof-of-possession signature, and anchors a USER_REGISTRATION
// transaction embedding the invite's accountType (never client-chosen).
func (s *Service) Activate(ctx context.Context, req ActivationRequest) (*ActivationResult, error) {
	invite, err := s.lookupInvite(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if invite.Consumed || !s.clock().Before(invite.ExpiresAt) {
		return nil, ErrInviteInvalidOrConsumed
	}

	sigPubBytes, err := base64.RawURLEncoding.DecodeString(req.SigPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed sigPublicKey", ErrBadSignature)
	}
	sigBytes, err := base64.RawURLEncoding.DecodeString(req.Signature)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed signature", ErrBadSignature)
	}

	signingBytes, err := canonicalActivationBytes(req)
	if err != nil {
		return nil, fmt.Errorf("identity: activation signing bytes: %w", err)
	}

	ok, err := pqc.SigVerify(pqc.SigPublicKey(sigPubBytes), signingBytes, sigBytes)
	if err != nil || !ok {
		return nil, ErrBadSignature
	}

	userID := uuid.NewString()
	data, err := canonical.Marshal(ledger.UserRegistrationData{
		UserID:            userID,
		Email:             invite.Email,
		KEMPublicKey:      req.KEMPublicKey,
		SigPublicKey:      req.SigPublicKey,
		EncryptedUserData: req.EncryptedUserData,
		AccountType:       invite.AccountType,
	})
	if err != nil {
		return nil, fmt.Errorf("identity: registration data: %w", err)
	}

	tx := ledger.Transaction{
		ID:        "reg-" + uuid.NewString(),
		Type:      ledger.UserRegistration,
		Timestamp: req.Timestamp,
		Data:      data,
	}
	tx.Signatures.User = ledger.Signature{
		PublicKey: canonical.Bytes(sigPubBytes),
		Signature: canonical.Bytes(sigBytes),
	}

	submitted, err := s.ledger.SubmitTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := s.consumeInvite(ctx, invite); err != nil {
		return nil, fmt.Errorf("identity: consume invite: %w", err)
	}

	s.logger.Printf("activated user %s via invite %s (tx %s)", userID, req.Token, submitted.ID)
	return &ActivationResult{UserID: userID, TransactionID: submitted.ID}, nil
}
