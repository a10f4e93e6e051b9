// Copyright 2025 Veritas Documents
//
// Invite issuance and consumption. Issuing an invite is driven by an
// external collaborator (a CLI tool or admin surface); this file
// implements the narrow write/consume surface that collaborator calls,
// storing invites under the ActivationToken class.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veritas/vdc/pkg/crypto/canonical"
	"github.com/veritas/vdc/pkg/storage"
)

// DefaultInviteTTL is how long an issued invite remains redeemable.
const DefaultInviteTTL = 7 * 24 * time.Hour

func inviteKey(token string) string { return inviteKeyPrefix + token }

// IssueInvite writes a fresh, unconsumed invite for email/accountType to
// the ActivationToken class, sealed under the system's KEM identity, and
// returns it. The caller is responsible for delivering invite.Token to
// the invitee, e.g. by email.
func (s *Service) IssueInvite(ctx context.Context, email, accountType string) (*Invite, error) {
	if email == "" || accountType == "" {
		return nil, fmt.Errorf("identity: email and accountType required")
	}
	now := s.clock()
	invite := &Invite{
		Token:       uuid.NewString(),
		Email:       email,
		AccountType: accountType,
		IssuedAt:    now,
		ExpiresAt:   now.Add(DefaultInviteTTL),
	}
	if err := s.putInvite(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

func (s *Service) putInvite(ctx context.Context, invite *Invite) error {
	_, err := s.fabric.Put(ctx, storage.ActivationToken, inviteKey(invite.Token), invite, storage.PutOptions{
		EncryptionRecipient: s.identity.KEMPublicKey(),
		EncryptionSource:    storage.EncryptedBySystem,
		EncryptionOwner:     s.identity.KeyVersion(),
		AAD:                 inviteAAD,
	})
	if err != nil {
		return fmt.Errorf("identity: store invite: %w", err)
	}
	return nil
}

// lookupInvite reads an invite back by token, or ErrInviteInvalidOrConsumed
// if no such invite exists.
func (s *Service) lookupInvite(ctx context.Context, token string) (*Invite, error) {
	b, err := s.fabric.Get(ctx, storage.ActivationToken, inviteKey(token), storage.GetOptions{
		DecryptionKey: s.identity.KEMPrivateKey(),
		AAD:           inviteAAD,
	})
	if err != nil {
		return nil, ErrInviteInvalidOrConsumed
	}
	var invite Invite
	if err := canonical.Unmarshal(b, &invite); err != nil {
		return nil, fmt.Errorf("identity: decode invite: %w", err)
	}
	return &invite, nil
}

// consumeInvite marks invite consumed and writes it back, so a second
// activation attempt against the same token is rejected.
func (s *Service) consumeInvite(ctx context.Context, invite *Invite) error {
	invite.Consumed = true
	return s.putInvite(ctx, invite)
}
