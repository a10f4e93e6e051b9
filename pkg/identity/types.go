// Copyright 2025 Veritas Documents
package identity

import "time"

// Invite is a one-time activation token binding an email to an account
// type. It is stored encrypted under the system's KEM identity in the
// storage fabric's ActivationToken class; this struct is its plaintext
// shape once opened.
type Invite struct {
	Token       string    `json:"token"`
	Email       string    `json:"email"`
	AccountType string    `json:"accountType"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Consumed    bool      `json:"consumed"`
}

// ActivationRequest is the client's proof-of-possession submission
// against an issued invite. All key and signature fields are base64url
// text, matching the wire format's byte-string convention.
type ActivationRequest struct {
	Token             string
	KEMPublicKey      string
	SigPublicKey      string
	EncryptedUserData string
	Timestamp         time.Time
	Signature         string
}

// ActivationResult is returned on a successful activation: the new user's
// logical id and the USER_REGISTRATION transaction id it anchored.
type ActivationResult struct {
	UserID        string
	TransactionID string
}

// LoginRequest carries a signature over "login:{email}:{timestamp}"
// proving possession of the registered signature key, with no password or
// private key ever reaching the server.
type LoginRequest struct {
	Email     string
	Timestamp time.Time
	Signature string
}

// Session is an opaque, server-issued bearer credential with a bounded
// lifetime. Its Token is the only part of this struct a client ever sees;
// the rest is server-side bookkeeping.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}
