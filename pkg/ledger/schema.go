// Copyright 2025 Veritas Documents
//
// Transaction payload schemas, one per TransactionType. ValidateData
// decodes tx.Data against the schema for tx.Type and rejects anything
// missing a required field; it never mutates tx.Data, since that would
// move the bytes both signatures were computed over.
package ledger

import (
	"encoding/json"
	"fmt"
)

// UserRegistrationData is the data payload for a USER_REGISTRATION
// transaction. AccountType is copied from the consumed invite by the
// identity package, never chosen by the client transaction itself.
type UserRegistrationData struct {
	UserID            string `json:"userId"`
	Email             string `json:"email"`
	KEMPublicKey      string `json:"kemPublicKey"`
	SigPublicKey      string `json:"sigPublicKey"`
	EncryptedUserData string `json:"encryptedUserData"`
	AccountType       string `json:"accountType"`
}

// DocumentCreationData is the data payload for a DOCUMENT_CREATION
// transaction.
type DocumentCreationData struct {
	AssetID            string `json:"assetId"`
	OwnerID            string `json:"ownerId"`
	ContentDigest      string `json:"contentDigest"`
	DocumentType       string `json:"documentType"`
	PubliclySearchable bool   `json:"publiclySearchable"`
	CreatedAt          string `json:"createdAt"`
}

// AssetTransferData is the data payload for an ASSET_TRANSFER transaction.
type AssetTransferData struct {
	AssetID     string `json:"assetId"`
	FromOwnerID string `json:"fromOwnerId"`
	ToOwnerID   string `json:"toOwnerId"`
}

// AdminActionData is the data payload for an ADMIN_ACTION transaction.
type AdminActionData struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// RotateSystemKeyPayload is AdminActionData.Payload's shape for the
// "rotate_system_key" action: the new (keyVersion, publicKey) pair that
// verify_system must be able to resolve once this transaction is mined.
// PublicKey is base64url text, matching every other *PublicKey field's
// wire convention.
type RotateSystemKeyPayload struct {
	KeyVersion string `json:"keyVersion"`
	PublicKey  string `json:"publicKey"`
}

// ValidateData decodes and structurally validates tx.Data against the
// schema for tx.Type, returning the decoded payload as `any` (one of the
// *Data types above) so callers don't need a second decode.
func ValidateData(tx *Transaction) (any, error) {
	switch tx.Type {
	case UserRegistration:
		var d UserRegistrationData
		if err := json.Unmarshal(tx.Data, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if d.UserID == "" || d.Email == "" || d.KEMPublicKey == "" || d.SigPublicKey == "" || d.AccountType == "" {
			return nil, fmt.Errorf("%w: USER_REGISTRATION missing required field", ErrMalformed)
		}
		return d, nil

	case DocumentCreation:
		var d DocumentCreationData
		if err := json.Unmarshal(tx.Data, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if d.AssetID == "" || d.OwnerID == "" || d.ContentDigest == "" || d.DocumentType == "" || d.CreatedAt == "" {
			return nil, fmt.Errorf("%w: DOCUMENT_CREATION missing required field", ErrMalformed)
		}
		return d, nil

	case AssetTransfer:
		var d AssetTransferData
		if err := json.Unmarshal(tx.Data, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if d.AssetID == "" || d.FromOwnerID == "" || d.ToOwnerID == "" {
			return nil, fmt.Errorf("%w: ASSET_TRANSFER missing required field", ErrMalformed)
		}
		return d, nil

	case AdminAction:
		var d AdminActionData
		if err := json.Unmarshal(tx.Data, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if d.Action == "" {
			return nil, fmt.Errorf("%w: ADMIN_ACTION missing action", ErrMalformed)
		}
		return d, nil

	default:
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrMalformed, tx.Type)
	}
}
