// Copyright 2025 Veritas Documents
package storage

import "errors"

var (
	// ErrNotFound is returned when no tier declared by a record class's
	// policy holds the requested key.
	ErrNotFound = errors.New("storage: not found")

	// ErrTierWriteFailed wraps the tier-specific error when a put fails on
	// a tier the policy requires. No partial success is ever reported: a
	// failed required tier rejects the whole put.
	ErrTierWriteFailed = errors.New("storage: tier write failed")

	// ErrTimeout is returned when a tier fails to answer within the
	// caller's deadline, so a slow backend is distinguishable from one
	// that rejected the operation.
	ErrTimeout = errors.New("storage: tier operation timed out")

	// ErrEncryptionRequired is returned when a record class's policy
	// requires encryption at rest but the caller supplied neither a
	// recipient key nor a pre-sealed envelope.
	ErrEncryptionRequired = errors.New("storage: encryption required")

	// ErrDecryptionKeyRequired is returned by Get when the stored record is
	// encrypted and the caller supplied no private key to open it.
	ErrDecryptionKeyRequired = errors.New("storage: decryption key required")

	// ErrUnknownClass is returned for a record class with no registered
	// policy.
	ErrUnknownClass = errors.New("storage: unknown record class")

	// ErrWrongRecordType is returned when a caller passes a value that
	// does not match the shape a record class's policy requires (for
	// example, a non-AssetMetadataRecord value for the AssetMetadata
	// class, which must be projectable).
	ErrWrongRecordType = errors.New("storage: wrong record type for class")
)
