// Copyright 2025 Veritas Documents
//
// Ledger errors, named by condition rather than by implementation.
package ledger

import "errors"

var (
	ErrMalformed           = errors.New("ledger: malformed transaction")
	ErrBadUserSignature    = errors.New("ledger: bad user signature")
	ErrBadSystemSignature  = errors.New("ledger: bad system signature")
	ErrPolicyViolation     = errors.New("ledger: policy violation")
	ErrConflict            = errors.New("ledger: conflicting transaction id")
	ErrUnknownOwner        = errors.New("ledger: unknown owner")
	ErrBlockNotFound       = errors.New("ledger: block not found")
	ErrTransactionNotFound = errors.New("ledger: transaction not found")
	ErrChainBroken         = errors.New("ledger: chain verification failed")
)
