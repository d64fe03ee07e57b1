package domain

import "errors"

// Ledger error taxonomy. Validation and authorization errors are surfaced to
// the caller as-is and must never be retried automatically;
// ErrStoreUnavailable is safe to retry with identical arguments because
// transfer admission is idempotent on the external reference.
var (
	ErrInvalidAmount       = errors.New("amount must be a positive decimal")
	ErrInvalidAccount      = errors.New("account missing or role mismatch")
	ErrNotAuthorized       = errors.New("caller is not authorized for this read")
	ErrConflict            = errors.New("external reference already used by a different transfer")
	ErrStoreUnavailable    = errors.New("ledger store unavailable")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrNoPayoutAddress     = errors.New("no payout address bound")
)
