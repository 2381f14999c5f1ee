package ledger

import "errors"

// Failure classes for a transfer. All of them are detected inside the store
// transaction and surface only after it has been aborted, so none of them
// leaves a partial mutation behind. Everything except ErrTransient is a
// caller error and must never be retried.
var (
	// ErrInvalidOperation rejects malformed requests: non-positive amounts
	// and self-transfers.
	ErrInvalidOperation = errors.New("invalid transfer operation")
	// ErrInsufficientFunds rejects a debit that would take the source
	// balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAccountNotFound means the initiating user has no account.
	ErrAccountNotFound = errors.New("source account not found")
	// ErrInvalidDestination means the recipient has no account.
	ErrInvalidDestination = errors.New("destination account not found")
	// ErrTransient is a storage-layer conflict or connectivity failure. The
	// caller may retry the whole transfer a bounded number of times.
	ErrTransient = errors.New("transient storage failure")
)
