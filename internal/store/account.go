package store

import (
	"context" // Context for cancellation and deadlines
	"errors"  // Sentinel errors and errors.Is

	"ledger_system/internal/domain" // Importing domain models
)

// Store-level error classes. Callers branch on these with errors.Is instead
// of inspecting driver errors.
var (
	// ErrNotFound means there is no account row for the given user.
	ErrNotFound = errors.New("account not found")
	// ErrConflict means the transaction lost a lock race and left no partial
	// state behind; the whole operation may be retried from scratch.
	ErrConflict = errors.New("transaction conflict")
)

// AccountStore is the durable mapping from user identity to balance.
type AccountStore interface {
	// GetAccount is a point lookup with no locking guarantee of its own.
	// Combine reads with writes through Begin instead.
	GetAccount(ctx context.Context, userID uint) (*domain.Account, error)
	// Begin opens a transaction spanning reads and writes across multiple
	// accounts. The handle must be finished with Commit or Rollback; if ctx
	// is cancelled before Commit, nothing becomes visible.
	Begin(ctx context.Context) (AccountTx, error)
}

// AccountTx is a session-scoped transaction over account records. Writes
// under the handle become visible atomically on Commit; Rollback leaves the
// store exactly as it was before Begin.
type AccountTx interface {
	// Account loads one account and holds a row lock on it until the
	// transaction finishes, so read-check-write sequences cannot interleave
	// with a conflicting transfer on the same account.
	Account(userID uint) (*domain.Account, error)
	// AdjustBalance applies balance += delta. It does not enforce
	// non-negativity; callers check the locked balance before adjusting.
	AdjustBalance(userID uint, delta int64) error
	// RecordTransfer writes an audit row under the same handle.
	RecordTransfer(t *domain.Transfer) error
	// Commit makes every operation under the handle visible as one unit.
	Commit() error
	// Rollback discards them. Rollback after a successful Commit is a no-op,
	// so it is always safe to defer.
	Rollback() error
}
