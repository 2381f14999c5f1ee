// Package ledger implements the atomic balance-transfer core: a transfer
// debits one account and credits another as a single all-or-nothing unit of
// work, so the sum of all balances is conserved and no balance ever goes
// negative. All coordination is delegated to the store's transaction
// primitive; the engine holds no in-process locks and stays correct when
// several engine instances run in separate processes.
package ledger

import (
	"context" // Context for cancellation and deadlines
	"errors"  // errors.Is classification
	"fmt"     // Error wrapping

	"ledger_system/internal/domain" // Importing domain models
	"ledger_system/internal/store"  // Account Store interfaces
)

// Engine executes peer-to-peer transfers.
type Engine struct {
	store store.AccountStore // Durable account storage
}

// NewEngine builds an Engine on top of an account store.
func NewEngine(s store.AccountStore) *Engine {
	return &Engine{store: s}
}

// Transfer moves amount (minor units) from one user's account to another's.
// Either both balance adjustments and the audit row commit together, or
// nothing is persisted. The engine never retries: business rejections are
// final, and ErrTransient is left for the caller to retry from scratch.
func (e *Engine) Transfer(ctx context.Context, fromUserID, toUserID uint, amount int64) error {
	// Non-positive amounts are rejected before any store access.
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidOperation)
	}

	tx, err := e.store.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	// Rollback is a no-op once Commit has succeeded, so every early return
	// below leaves both balances untouched.
	defer tx.Rollback()

	// Self-transfer is disallowed.
	if fromUserID == toUserID {
		return fmt.Errorf("%w: cannot transfer to yourself", ErrInvalidOperation)
	}

	// Load and lock the source account.
	source, err := tx.Account(fromUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return classify(err)
	}
	// The balance check happens on the locked row, strictly before any
	// mutation; a concurrent transfer cannot slip between check and debit.
	if source.Balance < amount {
		return ErrInsufficientFunds
	}

	// Load and lock the destination account.
	destination, err := tx.Account(toUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidDestination
		}
		return classify(err)
	}

	// Both rows are locked; apply the debit and credit together.
	if err := tx.AdjustBalance(source.UserID, -amount); err != nil {
		return classify(err)
	}
	if err := tx.AdjustBalance(destination.UserID, amount); err != nil {
		return classify(err)
	}
	// Audit row rides in the same transaction.
	if err := tx.RecordTransfer(&domain.Transfer{
		FromAccountID: source.ID,
		ToAccountID:   destination.ID,
		Amount:        amount,
	}); err != nil {
		return classify(err)
	}

	// The transfer has happened only once Commit returns nil.
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// classify translates storage failures for callers: conflicts become
// retryable ErrTransient, anything else surfaces as-is after the deferred
// rollback has run.
func classify(err error) error {
	if errors.Is(err, store.ErrConflict) {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}
