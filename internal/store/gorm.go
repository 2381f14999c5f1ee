package store

import (
	"context" // Context for DB operations
	"errors"  // Error classification
	"fmt"     // Error wrapping

	"ledger_system/internal/domain" // Importing domain models

	"github.com/go-sql-driver/mysql" // MySQL driver error numbers
	"gorm.io/gorm"                   // GORM ORM library
	"gorm.io/gorm/clause"            // Row-locking clauses
)

// GormAccountStore backs AccountStore with a GORM MySQL connection.
type GormAccountStore struct {
	db *gorm.DB // Shared connection handle
}

// NewGormAccountStore wraps an open GORM connection.
func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

// GetAccount returns the account owned by userID, or ErrNotFound.
func (s *GormAccountStore) GetAccount(ctx context.Context, userID uint) (*domain.Account, error) {
	var account domain.Account
	// Plain read, no lock
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		return nil, classify(err)
	}
	return &account, nil
}

// Begin opens a DB transaction bound to ctx.
func (s *GormAccountStore) Begin(ctx context.Context) (AccountTx, error) {
	tx := s.db.WithContext(ctx).Begin() // Start the transaction
	if tx.Error != nil {
		return nil, classify(tx.Error)
	}
	return &gormAccountTx{tx: tx}, nil
}

// gormAccountTx implements AccountTx over one GORM transaction.
type gormAccountTx struct {
	tx   *gorm.DB // Transaction handle
	done bool     // Set after Commit or Rollback
}

// Account loads one account under a FOR UPDATE row lock. The lock is held
// until Commit or Rollback, which serializes conflicting transfers on the
// same account while leaving disjoint account pairs fully concurrent.
func (t *gormAccountTx) Account(userID uint) (*domain.Account, error) {
	var account domain.Account
	err := t.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&account).Error
	if err != nil {
		return nil, classify(err)
	}
	return &account, nil
}

// AdjustBalance applies balance += delta in place.
func (t *gormAccountTx) AdjustBalance(userID uint, delta int64) error {
	res := t.tx.Model(&domain.Account{}).
		Where("user_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", delta)) // Relative update, no read-back
	if res.Error != nil {
		return classify(res.Error)
	}
	// Zero rows means the account vanished between lock and update
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordTransfer writes the audit row inside the same transaction.
func (t *gormAccountTx) RecordTransfer(tr *domain.Transfer) error {
	if err := t.tx.Create(tr).Error; err != nil {
		return classify(err)
	}
	return nil
}

// Commit finalizes the transaction.
func (t *gormAccountTx) Commit() error {
	if t.done {
		return nil
	}
	if err := t.tx.Commit().Error; err != nil {
		t.done = true
		return classify(err)
	}
	t.done = true
	return nil
}

// Rollback discards the transaction. Calling it after Commit is a no-op so
// callers can always defer it.
func (t *gormAccountTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback().Error; err != nil {
		return classify(err)
	}
	return nil
}

// classify maps GORM and driver errors onto the store's error classes.
func classify(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1213: deadlock victim, 1205: lock wait timeout. Either way the
		// transaction leaves no partial state behind and may be retried.
		if mysqlErr.Number == 1213 || mysqlErr.Number == 1205 {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}
