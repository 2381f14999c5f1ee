package domain

// Account Model
// Balance is stored in minor currency units (e.g. cents) and must never go
// negative; the ledger engine checks before every debit.
type Account struct {
	ID      uint  `gorm:"primaryKey"`         // Primary key
	UserID  uint  `gorm:"uniqueIndex"`        // Foreign key to User, one account per user
	Balance int64 `gorm:"not null;default:0"` // Balance in minor units
}
