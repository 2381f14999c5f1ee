package domain

// Transfer Model
// One row per committed transfer, written in the same DB transaction as the
// two balance adjustments so the audit log can never disagree with balances.
type Transfer struct {
	ID            uint  `gorm:"primaryKey"` // Primary key
	FromAccountID uint  // Account debited
	ToAccountID   uint  // Account credited
	Amount        int64 // Amount moved, minor units
	CreatedAt     int64 `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
