package domain

// User Model
type User struct {
	ID        uint    `gorm:"primaryKey"`      // Primary key
	Email     string  `gorm:"unique;not null"` // Unique login email
	FirstName string  `gorm:"not null"`        // First name
	LastName  string  `gorm:"not null"`        // Last name
	Password  string  `gorm:"not null"`        // Hashed password
	Role      string  `gorm:"default:user"`    // Role: user or admin
	Account   Account `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"` // One-to-one relationship with Account
}
