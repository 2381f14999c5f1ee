package api

import (
	"ledger_system/internal/domain" // Importing domain models
	"ledger_system/internal/utils"  // Utility functions
	"math/rand"                     // Pseudo-random opening balance
	"net/http"                      // HTTP status codes
	"strings"                       // String manipulation

	"github.com/gin-gonic/gin"   // Gin web framework
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// openingBalanceCeiling bounds the pseudo-random balance granted at signup,
// in minor units.
const openingBalanceCeiling = 10000

// SignUpRequest represents a registration request
type SignUpRequest struct {
	Email     string `json:"email" binding:"required,email"`   // Login email, must be valid
	FirstName string `json:"first_name" binding:"required"`    // First name must be provided
	LastName  string `json:"last_name" binding:"required"`     // Last name must be provided
	Password  string `json:"password" binding:"required,min=6"` // Password of at least 6 characters
}

// SignInRequest represents a login request
type SignInRequest struct {
	Email    string `json:"email" binding:"required,email"` // Login email
	Password string `json:"password" binding:"required"`    // Password must be provided
}

// AuthResponse carries the issued session token
type AuthResponse struct {
	Token string `json:"token"` // JWT token
}

// SignUpHandler registers a user and opens their account in one DB
// transaction, so a user row can never exist without an account row.
func SignUpHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignUpRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		email := strings.ToLower(req.Email) // Lowercase email to keep uniqueness case-insensitive
		// Reject duplicate registrations up front
		var existing domain.User
		if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already taken"})
			return
		}
		// Hash the password
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user := domain.User{
			Email:     email,         // Login email
			FirstName: req.FirstName, // First name
			LastName:  req.LastName,  // Last name
			Password:  string(hash),  // Hashed password
		}
		// Create user and account together; the account starts with a
		// pseudo-random opening balance.
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err // Return error to rollback
			}
			account := domain.Account{
				UserID:  user.ID,                                 // One account per user
				Balance: rand.Int63n(openingBalanceCeiling),      // Opening balance in minor units
			}
			if err := tx.Create(&account).Error; err != nil {
				return err // Return error to rollback
			}
			return nil // Commit transaction
		})
		if err != nil {
			// Unique index race or storage failure
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already taken"})
			return
		}
		// Issue a session token right away
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "token": token})
	}
}

// SignInHandler authenticates a user and returns a JWT token
func SignInHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignInRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Compare provided password with stored hash
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		// Generate JWT token
		token, err := utils.GenerateJWT(user.ID, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token})
	}
}

// UpdateUserRequest carries optional profile changes
type UpdateUserRequest struct {
	FirstName string `json:"first_name"`                        // New first name, optional
	LastName  string `json:"last_name"`                         // New last name, optional
	Password  string `json:"password" binding:"omitempty,min=6"` // New password, optional
}

// UpdateUserHandler updates the authenticated user's profile
func UpdateUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req UpdateUserRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Error while updating information"})
			return
		}
		updates := map[string]any{} // Only touch fields that were provided
		if req.FirstName != "" {
			updates["first_name"] = req.FirstName
		}
		if req.LastName != "" {
			updates["last_name"] = req.LastName
		}
		if req.Password != "" {
			// Re-hash the new password
			hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
				return
			}
			updates["password"] = string(hash)
		}
		if len(updates) == 0 {
			c.JSON(http.StatusOK, gin.H{"message": "Nothing to update"})
			return
		}
		if err := db.Model(&domain.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error while updating information"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Updated successfully"})
	}
}

// UserSummary is the public shape returned by the bulk search
type UserSummary struct {
	ID        uint   `json:"id"`         // User ID
	Email     string `json:"email"`      // Login email
	FirstName string `json:"first_name"` // First name
	LastName  string `json:"last_name"`  // Last name
}

// BulkUsersHandler returns users whose first or last name contains the
// filter, case-insensitively. An empty filter matches everyone.
func BulkUsersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := c.Query("filter")       // Substring to match, may be empty
		pattern := "%" + filter + "%"     // LIKE pattern
		var users []domain.User           // Matching users
		if err := db.Where("first_name LIKE ? OR last_name LIKE ?", pattern, pattern).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search users"})
			return
		}
		// Map users to the public shape, never exposing password hashes
		resp := make([]UserSummary, len(users))
		for i, u := range users {
			resp[i] = UserSummary{
				ID:        u.ID,        // User ID
				Email:     u.Email,     // Login email
				FirstName: u.FirstName, // First name
				LastName:  u.LastName,  // Last name
			}
		}
		c.JSON(http.StatusOK, gin.H{"users": resp})
	}
}

// GetUserHandler returns the authenticated user's own profile
func GetUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var user domain.User // Fetch user from database
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": UserSummary{
			ID:        user.ID,        // User ID
			Email:     user.Email,     // Login email
			FirstName: user.FirstName, // First name
			LastName:  user.LastName,  // Last name
		}})
	}
}
