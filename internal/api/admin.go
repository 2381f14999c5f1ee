package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Cache TTL

	"ledger_system/internal/domain" // Importing domain models

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// adminCacheTTL is how long admin listings are cached.
const adminCacheTTL = 60 * time.Second

// pageParams reads page/page_size query params with the teacher defaults.
func pageParams(c *gin.Context) (page, pageSize int) {
	page = 1      // Default page
	pageSize = 20 // Default page size
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v // Set page if valid
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v // Set page size if valid
		}
	}
	return page, pageSize
}

// UserAdminResponse represents the user data returned to admin
type UserAdminResponse struct {
	ID        uint           `json:"id"`         // User ID
	Email     string         `json:"email"`      // Login email
	FirstName string         `json:"first_name"` // First name
	LastName  string         `json:"last_name"`  // Last name
	Role      string         `json:"role"`       // User role
	Account   domain.Account `json:"account"`    // Associated account
}

// ListUsersHandler returns all users with their account info, paginated.
func ListUsersHandler(db *gorm.DB, cache Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pageParams(c)
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		// Try the cache first
		var cached gin.H
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			cached["cached"] = true
			c.JSON(http.StatusOK, cached)
			return
		}
		var total int64 // Total user count
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
			return
		}
		var users []domain.User // Page of users
		// Preload Account relation, apply offset and limit for pagination
		if err := db.Preload("Account").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		// Map users to response format
		resp := make([]UserAdminResponse, len(users))
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:        u.ID,        // User ID
				Email:     u.Email,     // Login email
				FirstName: u.FirstName, // First name
				LastName:  u.LastName,  // Last name
				Role:      u.Role,      // User role
				Account:   u.Account,   // Associated account
			}
		}
		respData := gin.H{
			"users":       resp,                                       // Page of users
			"page":        page,                                       // Current page
			"page_size":   pageSize,                                   // Page size
			"total":       total,                                      // Total number of users
			"total_pages": (int(total) + pageSize - 1) / pageSize,     // Total pages
			"cached":      false,                                      // Not from cache
		}
		_ = cache.Set(ctx, cacheKey, respData, adminCacheTTL) // Cache the response
		c.JSON(http.StatusOK, respData)
	}
}

// ListTransfersHandler returns the transfer audit log, newest first.
func ListTransfersHandler(db *gorm.DB, cache Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		page, pageSize := pageParams(c)
		cacheKey := "admin:transfers:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		// Try the cache first
		var cached gin.H
		if found, err := cache.Get(ctx, cacheKey, &cached); err == nil && found {
			cached["cached"] = true
			c.JSON(http.StatusOK, cached)
			return
		}
		var total int64 // Total transfer count
		if err := db.Model(&domain.Transfer{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count transfers"})
			return
		}
		var transfers []domain.Transfer // Page of transfers
		if err := db.Order("created_at desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&transfers).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transfers"})
			return
		}
		respData := gin.H{
			"transfers":   transfers,                              // Page of transfers
			"page":        page,                                   // Current page
			"page_size":   pageSize,                               // Page size
			"total":       total,                                  // Total number of transfers
			"total_pages": (int(total) + pageSize - 1) / pageSize, // Total pages
			"cached":      false,                                  // Not from cache
		}
		_ = cache.Set(ctx, cacheKey, respData, adminCacheTTL) // Cache the response
		c.JSON(http.StatusOK, respData)
	}
}
