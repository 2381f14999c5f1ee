package api

import (
	"context"  // Context plumbing for engine and cache calls
	"errors"   // errors.Is classification
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Durations for cache TTL and retry backoff

	"ledger_system/internal/domain" // Importing domain models
	"ledger_system/internal/ledger" // Transfer engine error classes
	"ledger_system/internal/store"  // Account store interface

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// TransferEngine executes one atomic transfer. Satisfied by *ledger.Engine.
type TransferEngine interface {
	Transfer(ctx context.Context, fromUserID, toUserID uint, amount int64) error
}

// Cache is the read-through cache used by the account handlers. Satisfied by
// *utils.Cache.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const (
	balanceCacheTTL  = 60 * time.Second      // How long a cached balance stays fresh
	transferAttempts = 3                     // Bounded retries for transient storage failures
	transferBackoff  = 50 * time.Millisecond // Pause between retry attempts
)

// balanceCacheKey builds the cache key for one user's balance.
func balanceCacheKey(userID uint) string {
	return "balance:user:" + strconv.Itoa(int(userID))
}

// BalanceHandler returns the authenticated user's balance, cached briefly.
func BalanceHandler(accounts store.AccountStore, cache Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := c.Request.Context()
		cacheKey := balanceCacheKey(userID.(uint))
		var account domain.Account
		// Serve from cache when fresh
		if found, err := cache.Get(ctx, cacheKey, &account); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"balance": account.Balance, "cached": true})
			return
		}
		// Fall back to the store
		acc, err := accounts.GetAccount(ctx, userID.(uint))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch balance"})
			return
		}
		_ = cache.Set(ctx, cacheKey, acc, balanceCacheTTL) // Cache the balance
		c.JSON(http.StatusOK, gin.H{"balance": acc.Balance, "cached": false})
	}
}

// TransferRequest represents a transfer request
type TransferRequest struct {
	ToUserID uint  `json:"to_user_id" binding:"required"`  // Recipient user ID
	Amount   int64 `json:"amount" binding:"required,gt=0"` // Amount in minor units, must be positive
}

// TransferHandler moves funds from the authenticated user to another user.
// The engine does the atomic work; this handler only maps failure classes to
// responses and retries transient storage conflicts a bounded number of
// times. A retry can never double-apply: a transient failure means nothing
// was committed.
func TransferHandler(engine TransferEngine, cache Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		fromUserID, exists := c.Get("userID") // Get userID from context
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req TransferRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		from := fromUserID.(uint)
		var err error
		for attempt := 1; attempt <= transferAttempts; attempt++ {
			err = engine.Transfer(c.Request.Context(), from, req.ToUserID, req.Amount)
			if !errors.Is(err, ledger.ErrTransient) {
				break // Success or a final business rejection
			}
			// Storage conflict, nothing committed; back off and try again
			logrus.WithFields(logrus.Fields{
				"from_user_id": from,        // Sender user ID
				"to_user_id":   req.ToUserID, // Recipient user ID
				"amount":       req.Amount,  // Transfer amount
				"attempt":      attempt,     // Attempt number
			}).Warn("Transfer hit transient conflict")
			if attempt < transferAttempts {
				time.Sleep(transferBackoff)
			}
		}
		if err != nil {
			status, msg := transferFailure(err)
			logrus.WithFields(logrus.Fields{
				"from_user_id": from,         // Sender user ID
				"to_user_id":   req.ToUserID, // Recipient user ID
				"amount":       req.Amount,   // Transfer amount
				"error":        err.Error(),  // Error message
			}).Error("Transfer failed")
			c.JSON(status, gin.H{"error": msg})
			return
		}

		// Log successful transfer
		logrus.WithFields(logrus.Fields{
			"from_user_id": from,         // Sender user ID
			"to_user_id":   req.ToUserID, // Recipient user ID
			"amount":       req.Amount,   // Transfer amount
		}).Info("Transfer committed")
		// Invalidate both parties' cached balances
		ctx := c.Request.Context()
		_ = cache.Delete(ctx, balanceCacheKey(from))
		_ = cache.Delete(ctx, balanceCacheKey(req.ToUserID))
		c.JSON(http.StatusOK, gin.H{"message": "Transfer successful"})
	}
}

// transferFailure maps an engine failure class onto an HTTP status and a
// distinct, actionable message. Every class gets its own response; nothing
// partially succeeds.
func transferFailure(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrInvalidOperation):
		return http.StatusBadRequest, "Cannot transfer to yourself"
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusBadRequest, "Insufficient balance"
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound, "Sender account not found"
	case errors.Is(err, ledger.ErrInvalidDestination):
		return http.StatusNotFound, "Invalid account"
	case errors.Is(err, ledger.ErrTransient):
		return http.StatusServiceUnavailable, "Transfer temporarily unavailable, please retry"
	default:
		return http.StatusInternalServerError, "Transfer failed"
	}
}
