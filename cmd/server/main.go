package main

import (
	"context" // Context for the Redis connectivity check
	"log"     // Startup logging

	"ledger_system/internal/api"        // HTTP handlers
	"ledger_system/internal/config"     // Configuration
	"ledger_system/internal/ledger"     // Transfer engine
	"ledger_system/internal/middleware" // Auth middleware
	"ledger_system/internal/store"      // Account store
	"ledger_system/internal/utils"      // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the database
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Wire the transfer core: GORM-backed account store under the engine
	accounts := store.NewGormAccountStore(db)
	engine := ledger.NewEngine(accounts)
	cache := utils.NewCache(redisClient)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// User routes
	userGroup := r.Group("/api/v1/user")
	userGroup.POST("/signup", api.SignUpHandler(db, cfg.JWTSecret)) // Registration endpoint
	userGroup.GET("/bulk", api.BulkUsersHandler(db))                // Name search endpoint
	userGroup.POST("/signin", api.SignInHandler(db, cfg.JWTSecret)) // Login endpoint
	userGroup.PUT("/update", middleware.JWTAuthMiddleware(cfg.JWTSecret), api.UpdateUserHandler(db)) // Profile update endpoint
	userGroup.GET("/me", middleware.JWTAuthMiddleware(cfg.JWTSecret), api.GetUserHandler(db))        // Current user endpoint

	// Account routes (protected by JWT)
	accountGroup := r.Group("/api/v1/account")
	accountGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	accountGroup.GET("/balance", api.BalanceHandler(accounts, cache))   // Balance endpoint
	accountGroup.POST("/transfer", api.TransferHandler(engine, cache)) // Transfer endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/api/v1/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, cache))         // List users endpoint
	adminGroup.GET("/transfers", api.ListTransfersHandler(db, cache)) // List transfers endpoint

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
