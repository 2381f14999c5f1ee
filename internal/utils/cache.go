package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"time"          // TTL durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache is a thin JSON read-through cache over Redis.
type Cache struct {
	rdb *redis.Client // Underlying Redis client
}

// NewCache wraps a connected Redis client.
func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Get retrieves a value and unmarshals it into dest. The bool reports
// whether the key existed.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// Set stores a value as JSON with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}
