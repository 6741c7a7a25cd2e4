package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pagflow/pagflow/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: "", // no password set
		DB:       0,  // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// Ping reports cache connectivity for diagnostics.
func Ping() error {
	return GetClient().Ping(ctx).Err()
}

// LockManager implements per-payment poll locking on Redis SETNX.
type LockManager struct{}

func NewLockManager() *LockManager {
	return &LockManager{}
}

func (l *LockManager) Acquire(key string, ttl time.Duration) (bool, error) {
	return GetClient().SetNX(ctx, "lock:"+key, "1", ttl).Result()
}

func (l *LockManager) Release(key string) error {
	return GetClient().Del(ctx, "lock:"+key).Err()
}
