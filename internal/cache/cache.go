package cache

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Error inspection
	"strconv"       // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// DefaultTTL is how long a cached view stays valid
const DefaultTTL = 60 * time.Second

// AdminUsersKey caches the admin user listing
const AdminUsersKey = "admin:users"

// DashboardKey caches one user's dashboard view
func DashboardKey(userID uint) string {
	return "dashboard:user:" + strconv.FormatUint(uint64(userID), 10)
}

// Cache is a JSON read-through cache on Redis. A nil *Cache never hits.
//
// Readers look entries up under Versioned keys. Invalidate bumps the
// generation, so a view built from data read before a mutation is stored under
// a generation nobody reads any more.
type Cache struct {
	rdb *redis.Client // Redis client
	ttl time.Duration // Entry lifetime
}

// New creates a cache on rdb with entries living ttl
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Load retrieves key and unmarshals it into dest
func (c *Cache) Load(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil {
		return false, nil
	}
	val, err := c.rdb.Get(ctx, key).Bytes() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err // Corrupt entry, treat as miss
	}
	return true, nil
}

// Store marshals value under key
func (c *Cache) Store(ctx context.Context, key string, value any) error {
	if c == nil {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err() // Set value in Redis with TTL
}

func generationKey(key string) string {
	return key + ":gen"
}

// Versioned qualifies key with its current generation. Take it before reading
// the data to be cached.
func (c *Cache) Versioned(ctx context.Context, key string) (string, error) {
	if c == nil {
		return key, nil
	}
	gen, err := c.rdb.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		gen = 0 // Never invalidated
	} else if err != nil {
		return "", err
	}
	return key + ":v" + strconv.FormatInt(gen, 10), nil
}

// Invalidate moves keys to a new generation. Entries of older generations are
// left to expire.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	pipe := c.rdb.TxPipeline()
	for _, key := range keys {
		pipe.Incr(ctx, generationKey(key)) // Bump generation
	}
	_, err := pipe.Exec(ctx)
	return err
}
