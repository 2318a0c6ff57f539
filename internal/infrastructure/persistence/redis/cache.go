// Package redis implements the Redis cache used for precomputed leaderboard
// views and for the worker's distributed locks.
//
// Key components:
//   - Cache: JSON values with TTLs over a go-redis client
//   - LeaderboardCache: leaderboard.ViewCache over a Store
//   - GuardedStore: a Store behind a circuit breaker
//   - Locker: SET NX locks for scheduled jobs
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snapclash/snapclash-hub/pkg/retry"
)

// Config holds Redis connection settings.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// DefaultConfig targets a local Redis, database 0.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	}
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		MaxRetries:   c.MaxRetries,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolTimeout:  c.PoolTimeout,
	}
}

var (
	// ErrCacheMiss means the key does not exist or has expired.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheSerialization wraps JSON encode and decode failures.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheKeyEmpty rejects calls with an empty key or pattern.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")
)

// Key namespaces.
const (
	PrefixLeaderboard = "leaderboard:"
	PrefixLock        = "lock:"
)

// Default TTLs, overridden by LEADERBOARD_*_TTL.
const (
	TTLFriendLeaderboard = 2 * time.Minute
	TTLPublicLeaderboard = 5 * time.Minute
	TTLTopChallengers    = 10 * time.Minute
	TTLDistributedLock   = 30 * time.Second
)

// LeaderboardKey joins view and parts, e.g. "leaderboard:public:week".
func LeaderboardKey(view string, parts ...string) string {
	key := PrefixLeaderboard + view
	for _, p := range parts {
		key += ":" + p
	}
	return key
}

// LockKey namespaces a lock resource.
func LockKey(resource string) string {
	return PrefixLock + resource
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHE
// ══════════════════════════════════════════════════════════════════════════════

// Cache stores JSON values in Redis. It implements Store and LockStore.
type Cache struct {
	client *redis.Client
}

// Connect dials Redis and pings it, retrying with backoff while it is
// unreachable.
func Connect(ctx context.Context, cfg Config, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}

	var client *redis.Client
	err := retry.ConnectRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("redis not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
	}).Do(ctx, func(ctx context.Context) error {
		c := redis.NewClient(cfg.options())
		pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
		if err := c.Ping(pingCtx).Err(); err != nil {
			_ = c.Close()
			return fmt.Errorf("redis: ping %s: %w", cfg.options().Addr, err)
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Cache{client: client}, nil
}

// Close releases the client's connections.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping is used by the readiness check.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Set stores value as JSON. A zero ttl means no expiry.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get decodes the value at key into dest, or returns ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	if key == "" {
		return ErrCacheKeyEmpty
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheSerialization, key, err)
	}
	return nil
}

// Delete removes keys; missing keys are ignored.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

const scanBatch = 100

// DeleteByPattern SCANs for pattern and deletes matches in batches.
func (c *Cache) DeleteByPattern(ctx context.Context, pattern string) error {
	if pattern == "" {
		return ErrCacheKeyEmpty
	}

	batch := make([]string, 0, scanBatch)
	iter := c.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.Delete(ctx, batch...)
}

// SetNX stores value only when key is absent and reports whether it did.
func (c *Cache) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	data, err := encode(key, value)
	if err != nil {
		return false, err
	}
	return c.client.SetNX(ctx, key, data, ttl).Result()
}

// releaseScript deletes the key only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DeleteIfEquals deletes key when its stored JSON equals value and reports
// whether it did.
func (c *Cache) DeleteIfEquals(ctx context.Context, key string, value any) (bool, error) {
	data, err := encode(key, value)
	if err != nil {
		return false, err
	}
	n, err := releaseScript.Run(ctx, c.client, []string{key}, data).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func encode(key string, value any) ([]byte, error) {
	if key == "" {
		return nil, ErrCacheKeyEmpty
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheSerialization, key, err)
	}
	return data, nil
}
