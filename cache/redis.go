package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "locsync:"

// Redis is a Redis-backed translation cache, useful when several CI
// jobs share one cache server.
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	// URL is the connection URL (e.g. "redis://localhost:6379").
	URL string
	// TTL bounds entry lifetime (0 = no expiration).
	TTL time.Duration
	// KeyPrefix prefixes all keys (default "locsync:").
	KeyPrefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewRedisFromClient(client, cfg.TTL, cfg.KeyPrefix), nil
}

// NewRedisFromClient wraps an existing Redis client.
func NewRedisFromClient(client *redis.Client, ttl time.Duration, keyPrefix string) *Redis {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{client: client, ttl: ttl, keyPrefix: keyPrefix}
}

// Get retrieves a value. Any Redis error reads as a cache miss: the
// cache is an optimization, never a failure source.
func (c *Redis) Get(key string) (string, bool) {
	val, err := c.client.Get(context.Background(), c.keyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a value.
func (c *Redis) Set(key, value string) error {
	return c.client.Set(context.Background(), c.keyPrefix+key, value, c.ttl).Err()
}

// Close closes the Redis connection.
func (c *Redis) Close() error {
	return c.client.Close()
}

var _ Cache = (*Redis)(nil)
