package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keySetPrefix = "drinks:jwks:"

var ErrCacheMiss = errors.New("cache miss")

// KeySetCache stores raw JWKS documents so replicas can share one fetch.
// Get also reports how long the entry has left to live.
type KeySetCache interface {
	Get(ctx context.Context, key string) ([]byte, time.Duration, error)
	Set(ctx context.Context, key string, document []byte, ttl time.Duration) error
}

type redisCache struct {
	client *redis.Client
}

func NewRedisClient(url string, poolSize int) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	if poolSize > 0 {
		opt.PoolSize = poolSize
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

func NewKeySetCache(client *redis.Client) KeySetCache {
	return &redisCache{client: client}
}

// KeySetKey derives the cache key for the key set served at jwksURL.
func KeySetKey(jwksURL string) string {
	hash := sha256.Sum256([]byte(jwksURL))
	return keySetPrefix + hex.EncodeToString(hash[:])
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, time.Duration, error) {
	var (
		get *redis.StringCmd
		ttl *redis.DurationCmd
	)
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		ttl = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("failed to get from redis: %w", err)
	}

	val, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, ErrCacheMiss
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get from redis: %w", err)
	}

	// negative PTTL means no expiry or already gone; callers treat it as stale
	remaining := ttl.Val()
	if remaining < 0 {
		remaining = 0
	}
	return val, remaining, nil
}

func (r *redisCache) Set(ctx context.Context, key string, document []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, document, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set redis cache: %w", err)
	}

	return nil
}
