package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/truthsource/backend/internal/domain/shared"
)

const idempotencyKeyPrefix = "event:idempotency:"

// RedisIdempotencyStore remembers processed event IDs in Redis so every
// instance of the service shares the same duplicate-detection state.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisStoreConfig holds the connection settings for a dedicated client
type RedisStoreConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisIdempotencyStore connects to Redis and verifies the connection
func NewRedisIdempotencyStore(cfg RedisStoreConfig) (*RedisIdempotencyStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: idempotencyKeyPrefix,
	}, nil
}

// NewRedisIdempotencyStoreWithClient wraps an existing client, letting the
// application share one connection pool across components
func NewRedisIdempotencyStoreWithClient(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = idempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// MarkProcessed atomically records the event ID with a TTL via SETNX.
// Returns true when the ID was newly recorded.
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	fresh, err := s.client.SetNX(ctx, s.keyPrefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return fresh, nil
}

// IsProcessed reports whether the event ID is currently recorded
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	exists, err := s.client.Exists(ctx, s.keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("check event processed: %w", err)
	}
	return exists > 0, nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
