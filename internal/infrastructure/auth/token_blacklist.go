package auth

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	blacklistKeyPrefix   = "token:blacklist:"
	userInvalidKeyPrefix = "token:user_invalidated:"
)

// TokenBlacklist revokes tokens before their natural expiry. Logout
// blacklists the presented token by JTI; a password change invalidates
// every token the user was issued before that moment.
type TokenBlacklist interface {
	// AddToBlacklist revokes a single token until it would have expired
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error

	// IsBlacklisted reports whether a token has been revoked
	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	// AddUserTokensToBlacklist invalidates all tokens issued to the user
	// before the given time
	AddUserTokensToBlacklist(ctx context.Context, userID string, before time.Time, ttl time.Duration) error

	// IsUserTokenInvalidated reports whether a token issued at the given
	// time has been swept by a user-wide invalidation
	IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// RedisTokenBlacklist implements TokenBlacklist backed by Redis. Entries
// carry a TTL matching the token's remaining lifetime so the set cleans
// itself up.
type RedisTokenBlacklist struct {
	client redis.UniversalClient
}

// NewRedisTokenBlacklist creates a blacklist backed by the given Redis client
func NewRedisTokenBlacklist(client redis.UniversalClient) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func (b *RedisTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}
	key := blacklistKeyPrefix + jti
	if err := b.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	key := blacklistKeyPrefix + jti
	n, err := b.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("check token blacklist: %w", err)
	}
	return n > 0, nil
}

func (b *RedisTokenBlacklist) AddUserTokensToBlacklist(ctx context.Context, userID string, before time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := userInvalidKeyPrefix + userID
	if err := b.client.Set(ctx, key, strconv.FormatInt(before.Unix(), 10), ttl).Err(); err != nil {
		return fmt.Errorf("invalidate user tokens: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	key := userInvalidKeyPrefix + userID
	val, err := b.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("check user token invalidation: %w", err)
	}

	cutoff, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse invalidation timestamp: %w", err)
	}
	return issuedAt.Unix() < cutoff, nil
}

// InMemoryTokenBlacklist implements TokenBlacklist in process memory.
// Used in tests and single-node development setups without Redis.
type InMemoryTokenBlacklist struct {
	mu          sync.RWMutex
	tokens      map[string]time.Time // jti -> expiry
	userCutoffs map[string]time.Time // userID -> issued-before cutoff
}

// NewInMemoryTokenBlacklist creates an in-memory blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		tokens:      make(map[string]time.Time),
		userCutoffs: make(map[string]time.Time),
	}
}

func (b *InMemoryTokenBlacklist) AddToBlacklist(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[jti] = time.Now().Add(ttl)
	return nil
}

func (b *InMemoryTokenBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.RLock()
	expiry, ok := b.tokens[jti]
	b.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		b.mu.Lock()
		delete(b.tokens, jti)
		b.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func (b *InMemoryTokenBlacklist) AddUserTokensToBlacklist(_ context.Context, userID string, before time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userCutoffs[userID] = before
	return nil
}

func (b *InMemoryTokenBlacklist) IsUserTokenInvalidated(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	cutoff, ok := b.userCutoffs[userID]
	if !ok {
		return false, nil
	}
	return issuedAt.Before(cutoff), nil
}
