package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chhs/grades-backend/internal/config"
)

// ErrSessionNotFound is returned when a session ID is not registered (ended or expired).
var ErrSessionNotFound = errors.New("session not found")

// SessionRegistry tracks live session IDs in Redis. A session exists from
// Register until Remove or TTL expiry.
type SessionRegistry struct {
	rdb *redis.Client
}

// NewSessionRegistry creates a new SessionRegistry.
func NewSessionRegistry(rdb *redis.Client) *SessionRegistry {
	return &SessionRegistry{rdb: rdb}
}

// Register records a session ID for the holder (email or student name).
func (r *SessionRegistry) Register(ctx context.Context, jti, holder string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, config.CacheKey.SessionKey(jti), holder, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Exists returns nil when the session is live.
func (r *SessionRegistry) Exists(ctx context.Context, jti string) error {
	n, err := r.rdb.Exists(ctx, config.CacheKey.SessionKey(jti)).Result()
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Remove ends a session.
func (r *SessionRegistry) Remove(ctx context.Context, jti string) error {
	return r.rdb.Del(ctx, config.CacheKey.SessionKey(jti)).Err()
}
