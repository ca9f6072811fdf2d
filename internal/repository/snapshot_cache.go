package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chhs/grades-backend/internal/config"
)

// ErrCacheMiss is returned when no cached rows exist for a worksheet.
var ErrCacheMiss = errors.New("snapshot cache miss")

// SnapshotCache keeps the raw rows of recently read worksheets in Redis so
// dashboard reads do not hit the spreadsheet API on every request.
type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshotCache creates a new SnapshotCache. A ttl of zero disables caching.
func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached rows of worksheet, or ErrCacheMiss.
func (c *SnapshotCache) Get(ctx context.Context, worksheet string) ([][]string, error) {
	if c.ttl <= 0 {
		return nil, ErrCacheMiss
	}
	raw, err := c.rdb.Get(ctx, config.CacheKey.SheetRowsKey(worksheet)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get cached rows: %w", err)
	}
	var rows [][]string
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode cached rows: %w", err)
	}
	return rows, nil
}

// Put stores rows for worksheet with the configured TTL.
func (c *SnapshotCache) Put(ctx context.Context, worksheet string, rows [][]string) error {
	if c.ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	return c.rdb.Set(ctx, config.CacheKey.SheetRowsKey(worksheet), raw, c.ttl).Err()
}

// Invalidate drops the cached rows of the given worksheets.
func (c *SnapshotCache) Invalidate(ctx context.Context, worksheets ...string) error {
	keys := make([]string, len(worksheets))
	for i, w := range worksheets {
		keys[i] = config.CacheKey.SheetRowsKey(w)
	}
	return c.rdb.Del(ctx, keys...).Err()
}
