package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	appinv "github.com/opsuite/backend/internal/application/inventory"
	"github.com/redis/go-redis/v9"
)

const stockKeyPrefix = "stock:effective:"

// RedisStockCache holds derived effective-stock figures in redis. Entries
// expire on their own; the coordinator also invalidates after mutations.
type RedisStockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStockCache creates a stock cache backed by the given client
func NewRedisStockCache(client *redis.Client, ttl time.Duration) *RedisStockCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisStockCache{client: client, ttl: ttl}
}

// GetEffectiveStock returns the cached figure for a subject
func (c *RedisStockCache) GetEffectiveStock(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	val, err := c.client.Get(ctx, stockKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, appinv.ErrStockNotCached
		}
		return 0, fmt.Errorf("read stock cache: %w", err)
	}

	stock, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// unparseable value, treat as a miss so it gets rewritten
		return 0, appinv.ErrStockNotCached
	}
	return stock, nil
}

// SetEffectiveStock writes the figure for a subject with the cache TTL
func (c *RedisStockCache) SetEffectiveStock(ctx context.Context, subjectID uuid.UUID, quantity int64) error {
	err := c.client.Set(ctx, stockKey(subjectID), strconv.FormatInt(quantity, 10), c.ttl).Err()
	if err != nil {
		return fmt.Errorf("write stock cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached figure for a subject
func (c *RedisStockCache) Invalidate(ctx context.Context, subjectID uuid.UUID) error {
	if err := c.client.Del(ctx, stockKey(subjectID)).Err(); err != nil {
		return fmt.Errorf("invalidate stock cache: %w", err)
	}
	return nil
}

func stockKey(subjectID uuid.UUID) string {
	return stockKeyPrefix + subjectID.String()
}
