package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/watchearn/watchearn/internal/reward"
)

const limitKeyPrefix = "adlimit:"

// LimitCache keeps short-lived limit snapshots in Redis so the limit RPC
// does not hit PostgreSQL on every poll. The database stays the sole
// writer: entries are invalidated on every settled claim and expire fast.
type LimitCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewLimitCache(rdb redis.Cmdable, ttl time.Duration) *LimitCache {
	return &LimitCache{rdb: rdb, ttl: ttl}
}

func limitKey(userID uuid.UUID) string {
	return limitKeyPrefix + userID.String()
}

// Get returns the cached limit and whether it was present.
func (c *LimitCache) Get(ctx context.Context, userID uuid.UUID) (reward.Limit, bool, error) {
	val, err := c.rdb.Get(ctx, limitKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return reward.Limit{}, false, nil
		}
		return reward.Limit{}, false, fmt.Errorf("getting cached limit: %w", err)
	}

	var l reward.Limit
	if err := json.Unmarshal([]byte(val), &l); err != nil {
		// Malformed entry: treat as a miss, it will be overwritten.
		return reward.Limit{}, false, nil
	}
	return l, true, nil
}

func (c *LimitCache) Set(ctx context.Context, userID uuid.UUID, l reward.Limit) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshaling limit: %w", err)
	}
	if err := c.rdb.Set(ctx, limitKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching limit: %w", err)
	}
	return nil
}

func (c *LimitCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if err := c.rdb.Del(ctx, limitKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidating cached limit: %w", err)
	}
	return nil
}
