package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/request-desk/internal/repository"
)

// StatisticsCache keeps a month of statistic rows in Redis.
type StatisticsCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStatisticsCache builds the cache. A zero ttl keeps entries until they are
// invalidated.
func NewStatisticsCache(client redis.Cmdable, ttl time.Duration) *StatisticsCache {
	return &StatisticsCache{client: client, ttl: ttl}
}

func monthKey(year, month int) string {
	return fmt.Sprintf("stats:month:%04d-%02d", year, month)
}

// GetMonth reports ok=false on a miss.
func (c *StatisticsCache) GetMonth(ctx context.Context, year, month int) ([]repository.AreaStatistic, bool, error) {
	raw, err := c.client.Get(ctx, monthKey(year, month)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rows []repository.AreaStatistic
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false, fmt.Errorf("decode cached statistics: %w", err)
	}
	return rows, true, nil
}

func (c *StatisticsCache) SetMonth(ctx context.Context, year, month int, rows []repository.AreaStatistic) error {
	if rows == nil {
		rows = []repository.AreaStatistic{}
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	return c.client.Set(ctx, monthKey(year, month), raw, c.ttl).Err()
}

func (c *StatisticsCache) InvalidateMonth(ctx context.Context, year, month int) error {
	return c.client.Del(ctx, monthKey(year, month)).Err()
}
