package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	projectdomain "github.com/brikx/coach/internal/project/domain"
	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRateTTL = 10 * time.Minute
	rateKeyFormat  = "coach:rates:%s"
)

// RateCache stores resolved project rate tables.
type RateCache interface {
	Get(ctx context.Context, projectID snowflake.ID) (projectdomain.RateTable, bool)
	Set(ctx context.Context, table projectdomain.RateTable)
	Invalidate(ctx context.Context, projectID snowflake.ID)
}

// NewRateCache picks the redis backend when a client is configured.
func NewRateCache(client *redis.Client, log *zap.Logger) RateCache {
	if client != nil {
		return NewRedisRateCache(client, log, defaultRateTTL)
	}
	return NewMemoryRateCache(defaultRateTTL)
}

type memoryRateCache struct {
	tables Cache[snowflake.ID, projectdomain.RateTable]
	ttl    time.Duration
}

func NewMemoryRateCache(ttl time.Duration) RateCache {
	return &memoryRateCache{
		tables: NewTTLCache[snowflake.ID, projectdomain.RateTable](),
		ttl:    ttl,
	}
}

func (c *memoryRateCache) Get(_ context.Context, projectID snowflake.ID) (projectdomain.RateTable, bool) {
	return c.tables.Get(projectID)
}

func (c *memoryRateCache) Set(_ context.Context, table projectdomain.RateTable) {
	if table.ProjectID == 0 {
		return
	}
	c.tables.Set(table.ProjectID, table, c.ttl)
}

func (c *memoryRateCache) Invalidate(_ context.Context, projectID snowflake.ID) {
	c.tables.Delete(projectID)
}

type redisRateCache struct {
	client *redis.Client
	log    *zap.Logger
	ttl    time.Duration
}

func NewRedisRateCache(client *redis.Client, log *zap.Logger, ttl time.Duration) RateCache {
	return &redisRateCache{
		client: client,
		log:    log.Named("cache.rates"),
		ttl:    ttl,
	}
}

// Get treats every redis failure as a miss.
func (c *redisRateCache) Get(ctx context.Context, projectID snowflake.ID) (projectdomain.RateTable, bool) {
	raw, err := c.client.Get(ctx, rateKey(projectID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("rate cache read failed", zap.String("project_id", projectID.String()), zap.Error(err))
		}
		return projectdomain.RateTable{}, false
	}

	var table projectdomain.RateTable
	if err := json.Unmarshal(raw, &table); err != nil {
		c.log.Warn("rate cache decode failed", zap.String("project_id", projectID.String()), zap.Error(err))
		return projectdomain.RateTable{}, false
	}
	return table, true
}

func (c *redisRateCache) Set(ctx context.Context, table projectdomain.RateTable) {
	if table.ProjectID == 0 {
		return
	}
	raw, err := json.Marshal(table)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, rateKey(table.ProjectID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("rate cache write failed", zap.String("project_id", table.ProjectID.String()), zap.Error(err))
	}
}

func (c *redisRateCache) Invalidate(ctx context.Context, projectID snowflake.ID) {
	if err := c.client.Del(ctx, rateKey(projectID)).Err(); err != nil {
		c.log.Warn("rate cache invalidate failed", zap.String("project_id", projectID.String()), zap.Error(err))
	}
}

func rateKey(projectID snowflake.ID) string {
	return fmt.Sprintf(rateKeyFormat, projectID.String())
}
