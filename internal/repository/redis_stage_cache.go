package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gymkapp-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure the decorator satisfies the interface.
var _ StageRepository = (*redisStageCache)(nil)

// redisStageCache is a read-through cache in front of a StageRepository.
// Stage sequences are immutable once authored, so a short TTL is only there
// to pick up newly published maps. Any Redis failure falls back to the
// underlying repository; the cache must never turn a working lookup into an
// error.
type redisStageCache struct {
	inner  StageRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStageCache wraps a stage repository with a Redis read-through cache.
func NewRedisStageCache(inner StageRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) StageRepository {
	return &redisStageCache{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisStageCache"),
	}
}

func stageListKey(mapID uuid.UUID) string {
	return fmt.Sprintf("map_stages:%s", mapID)
}

// GetMap is not cached: it is only hit once per StartSession.
func (c *redisStageCache) GetMap(ctx context.Context, mapID uuid.UUID) (*models.GameMap, error) {
	return c.inner.GetMap(ctx, mapID)
}

func (c *redisStageCache) ListStages(ctx context.Context, mapID uuid.UUID) ([]models.Stage, error) {
	key := stageListKey(mapID)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var stages []models.Stage
		if unmarshalErr := json.Unmarshal(payload, &stages); unmarshalErr == nil {
			return stages, nil
		}
		// Corrupt payload: drop it and fall through to the source of truth.
		c.logger.Warn("Dropping unparseable stage cache entry", zap.String("key", key))
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("Stage cache read failed, falling back to database",
			zap.String("key", key), zap.Error(err))
	}

	stages, err := c.inner.ListStages(ctx, mapID)
	if err != nil {
		return nil, err
	}

	if len(stages) > 0 {
		if payload, marshalErr := json.Marshal(stages); marshalErr == nil {
			if setErr := c.client.Set(ctx, key, payload, c.ttl).Err(); setErr != nil {
				c.logger.Warn("Failed to populate stage cache", zap.String("key", key), zap.Error(setErr))
			}
		}
	}
	return stages, nil
}

func (c *redisStageCache) StageAt(ctx context.Context, mapID uuid.UUID, index int) (*models.Stage, error) {
	stages, err := c.ListStages(ctx, mapID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(stages) {
		return nil, models.ErrStageNotFound
	}
	stage := stages[index]
	return &stage, nil
}

func (c *redisStageCache) StageCount(ctx context.Context, mapID uuid.UUID) (int, error) {
	stages, err := c.ListStages(ctx, mapID)
	if err != nil {
		return 0, err
	}
	return len(stages), nil
}
