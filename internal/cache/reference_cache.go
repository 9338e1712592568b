// Package cache keeps read-mostly reference data in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/repository"
)

const keyPrefix = "tickets:ref"

type referenceCache struct {
	next   repository.ReferenceRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewReferenceCache wraps next with a read-through Redis cache. Cache failures are logged and the
// call falls through to next.
func NewReferenceCache(next repository.ReferenceRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) repository.ReferenceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &referenceCache{next: next, client: client, ttl: ttl, logger: logger.Named("reference_cache")}
}

func itemKey(kind domain.ReferenceKind, id string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, kind, id)
}

func listKey(kind domain.ReferenceKind) string {
	return fmt.Sprintf("%s:%s:all", keyPrefix, kind)
}

func (c *referenceCache) Create(ctx context.Context, ref *domain.Reference) error {
	if err := c.next.Create(ctx, ref); err != nil {
		return err
	}
	if err := c.client.Del(ctx, listKey(ref.Kind)).Err(); err != nil {
		c.logger.Warn("invalidate reference list", zap.String("kind", string(ref.Kind)), zap.Error(err))
	}
	return nil
}

func (c *referenceCache) Get(ctx context.Context, kind domain.ReferenceKind, id string) (*domain.Reference, error) {
	key := itemKey(kind, id)
	var cached domain.Reference
	if c.load(ctx, key, &cached) {
		return &cached, nil
	}

	ref, err := c.next.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, ref)
	return ref, nil
}

func (c *referenceCache) List(ctx context.Context, kind domain.ReferenceKind) ([]domain.Reference, error) {
	key := listKey(kind)
	var cached []domain.Reference
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	refs, err := c.next.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, refs)
	return refs, nil
}

func (c *referenceCache) load(ctx context.Context, key string, dest any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("reference cache read", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn("reference cache decode", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *referenceCache) store(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("reference cache encode", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("reference cache write", zap.String("key", key), zap.Error(err))
	}
}
