package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/next-assistant/internal/model"
)

// Redis key 前缀
const cacheKeyPrefix = "tenant:config:"

// Cache 租户配置缓存
type Cache interface {
	// Get 命中时返回 (tenant, true, nil)
	Get(ctx context.Context, tenantID string) (*model.Tenant, bool, error)
	Set(ctx context.Context, tenant *model.Tenant) error
	Delete(ctx context.Context, tenantID string) error
}

// RedisCache 基于 Redis 的租户配置缓存，值为 JSON
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache 创建 Redis 缓存
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(tenantID string) string {
	return cacheKeyPrefix + tenantID
}

func (c *RedisCache) Get(ctx context.Context, tenantID string) (*model.Tenant, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(tenantID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get tenant cache: %w", err)
	}

	var t model.Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false, fmt.Errorf("failed to decode tenant cache: %w", err)
	}
	return &t, true, nil
}

func (c *RedisCache) Set(ctx context.Context, tenant *model.Tenant) error {
	data, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("failed to encode tenant cache: %w", err)
	}
	return c.client.Set(ctx, cacheKey(tenant.ID), data, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, tenantID string) error {
	return c.client.Del(ctx, cacheKey(tenantID)).Err()
}

// NopCache 不缓存
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*model.Tenant, bool, error) { return nil, false, nil }
func (NopCache) Set(context.Context, *model.Tenant) error                 { return nil }
func (NopCache) Delete(context.Context, string) error                     { return nil }
