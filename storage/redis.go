package storage

import (
	"context"

	"github.com/linkedlist771/magic-image-private/internal/cache"
)

// RedisKV 基于 Redis 的键值后端，键不过期
type RedisKV struct {
	manager *cache.Manager
}

// NewRedisKV 包装 Redis 管理器
func NewRedisKV(manager *cache.Manager) *RedisKV {
	return &RedisKV{manager: manager}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.manager.Get(ctx, key)
	if cache.IsCacheMiss(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.manager.Set(ctx, key, value, 0)
}

func (r *RedisKV) Remove(ctx context.Context, key string) error {
	return r.manager.Delete(ctx, key)
}

func (r *RedisKV) Available() bool { return true }

// Close 关闭 Redis 连接
func (r *RedisKV) Close() error {
	return r.manager.Close()
}
