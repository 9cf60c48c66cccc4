package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/linkedlist771/magic-image-private/config"
	"github.com/linkedlist771/magic-image-private/internal/cache"
	"github.com/linkedlist771/magic-image-private/internal/database"
)

// Open 按配置构建后端并返回 Store，调用方负责 Close
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	kv, err := openKV(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("storage opened", zap.String("driver", cfg.Driver))
	return NewStore(kv, WithKeyPrefix(cfg.KeyPrefix), WithLogger(logger)), nil
}

func openKV(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (KV, error) {
	switch cfg.Driver {
	case "sqlite", "postgres", "mysql":
		pool, err := database.Open(cfg.Driver, cfg.DSN, database.PoolConfig{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
			ConnMaxIdleTime: 10 * time.Minute,
		}, logger)
		if err != nil {
			return nil, err
		}
		kv, err := NewSQLKV(ctx, pool)
		if err != nil {
			_ = pool.Close()
			return nil, err
		}
		return kv, nil

	case "redis":
		manager, err := cache.NewManager(cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			TLS:      cfg.Redis.TLS,
		}, logger)
		if err != nil {
			return nil, err
		}
		return NewRedisKV(manager), nil

	case "memory":
		return NewMemoryKV(), nil

	case "none", "":
		return NopKV{}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
