package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linkedlist771/magic-image-private/config"
	"github.com/linkedlist771/magic-image-private/internal/metrics"
	"github.com/linkedlist771/magic-image-private/internal/telemetry"
	"github.com/linkedlist771/magic-image-private/storage"
	"github.com/linkedlist771/magic-image-private/transport"
)

// =============================================================================
// 🧩 运行时组装
// =============================================================================

// app 一次命令执行所需的依赖
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *storage.Store
	telemetry *telemetry.Providers
	collector *metrics.Collector
	// transport 为空时按配置创建 HTTP 客户端
	transport transport.Adapter
	out       io.Writer
	errOut    io.Writer
}

// commonFlags 所有子命令共享的参数
type commonFlags struct {
	configPath string
	envFile    string
}

// splitCommonFlags 从任意位置取出 --config / --env-file，其余参数原样交给子命令
func splitCommonFlags(args []string) (commonFlags, []string, error) {
	var (
		c    commonFlags
		rest = make([]string, 0, len(args))
	)
	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(strings.TrimLeft(args[i], "-"), "=")
		if !strings.HasPrefix(args[i], "-") || (name != "config" && name != "env-file") {
			rest = append(rest, args[i])
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return c, nil, fmt.Errorf("flag needs an argument: -%s", name)
			}
			i++
			value = args[i]
		}
		if name == "config" {
			c.configPath = value
		} else {
			c.envFile = value
		}
	}
	return c, rest, nil
}

func loadConfig(flags commonFlags) (*config.Config, error) {
	loader := config.NewLoader().
		WithEnvPrefix("MAGICIMAGE").
		WithValidator(func(c *config.Config) error { return c.Validate() })
	if flags.configPath != "" {
		loader = loader.WithConfigPath(flags.configPath)
	}
	if flags.envFile != "" {
		loader = loader.WithDotEnv(flags.envFile)
	}
	return loader.Load()
}

// newApp 加载配置、打开存储并执行一次地址迁移
func newApp(ctx context.Context, cfg *config.Config, out, errOut io.Writer) (*app, error) {
	logger := initLogger(cfg.Log)

	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		providers = &telemetry.Providers{}
	}

	store := openStore(ctx, cfg.Storage, logger)

	if migrated, err := store.MigrateEndpoint(ctx); err != nil {
		logger.Warn("endpoint migration failed", zap.Error(err))
	} else if migrated {
		logger.Info("stored api endpoint migrated", zap.String("base_url", config.FixedAPIURL))
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		telemetry: providers,
		out:       out,
		errOut:    errOut,
	}
	if cfg.Metrics.Enabled {
		a.collector = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}
	return a, nil
}

// openStore 打开配置的后端；失败时退回进程内存储，本次调用的写入不会保留到下一次
func openStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) *storage.Store {
	store, err := storage.Open(ctx, cfg, logger)
	if err == nil {
		return store
	}
	logger.Warn("storage unavailable, using in-memory store; changes will not persist",
		zap.String("driver", cfg.Driver),
		zap.Error(err),
	)
	return storage.NewStore(storage.NewMemoryKV(),
		storage.WithKeyPrefix(cfg.KeyPrefix),
		storage.WithLogger(logger),
	)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
