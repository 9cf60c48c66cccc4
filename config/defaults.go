// =============================================================================
// 📦 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		API:        DefaultAPIConfig(),
		Generation: DefaultGenerationConfig(),
		Storage:    DefaultStorageConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
		Metrics:    DefaultMetricsConfig(),
	}
}

// DefaultAPIConfig 返回默认 API 配置
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BaseURL:        FixedAPIURL,
		Timeout:        5 * time.Minute,
		RateLimitRPS:   0,
		RateLimitBurst: 1,
	}
}

// DefaultGenerationConfig 返回默认生成配置
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		DefaultModel:       "gemini-2.5-flash-imagen",
		SupportedVariants:  []string{"openai"},
		DefaultSize:        "1024x1024",
		DefaultQuality:     "auto",
		DefaultAspectRatio: "1:1",
		DefaultCount:       1,
	}
}

// DefaultStorageConfig 返回默认存储配置，SQLite 文件放在用户配置目录
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:          "sqlite",
		DSN:             defaultSQLitePath(),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 4,
		},
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "warn",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "magic-image",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "magicimage",
	}
}

func defaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "magic-image.db"
	}
	return filepath.Join(dir, "magic-image", "store.db")
}
