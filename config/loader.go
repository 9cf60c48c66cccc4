// =============================================================================
// 📦 Magic Image 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + .env 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithDotEnv(".env").
//	    WithEnvPrefix("MAGICIMAGE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量（.env 只补充未设置的变量）
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FixedAPIURL 部署固定的 API 地址，用户无法修改
const FixedAPIURL = "https://newapi.585dg.com"

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是完整配置结构
type Config struct {
	// API 服务端配置
	API APIConfig `yaml:"api" env:"API"`

	// Generation 生成默认值与变体策略
	Generation GenerationConfig `yaml:"generation" env:"GENERATION"`

	// Storage 持久化存储配置
	Storage StorageConfig `yaml:"storage" env:"STORAGE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// APIConfig API 配置
type APIConfig struct {
	// 基础地址（部署固定，加载后总是被重置为 FixedAPIURL）
	BaseURL string `yaml:"base_url" env:"-"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 每秒请求数上限，0 表示不限制
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 突发请求数
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// GenerationConfig 生成配置
type GenerationConfig struct {
	// 没有上次选择记录时使用的模型
	DefaultModel string `yaml:"default_model" env:"DEFAULT_MODEL"`
	// 当前部署支持的协议变体，第一个为默认变体
	SupportedVariants []string `yaml:"supported_variants" env:"SUPPORTED_VARIANTS"`
	// 默认尺寸
	DefaultSize string `yaml:"default_size" env:"DEFAULT_SIZE"`
	// 默认质量
	DefaultQuality string `yaml:"default_quality" env:"DEFAULT_QUALITY"`
	// 默认比例
	DefaultAspectRatio string `yaml:"default_aspect_ratio" env:"DEFAULT_ASPECT_RATIO"`
	// 默认张数
	DefaultCount int `yaml:"default_count" env:"DEFAULT_COUNT"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	// 驱动类型: sqlite, postgres, mysql, redis, memory, none
	Driver string `yaml:"driver" env:"DRIVER"`
	// SQLite 文件路径或 postgres/mysql DSN
	DSN string `yaml:"dsn" env:"DSN"`
	// 键前缀（多个配置共用同一后端时区分）
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	// Redis 配置（driver=redis 时使用）
	Redis RedisConfig `yaml:"redis" env:"REDIS"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 启用 TLS
	TLS bool `yaml:"tls" env:"TLS"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	dotEnvPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "MAGICIMAGE",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithDotEnv 设置 .env 文件路径，文件中的变量不会覆盖已存在的环境变量
func (l *Loader) WithDotEnv(path string) *Loader {
	l.dotEnvPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. .env 文件
	if l.dotEnvPath != "" {
		if err := l.loadDotEnv(); err != nil {
			return nil, fmt.Errorf("failed to load dotenv file: %w", err)
		}
	}

	// 4. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 5. API 地址固定
	cfg.API.BaseURL = FixedAPIURL

	// 6. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadDotEnv 加载 .env，文件不存在时忽略
func (l *Loader) loadDotEnv() error {
	if _, err := os.Stat(l.dotEnvPath); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(l.dotEnvPath)
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if !strings.HasPrefix(c.API.BaseURL, "https://") {
		errs = append(errs, "api base_url must use https")
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, "api timeout must be positive")
	}
	if c.API.RateLimitRPS < 0 {
		errs = append(errs, "api rate_limit_rps must not be negative")
	}
	if len(c.Generation.SupportedVariants) == 0 {
		errs = append(errs, "generation supported_variants must not be empty")
	}
	if c.Generation.DefaultCount < 1 || c.Generation.DefaultCount > 4 {
		errs = append(errs, "generation default_count must be between 1 and 4")
	}

	switch c.Storage.Driver {
	case "sqlite", "postgres", "mysql":
		if c.Storage.DSN == "" {
			errs = append(errs, "storage dsn is required for sql drivers")
		}
	case "redis":
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, "storage redis addr is required")
		}
	case "memory", "none":
	default:
		errs = append(errs, fmt.Sprintf("unknown storage driver %q", c.Storage.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
