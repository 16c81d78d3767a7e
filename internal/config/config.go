package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"wxt-client-go/internal/logger"
)

// ServerConfig 远端测评服务配置
type ServerConfig struct {
	BaseURL string `yaml:"base_url"` // 例如 https://wenxintai.example.com
	// 普通请求超时(秒)，不作用于 SSE 长连接
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// RequestTimeout 普通 HTTP 请求超时
func (c *ServerConfig) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// SessionConfig 本地会话持久化配置
type SessionConfig struct {
	Backend  string `yaml:"backend"`   // file 或 redis
	FilePath string `yaml:"file_path"` // file 后端的存储路径
	// redis 后端的键前缀，例如 "wxt:test-session:"
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
	// redis 后端的过期时间(小时)，0 表示不过期
	TTLHours int `yaml:"ttl_hours"`
}

// TTL 会话记录过期时间
func (c *SessionConfig) TTL() time.Duration {
	if c.TTLHours <= 0 {
		return 0
	}
	return time.Duration(c.TTLHours) * time.Hour
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
}

// PaymentConfig 支付状态轮询配置
type PaymentConfig struct {
	// 首次轮询间隔(毫秒)
	PollInitialIntervalMS int `yaml:"poll_initial_interval_ms"`
	// 指数退避的间隔上限(毫秒)
	PollMaxIntervalMS int `yaml:"poll_max_interval_ms"`
	// 轮询次数上限，超过后放弃并提示用户
	PollMaxAttempts int `yaml:"poll_max_attempts"`
}

// PollInitialInterval 首次轮询间隔
func (c *PaymentConfig) PollInitialInterval() time.Duration {
	if c.PollInitialIntervalMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.PollInitialIntervalMS) * time.Millisecond
}

// PollMaxInterval 轮询间隔上限
func (c *PaymentConfig) PollMaxInterval() time.Duration {
	if c.PollMaxIntervalMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.PollMaxIntervalMS) * time.Millisecond
}

// MaxAttempts 轮询次数上限
func (c *PaymentConfig) MaxAttempts() int {
	if c.PollMaxAttempts <= 0 {
		return 30
	}
	return c.PollMaxAttempts
}

// TracingConfig OpenTelemetry 上报配置
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	// OTLP gRPC 端点，例如 localhost:4317
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
	ServiceName string  `yaml:"service_name"`
}

// CatalogConfig 目录数据(爱好/产品)缓存配置
type CatalogConfig struct {
	CacheExpireMinutes  int `yaml:"cache_expire_minutes"`
	CacheCleanupMinutes int `yaml:"cache_cleanup_minutes"`
}

// CacheExpire 缓存有效期
func (c *CatalogConfig) CacheExpire() time.Duration {
	if c.CacheExpireMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.CacheExpireMinutes) * time.Minute
}

// CacheCleanup 缓存清理周期
func (c *CatalogConfig) CacheCleanup() time.Duration {
	if c.CacheCleanupMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.CacheCleanupMinutes) * time.Minute
}

// Config 客户端配置
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
	Redis   RedisConfig   `yaml:"redis"`
	Payment PaymentConfig `yaml:"payment"`
	Tracing TracingConfig `yaml:"tracing"`
	Catalog CatalogConfig `yaml:"catalog"`
	Logger  logger.Config `yaml:"logger"`
}

// createDefaultConfig 生成默认配置（找不到配置文件时的兜底）
func createDefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			BaseURL:               "http://localhost:8080",
			RequestTimeoutSeconds: 15,
		},
		Session: SessionConfig{
			Backend:        "file",
			FilePath:       filepath.Join(home, ".wxt-cli", "test-session.json"),
			RedisKeyPrefix: "wxt:test-session:",
		},
		Logger: logger.Config{
			Level:  "info",
			Format: "pretty",
		},
		Tracing: TracingConfig{
			ServiceName: "wxt-client-go",
		},
	}
}

// LoadConfig 加载配置文件；configPath 为空时在常见位置查找，找不到则返回默认配置
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		searchPaths := []string{
			"config.yaml",
			"./config.yaml",
		}
		if home, err := os.UserHomeDir(); err == nil {
			searchPaths = append(searchPaths, filepath.Join(home, ".wxt-cli", "config.yaml"))
		}
		if execPath, err := os.Executable(); err == nil {
			searchPaths = append(searchPaths, filepath.Join(filepath.Dir(execPath), "config.yaml"))
		}

		for _, path := range searchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}

		if configPath == "" {
			return createDefaultConfig(), nil
		}
	}

	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 从环境变量覆盖配置（如果存在）
	if envURL := os.Getenv("WXT_SERVER_BASE_URL"); envURL != "" {
		config.Server.BaseURL = envURL
	}
	if envPwd := os.Getenv("WXT_REDIS_PASSWORD"); envPwd != "" {
		config.Redis.Password = envPwd
	}

	// 设置默认值
	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(config *Config) {
	def := createDefaultConfig()

	if config.Server.BaseURL == "" {
		config.Server.BaseURL = def.Server.BaseURL
	}
	if config.Session.Backend == "" {
		config.Session.Backend = def.Session.Backend
	}
	if config.Session.FilePath == "" {
		config.Session.FilePath = def.Session.FilePath
	}
	if config.Session.RedisKeyPrefix == "" {
		config.Session.RedisKeyPrefix = def.Session.RedisKeyPrefix
	}
	if config.Logger.Level == "" {
		config.Logger.Level = def.Logger.Level
	}
	if config.Tracing.ServiceName == "" {
		config.Tracing.ServiceName = def.Tracing.ServiceName
	}
}
