package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"wxt-client-go/internal/config"
	"wxt-client-go/internal/tracing"
)

// RedisStorage 把会话快照存到 Redis，适合同一账号在多台机器间续测
type RedisStorage struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStorage 建立 Redis 连接并挂上 OpenTelemetry 钩子。
// key 应当带上租户/用户前缀，ttl 为 0 表示快照不过期。
func NewRedisStorage(cfg *config.RedisConfig, key string, ttl time.Duration) (*RedisStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis 配置不能为空")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis 地址不能为空")
	}
	if key == "" {
		return nil, fmt.Errorf("会话键不能为空")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}

	cli := redis.NewClient(opt)
	if err := redisotel.InstrumentTracing(cli); err != nil {
		return nil, fmt.Errorf("挂载 Redis OpenTelemetry 钩子失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis %s 失败: %w", cfg.Address, err)
	}

	return &RedisStorage{client: cli, key: key, ttl: ttl}, nil
}

func (r *RedisStorage) Load(ctx context.Context) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, r.failf(ctx, "读取会话快照失败", err)
	}
	return val, nil
}

func (r *RedisStorage) Save(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return r.failf(ctx, "写入会话快照失败", err)
	}
	return nil
}

func (r *RedisStorage) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return r.failf(ctx, "删除会话快照失败", err)
	}
	return nil
}

// failf 包装错误并把失败记到当前 span，键名截断后再上报
func (r *RedisStorage) failf(ctx context.Context, msg string, err error) error {
	wrapped := fmt.Errorf("%s: %w", msg, err)
	tracing.RecordErrorWithInfo(trace.SpanFromContext(ctx), wrapped, tracing.ErrorTypeRedis,
		attribute.String("redis.key", tracing.SafeRedisKey(r.key)))
	return wrapped
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
