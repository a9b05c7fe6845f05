// Package cache provides an optional Redis-backed answer cache.
// This package is internal and should not be imported by external projects.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config 答案缓存配置
type Config struct {
	// 是否启用
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 过期时间
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// DefaultConfig 返回默认缓存配置(默认关闭).
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		Addr:    "localhost:6379",
		TTL:     15 * time.Minute,
	}
}

// AnswerCache 按 (collection, question) 缓存最终答案.
// 缓存故障只记录日志, 不影响管线.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New 创建答案缓存.
func New(cfg Config, logger *zap.Logger) *AnswerCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &AnswerCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "answer_cache")),
	}
}

// Key 生成缓存键.
func Key(collection, question string) string {
	sum := sha256.Sum256([]byte(collection + "\x00" + question))
	return "sigrag:answer:" + hex.EncodeToString(sum[:])
}

// Get 读取缓存答案.
func (c *AnswerCache) Get(ctx context.Context, collection, question string) (string, bool) {
	val, err := c.client.Get(ctx, Key(collection, question)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Warn("answer cache get failed", zap.Error(err))
		return "", false
	}
	return val, true
}

// Set 写入缓存答案.
func (c *AnswerCache) Set(ctx context.Context, collection, question, answer string) {
	if err := c.client.Set(ctx, Key(collection, question), answer, c.ttl).Err(); err != nil {
		c.logger.Warn("answer cache set failed", zap.Error(err))
	}
}

// Close 关闭底层连接.
func (c *AnswerCache) Close() error {
	return c.client.Close()
}
