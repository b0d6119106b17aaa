package cache

import (
	"LinkCut-Backend/internal/config"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Key layout shared with the rest of the system.
const (
	linkKeyPrefix  = "link:"
	statsKeyPrefix = "stats:"
)

// RedisCache реализует LinkCache поверх Redis.
type RedisCache struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedis подключается к Redis по URL из конфигурации.
func NewRedis(cfg *config.Redis, log *zap.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.DB

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("redis connection established", zap.Int("db", cfg.DB))
	return &RedisCache{client: client, log: log}, nil
}

func (c *RedisCache) GetURL(ctx context.Context, code string) (string, error) {
	val, err := c.client.Get(ctx, linkKeyPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("cache get failed: %w", err)
	}
	return val, nil
}

func (c *RedisCache) SetURL(ctx context.Context, code, originalURL string, ttl time.Duration) error {
	if ttl <= 0 {
		// Уже просроченная ссылка в кэш не попадает.
		return nil
	}
	if err := c.client.Set(ctx, linkKeyPrefix+code, originalURL, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

func (c *RedisCache) GetStats(ctx context.Context, code string) ([]byte, error) {
	val, err := c.client.Get(ctx, statsKeyPrefix+code).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get failed: %w", err)
	}
	return val, nil
}

func (c *RedisCache) SetStats(ctx context.Context, code string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, statsKeyPrefix+code, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, code string) error {
	if err := c.client.Del(ctx, linkKeyPrefix+code, statsKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("cache invalidate failed: %w", err)
	}
	return nil
}

func (c *RedisCache) InvalidateStats(ctx context.Context, code string) error {
	if err := c.client.Del(ctx, statsKeyPrefix+code).Err(); err != nil {
		return fmt.Errorf("cache invalidate failed: %w", err)
	}
	return nil
}

// Close закрывает подключение к Redis.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
