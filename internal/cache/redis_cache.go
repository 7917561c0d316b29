package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// scan每批处理的键数量
const scanBatchSize = 100

// RedisCache 基于Redis实现的缓存
// 所有键都带有配置的前缀，多个服务可以共用同一个数据库
type RedisCache struct {
	client     *redis.Client
	ctx        context.Context
	prefix     string
	defaultTTL time.Duration
}

// NewRedisCache 创建一个新的Redis缓存
func NewRedisCache(config Config) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	// 测试连接
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", config.RedisAddr, err)
	}

	return &RedisCache{
		client:     client,
		ctx:        ctx,
		prefix:     config.KeyPrefix,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// Get 获取缓存内容
func (r *RedisCache) Get(key string) (string, bool, error) {
	value, err := r.client.Get(r.ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}

	return value, true, nil
}

// Set 设置缓存内容
func (r *RedisCache) Set(key string, value string, ttl time.Duration) error {
	switch {
	case ttl == 0:
		ttl = r.defaultTTL
	case ttl < 0:
		// Redis中过期时间为0表示不过期
		ttl = 0
	}
	return r.client.Set(r.ctx, r.prefix+key, value, ttl).Err()
}

// Delete 删除缓存项
func (r *RedisCache) Delete(key string) error {
	return r.client.Del(r.ctx, r.prefix+key).Err()
}

// Clear 删除所有带前缀的键
// 未配置前缀时清空整个数据库
func (r *RedisCache) Clear() error {
	if r.prefix == "" {
		return r.client.FlushDB(r.ctx).Err()
	}

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(r.ctx, cursor, r.prefix+"*", scanBatchSize).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(r.ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close 关闭Redis连接
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// 在包初始化时注册Redis缓存
func init() {
	RegisterCache(TypeRedis, NewRedisCache)
}
