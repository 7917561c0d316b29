package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// NoExpiration 永不过期，在进程生命周期内一直有效
const NoExpiration time.Duration = -1

// 缓存类型
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// Cache 缓存接口
// ttl为0时使用配置的默认过期时间，为NoExpiration时永不过期
type Cache interface {
	Get(key string) (value string, found bool, err error)
	Set(key string, value string, ttl time.Duration) error
	Delete(key string) error
	Clear() error
	Close() error
}

// Factory 缓存工厂函数类型
type Factory func(config Config) (Cache, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterCache 注册缓存实现
func RegisterCache(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewCache 创建缓存实例
func NewCache(config Config) (Cache, error) {
	registryMu.RLock()
	factory, ok := registry[config.Type]
	registryMu.RUnlock()

	if ok {
		return factory(config)
	}
	if config.Type != "" {
		return nil, fmt.Errorf("unsupported cache type: %s", config.Type)
	}
	// 未指定类型时使用内存缓存
	return NewMemoryCache(config)
}

// Config 缓存配置
type Config struct {
	// 缓存类型: "memory", "redis"
	Type string
	// Redis连接地址 (仅Redis缓存使用)
	RedisAddr string
	// Redis密码 (仅Redis缓存使用)
	RedisPassword string
	// Redis数据库编号 (仅Redis缓存使用)
	RedisDB int
	// 键前缀，Clear只清理带该前缀的键 (仅Redis缓存使用)
	KeyPrefix string
	// 默认缓存过期时间
	DefaultTTL time.Duration
	// 自动清理间隔时间 (仅内存缓存使用)
	CleanupInterval time.Duration
	// 最大条目数，0表示不限制 (仅内存缓存使用)
	MaxEntries int
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Type:            TypeMemory,
		KeyPrefix:       "tclass:",
		DefaultTTL:      time.Hour * 24,
		CleanupInterval: time.Minute * 10,
		MaxEntries:      10000,
	}
}

// GenerateCacheKey 生成标准化的缓存键
func GenerateCacheKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ":" + strings.Join(parts, ":")
}

// HashKey 对多个部分计算SHA-256得到缓存键
// 每个部分先写入长度再写入内容，("ab","c")与("a","bc")得到不同的键
func HashKey(prefix string, parts ...string) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, part := range parts {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(part)))
		h.Write(lenBuf[:])
		h.Write([]byte(part))
	}
	return GenerateCacheKey(prefix, hex.EncodeToString(h.Sum(nil)))
}
