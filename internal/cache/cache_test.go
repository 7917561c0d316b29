package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryCache 测试内存缓存的基本功能
func TestMemoryCache(t *testing.T) {
	config := Config{
		Type:            TypeMemory,
		DefaultTTL:      time.Second * 2,
		CleanupInterval: time.Second,
	}
	cache, err := NewMemoryCache(config)
	require.NoError(t, err)
	require.NotNil(t, cache)

	// 测试Set和Get
	require.NoError(t, cache.Set("key1", "value1", 0))

	val, found, err := cache.Get("key1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value1", val)

	// 测试不存在的键
	val, found, err = cache.Get("non-existent")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 测试过期
	require.NoError(t, cache.Set("expire-soon", "temp-value", time.Millisecond*200))
	require.NoError(t, cache.Set("forever", "kept", NoExpiration))

	time.Sleep(time.Millisecond * 500)

	_, found, _ = cache.Get("expire-soon")
	assert.False(t, found)
	val, found, _ = cache.Get("forever")
	assert.True(t, found)
	assert.Equal(t, "kept", val)

	// 测试删除
	require.NoError(t, cache.Set("to-delete", "delete-me", 0))
	require.NoError(t, cache.Delete("to-delete"))
	_, found, _ = cache.Get("to-delete")
	assert.False(t, found)

	// 测试清空
	require.NoError(t, cache.Set("key2", "value2", 0))
	require.NoError(t, cache.Clear())
	_, found, _ = cache.Get("key2")
	assert.False(t, found)
	assert.Equal(t, 0, cache.(*MemoryCache).ItemCount())

	assert.NoError(t, cache.Close())
}

// TestMemoryCacheMaxEntries 测试条目上限与淘汰顺序
func TestMemoryCacheMaxEntries(t *testing.T) {
	c, err := NewMemoryCache(Config{DefaultTTL: time.Hour, MaxEntries: 2})
	require.NoError(t, err)
	mem := c.(*MemoryCache)

	require.NoError(t, c.Set("analysis:a", "report a", time.Hour))
	require.NoError(t, c.Set("session:b", "state b", NoExpiration))

	// 覆盖已有的键不淘汰
	require.NoError(t, c.Set("analysis:a", "report a2", 2*time.Hour))
	assert.Equal(t, 0, mem.Evictions())

	// 已满时淘汰最早过期的条目，永不过期的条目最后淘汰
	require.NoError(t, c.Set("analysis:c", "report c", time.Minute))
	assert.Equal(t, 1, mem.Evictions())
	assert.Equal(t, 2, mem.ItemCount())

	_, found, _ := c.Get("analysis:a")
	assert.False(t, found)
	val, found, _ := c.Get("session:b")
	assert.True(t, found)
	assert.Equal(t, "state b", val)

	require.NoError(t, c.Set("analysis:d", "report d", time.Hour))
	_, found, _ = c.Get("analysis:c")
	assert.False(t, found)
	_, found, _ = c.Get("analysis:d")
	assert.True(t, found)
	assert.Equal(t, 2, mem.Evictions())
}

// TestMemoryCacheMaxEntriesPrefersExpired 测试已满时先清理过期条目
func TestMemoryCacheMaxEntriesPrefersExpired(t *testing.T) {
	c, err := NewMemoryCache(Config{DefaultTTL: time.Hour, MaxEntries: 2})
	require.NoError(t, err)

	require.NoError(t, c.Set("short", "gone", 50*time.Millisecond))
	require.NoError(t, c.Set("long", "kept", time.Hour))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, c.Set("new", "value", time.Hour))
	assert.Equal(t, 0, c.(*MemoryCache).Evictions())
	_, found, _ := c.Get("long")
	assert.True(t, found)
	_, found, _ = c.Get("new")
	assert.True(t, found)
}

// TestMemoryCacheInvalidMaxEntries 测试非法的条目上限
func TestMemoryCacheInvalidMaxEntries(t *testing.T) {
	_, err := NewMemoryCache(Config{MaxEntries: -1})
	assert.Error(t, err)
}

// TestRedisCache 使用miniredis测试Redis缓存
func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	cache, err := NewRedisCache(Config{
		Type:       TypeRedis,
		RedisAddr:  mr.Addr(),
		KeyPrefix:  "test:",
		DefaultTTL: time.Minute,
	})
	require.NoError(t, err)
	defer cache.Close()

	// 测试Set和Get
	require.NoError(t, cache.Set("redis-key1", "redis-value1", 0))
	val, found, err := cache.Get("redis-key1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "redis-value1", val)
	assert.True(t, mr.Exists("test:redis-key1"))
	assert.Equal(t, time.Minute, mr.TTL("test:redis-key1"))

	// 测试不存在的键
	val, found, err = cache.Get("redis-non-existent")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, val)

	// 测试过期
	require.NoError(t, cache.Set("redis-expire-soon", "temp", time.Second))
	require.NoError(t, cache.Set("redis-forever", "kept", NoExpiration))
	mr.FastForward(2 * time.Second)

	_, found, _ = cache.Get("redis-expire-soon")
	assert.False(t, found)
	_, found, _ = cache.Get("redis-forever")
	assert.True(t, found)
	assert.Zero(t, mr.TTL("test:redis-forever"))

	// 测试删除
	require.NoError(t, cache.Set("redis-to-delete", "x", 0))
	require.NoError(t, cache.Delete("redis-to-delete"))
	_, found, _ = cache.Get("redis-to-delete")
	assert.False(t, found)

	// Clear只清理带前缀的键
	require.NoError(t, mr.Set("other:key", "untouched"))
	require.NoError(t, cache.Clear())
	_, found, _ = cache.Get("redis-key1")
	assert.False(t, found)
	assert.True(t, mr.Exists("other:key"))
}

// TestRedisCacheUnavailable Redis不可用时创建失败
func TestRedisCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(Config{Type: TypeRedis, RedisAddr: addr})
	assert.Error(t, err)
}

// TestCacheFactory 测试缓存工厂函数
func TestCacheFactory(t *testing.T) {
	memCache, err := NewCache(DefaultConfig())
	assert.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, memCache)

	mr := miniredis.RunT(t)
	redisCache, err := NewCache(Config{Type: TypeRedis, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisCache{}, redisCache)
	assert.NoError(t, redisCache.Close())

	// 未指定类型时使用内存缓存
	defaultCache, err := NewCache(Config{})
	assert.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, defaultCache)

	_, err = NewCache(Config{Type: "unknown-type"})
	assert.Error(t, err)
}

// TestGenerateCacheKey 测试缓存键生成
func TestGenerateCacheKey(t *testing.T) {
	assert.Equal(t, "prefix", GenerateCacheKey("prefix"))
	assert.Equal(t, "prefix:part1", GenerateCacheKey("prefix", "part1"))
	assert.Equal(t, "prefix:part1:part2:part3", GenerateCacheKey("prefix", "part1", "part2", "part3"))
}

// TestHashKey 测试哈希键
func TestHashKey(t *testing.T) {
	key := HashKey("analysis", "text", "PDF: a.pdf")
	assert.Equal(t, key, HashKey("analysis", "text", "PDF: a.pdf"))
	assert.Len(t, key, len("analysis:")+64)

	assert.NotEqual(t, HashKey("analysis", "ab", "c"), HashKey("analysis", "a", "bc"))
	assert.NotEqual(t, key, HashKey("analysis", "text", "PDF: b.pdf"))
}
