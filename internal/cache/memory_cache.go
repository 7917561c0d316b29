package cache

import (
	"fmt"
	"math"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultMemoryTTL       = 24 * time.Hour
	defaultCleanupInterval = 10 * time.Minute
)

// MemoryCache 进程内缓存，保存会话状态和分析结果
// MaxEntries大于0时条目数有上限，写入新键前先淘汰最早过期的条目
type MemoryCache struct {
	store      *gocache.Cache
	maxEntries int

	mu        sync.Mutex // 保护容量检查与写入
	evictions int
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache(config Config) (Cache, error) {
	if config.MaxEntries < 0 {
		return nil, fmt.Errorf("invalid max entries: %d", config.MaxEntries)
	}

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = defaultMemoryTTL
	}
	interval := config.CleanupInterval
	if interval == 0 {
		interval = defaultCleanupInterval
	}

	return &MemoryCache{
		store:      gocache.New(ttl, interval),
		maxEntries: config.MaxEntries,
	}, nil
}

// Get 读取文本条目
func (m *MemoryCache) Get(key string) (string, bool, error) {
	value, found := m.store.Get(key)
	if !found {
		return "", false, nil
	}
	text, ok := value.(string)
	return text, ok, nil
}

// Set 写入文本条目，覆盖已有的键不会触发淘汰
func (m *MemoryCache) Set(key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxEntries > 0 {
		if _, exists := m.store.Get(key); !exists {
			m.makeRoom()
		}
	}
	m.store.Set(key, value, storeExpiration(ttl))
	return nil
}

// storeExpiration 把接口约定的ttl换算为go-cache的过期参数
func storeExpiration(ttl time.Duration) time.Duration {
	switch {
	case ttl == 0:
		return gocache.DefaultExpiration
	case ttl < 0:
		return gocache.NoExpiration
	default:
		return ttl
	}
}

// makeRoom 先清理过期条目，仍然已满时按过期时间从早到晚淘汰
func (m *MemoryCache) makeRoom() {
	if m.store.ItemCount() < m.maxEntries {
		return
	}
	m.store.DeleteExpired()

	items := m.store.Items()
	for len(items) >= m.maxEntries {
		victim := soonestExpiring(items)
		m.store.Delete(victim)
		delete(items, victim)
		m.evictions++
	}
}

// soonestExpiring 返回最早过期的键，永不过期的条目排在最后，过期时间相同时取字典序最小的键
func soonestExpiring(items map[string]gocache.Item) string {
	var (
		victim    string
		victimExp int64
		found     bool
	)
	for key, item := range items {
		exp := item.Expiration
		if exp == 0 {
			exp = math.MaxInt64
		}
		if !found || exp < victimExp || (exp == victimExp && key < victim) {
			victim, victimExp, found = key, exp, true
		}
	}
	return victim
}

// Delete 删除条目
func (m *MemoryCache) Delete(key string) error {
	m.store.Delete(key)
	return nil
}

// Clear 清空所有条目
func (m *MemoryCache) Clear() error {
	m.store.Flush()
	return nil
}

// Close 无需释放资源
func (m *MemoryCache) Close() error {
	return nil
}

// ItemCount 返回条目数，包含已过期但尚未清理的条目
func (m *MemoryCache) ItemCount() int {
	return m.store.ItemCount()
}

// Evictions 返回因容量上限被淘汰的条目数
func (m *MemoryCache) Evictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evictions
}

func init() {
	RegisterCache(TypeMemory, NewMemoryCache)
}
