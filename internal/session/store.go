package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fyerfyer/tclass-evaluator/internal/cache"
)

// DefaultTTL 会话空闲过期时间
const DefaultTTL = 24 * time.Hour

const keyPrefix = "session"

// ErrNotFound 会话不存在或已过期
var ErrNotFound = errors.New("session not found")

// Store 基于缓存的会话存储
// 同一会话的操作通过引用计数的互斥锁串行执行
type Store struct {
	cache cache.Cache
	ttl   time.Duration

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore 创建会话存储
func NewStore(c cache.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		cache: c,
		ttl:   ttl,
		locks: make(map[string]*sessionLock),
	}
}

// TTL 会话空闲过期时间
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get 读取会话
func (s *Store) Get(id string) (*Session, error) {
	if !ValidID(id) {
		return nil, ErrNotFound
	}

	data, found, err := s.cache.Get(cache.GenerateCacheKey(keyPrefix, id))
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

// Load 读取会话，不存在时创建一个新会话（尚未保存）
func (s *Store) Load(id string) (*Session, bool, error) {
	sess, err := s.Get(id)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	return New(), true, nil
}

// Save 保存会话并刷新过期时间
func (s *Store) Save(sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.cache.Set(cache.GenerateCacheKey(keyPrefix, sess.ID), string(data), s.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete 删除会话
func (s *Store) Delete(id string) error {
	return s.cache.Delete(cache.GenerateCacheKey(keyPrefix, id))
}

// Lock 获取会话锁，返回释放函数
func (s *Store) Lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

// activeLocks 当前持有或等待中的会话锁数量
func (s *Store) activeLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
