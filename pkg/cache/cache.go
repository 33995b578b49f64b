// Package cache 读缓存抽象：显式返回命中/未命中，过期时间与时钟由调用方注入。
package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"ams-server/pkg/redis"
)

// Store 字节级缓存存储
type Store interface {
	// Get 返回 (值, 是否命中, 错误)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Clock 当前时间来源
type Clock func() time.Time

// ── 内存实现 ──

type entry struct {
	key      string
	value    []byte
	storedAt time.Time
}

// Memory 进程内 LRU 缓存，超过 maxAge 的条目视为未命中
type Memory struct {
	mu         sync.Mutex
	now        Clock
	maxAge     time.Duration
	maxEntries int
	ll         *list.List
	items      map[string]*list.Element
}

// NewMemory 创建内存缓存，maxEntries<=0 表示不限条数
func NewMemory(maxAge time.Duration, maxEntries int, now Clock) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:        now,
		maxAge:     maxAge,
		maxEntries: maxEntries,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*entry)
	if m.now().Sub(e.storedAt) >= m.maxAge {
		m.removeElement(el)
		return nil, false, nil
	}
	m.ll.MoveToFront(el)
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.storedAt = m.now()
		m.ll.MoveToFront(el)
		return nil
	}
	m.items[key] = m.ll.PushFront(&entry{key: key, value: value, storedAt: m.now()})
	if m.maxEntries > 0 && m.ll.Len() > m.maxEntries {
		m.removeElement(m.ll.Back())
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		if el, ok := m.items[k]; ok {
			m.removeElement(el)
		}
	}
	return nil
}

// Len 当前条目数（含已过期但尚未淘汰的）
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

func (m *Memory) removeElement(el *list.Element) {
	m.ll.Remove(el)
	delete(m.items, el.Value.(*entry).key)
}

// ── Redis 实现 ──

// Redis 基于 Redis 的缓存，过期由 Redis TTL 负责
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis 创建 Redis 缓存
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return r.client.GetBytes(ctx, key)
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.SetBytes(ctx, key, value, r.ttl)
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	return r.client.Delete(ctx, keys...)
}

// ── 类型化读写 ──

// GetJSON 读取并反序列化，反序列化失败按未命中处理
func GetJSON[V any](ctx context.Context, s Store, key string) (V, bool, error) {
	var v V
	b, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return v, false, nil
	}
	return v, true, nil
}

// SetJSON 序列化后写入
func SetJSON[V any](ctx context.Context, s Store, key string, v V) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, b)
}
