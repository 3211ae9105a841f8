package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrMiss = errors.New("cache miss")

// KV Web 会话存储接口（Redis 实现 + 内存回退）
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisKV struct {
	c *redis.Client
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.c.Del(ctx, key).Err()
}

// MemoryKV 内存实现，Redis 未启用时使用（单机部署足够）
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value    string
	expireAt time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string]memoryItem)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return "", ErrMiss
	}
	if !item.expireAt.IsZero() && time.Now().After(item.expireAt) {
		m.mu.Lock()
		delete(m.items, key)
		m.mu.Unlock()
		return "", ErrMiss
	}
	return item.value, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	var expireAt time.Time
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key] = memoryItem{value: value, expireAt: expireAt}
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}
