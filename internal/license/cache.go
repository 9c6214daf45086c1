package license

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Cache хранит последние ответы сервера лицензий, чтобы не ходить к нему
// на каждый запрос.
type Cache interface {
	Get(ctx context.Context, key string) (Result, bool)
	Set(ctx context.Context, key string, res Result, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

type memoryEntry struct {
	res       Result
	expiresAt time.Time
}

type MemoryCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{now: time.Now, entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return Result{}, false
	}
	return e.res, true
}

func (c *MemoryCache) Set(_ context.Context, key string, res Result, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{res: res, expiresAt: c.now().Add(ttl)}
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// RedisCache разделяет кэш между экземплярами сервиса.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix + "license:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (Result, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		// redis.Nil: промах, остальное тоже считаем промахом
		return Result{}, false
	}
	var res Result
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return Result{}, false
	}
	return res, true
}

func (c *RedisCache) Set(ctx context.Context, key string, res Result, ttl time.Duration) {
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.prefix+key, data, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	_ = c.client.Del(ctx, c.prefix+key).Err()
}

// Ping проверяет соединение с Redis при старте.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
