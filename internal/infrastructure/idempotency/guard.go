// Package idempotency provides a once-only guard for redelivered work:
// carrier webhooks and queue jobs may arrive more than once, and the first
// caller to claim a key wins.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard claims idempotency keys. First returns true exactly once per key
// within the retention window.
type Guard interface {
	First(ctx context.Context, key string) (bool, error)
}

// RedisGuard claims keys with SETNX and a TTL. Losing the SETNX race means
// the work was already taken.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) First(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, "idem:"+key, 1, g.ttl).Result()
}

// MemoryGuard is the in-process equivalent for tests and single-node runs
type MemoryGuard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{seen: make(map[string]struct{})}
}

func (g *MemoryGuard) First(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = struct{}{}
	return true, nil
}
