package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupGuard provides at-most-one semantics for unique job keys across
// processes. It backs deployments whose job storage cannot enforce key
// uniqueness on its own.
type DedupGuard interface {
	// Acquire attempts to claim the key for the given TTL. It returns false
	// when the key is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees the key before its TTL expires. Safe to call for keys
	// that were never acquired.
	Release(ctx context.Context, key string) error
}

// RedisDedupGuard implements DedupGuard on Redis SET NX with expiry.
type RedisDedupGuard struct {
	client *redis.Client
	prefix string
}

// NewRedisDedupGuard creates a Redis-backed guard. The prefix namespaces
// guard keys so they do not collide with other users of the same Redis.
func NewRedisDedupGuard(client *redis.Client, prefix string) *RedisDedupGuard {
	if prefix == "" {
		prefix = "jobs:unique:"
	}
	return &RedisDedupGuard{client: client, prefix: prefix}
}

func (g *RedisDedupGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return g.client.SetNX(ctx, g.prefix+key, 1, ttl).Result()
}

func (g *RedisDedupGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.prefix+key).Err()
}

// MemoryDedupGuard is an in-process DedupGuard for development and testing.
type MemoryDedupGuard struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

// NewMemoryDedupGuard creates an empty in-memory guard.
func NewMemoryDedupGuard() *MemoryDedupGuard {
	return &MemoryDedupGuard{keys: make(map[string]time.Time)}
}

func (g *MemoryDedupGuard) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if expiry, held := g.keys[key]; held && expiry.After(time.Now()) {
		return false, nil
	}
	g.keys[key] = time.Now().Add(ttl)
	return true, nil
}

func (g *MemoryDedupGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.keys, key)
	return nil
}
